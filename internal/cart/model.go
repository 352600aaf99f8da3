package cart

import (
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindProduct Kind = "product"
	KindPackage Kind = "package"
	KindBundle  Kind = "bundle"
)

// Line is one submitted cart line. The implementations below are the only
// ones; Validate switches over them exhaustively.
type Line interface {
	Kind() Kind
	ItemID() string
	DisplayName() string
	isLine()
}

// SimpleLine is a single bottle product.
type SimpleLine struct {
	ID           string
	Name         string
	ClaimedPrice decimal.Decimal
	Quantity     int
}

// PackageLine is a product sold as a multi-bottle package.
type PackageLine struct {
	ID           string
	Name         string
	ClaimedPrice decimal.Decimal
	Quantity     int
}

type Selection struct {
	ProductID   string
	ProductName string
	Quantity    int
}

// BundleLine is a configured bundle: a bundle reference plus the wines the
// customer picked for it.
type BundleLine struct {
	ID           string
	BundleSlug   string
	Name         string
	ClaimedPrice decimal.Decimal
	Selections   []Selection
}

// RejectedLine is a submitted line that could not be decoded into a known
// kind. It always fails validation.
type RejectedLine struct {
	ID           string
	Type         string
	Name         string
	ClaimedPrice decimal.Decimal
	Quantity     int
	Reason       error
}

func (l SimpleLine) Kind() Kind          { return KindProduct }
func (l SimpleLine) ItemID() string      { return l.ID }
func (l SimpleLine) DisplayName() string { return l.Name }
func (SimpleLine) isLine()               {}

func (l PackageLine) Kind() Kind          { return KindPackage }
func (l PackageLine) ItemID() string      { return l.ID }
func (l PackageLine) DisplayName() string { return l.Name }
func (PackageLine) isLine()               {}

func (l BundleLine) Kind() Kind          { return KindBundle }
func (l BundleLine) ItemID() string      { return l.ID }
func (l BundleLine) DisplayName() string { return l.Name }
func (BundleLine) isLine()               {}

func (l RejectedLine) Kind() Kind          { return Kind(l.Type) }
func (l RejectedLine) ItemID() string      { return l.ID }
func (l RejectedLine) DisplayName() string { return l.Name }
func (RejectedLine) isLine()               {}

// SelectedBottles sums the positive selection quantities.
func (l BundleLine) SelectedBottles() int {
	n := 0
	for _, s := range l.Selections {
		if s.Quantity > 0 {
			n += s.Quantity
		}
	}
	return n
}

// ValidatedSelection is a bundle wine priced from the bundle's schedule.
type ValidatedSelection struct {
	ProductID       string
	ProductName     string
	Quantity        int
	DiscountPercent decimal.Decimal
	UnitPrice       decimal.Decimal
	Total           decimal.Decimal
}

// LineResult is the outcome for one submitted line, in submission order.
type LineResult struct {
	Index int
	Line  Line
	Err   error

	// Populated only for valid lines, from catalog data.
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	Total      decimal.Decimal
	Bottles    int
	Selections []ValidatedSelection
}

func (r LineResult) Valid() bool {
	return r.Err == nil
}

type Result struct {
	Lines       []LineResult
	Subtotal    decimal.Decimal
	BottleCount int
	Deposit     decimal.Decimal
	Total       decimal.Decimal
	Errors      []error
}

// ValidLines returns the lines that passed validation.
func (r *Result) ValidLines() []LineResult {
	out := make([]LineResult, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.Valid() {
			out = append(out, l)
		}
	}
	return out
}

func (r *Result) Messages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

// CheckoutError applies the checkout policy: any line error, no valid line,
// or a non-positive total rejects the cart. Preview callers ignore it.
func (r *Result) CheckoutError() error {
	if len(r.Errors) > 0 {
		return &RejectedCartError{Messages: r.Messages()}
	}
	if len(r.ValidLines()) == 0 || !r.Total.IsPositive() {
		return ErrNoValidItems
	}
	return nil
}
