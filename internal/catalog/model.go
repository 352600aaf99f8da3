package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is the authoritative catalog entry for a single wine or package.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// WineDiscount is one eligible wine in a bundle and its discount.
type WineDiscount struct {
	ProductID       string
	ProductName     string
	BasePrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// Bundle is a configurable multi-wine package that must be filled with
// exactly BottleCount bottles.
type Bundle struct {
	Slug        string
	Name        string
	BottleCount int
	Wines       []WineDiscount
}

// Discount returns the schedule entry for productID.
func (b Bundle) Discount(productID string) (WineDiscount, bool) {
	for _, w := range b.Wines {
		if w.ProductID == productID {
			return w, true
		}
	}
	return WineDiscount{}, false
}

type Query struct {
	ProductIDs  []string
	BundleSlugs []string
}

// Empty reports whether the query references nothing.
func (q Query) Empty() bool {
	return len(q.ProductIDs) == 0 && len(q.BundleSlugs) == 0
}

// Snapshot is the result of one lookup. Identifiers the catalog does not know
// are simply missing.
type Snapshot struct {
	products map[string]Product
	bundles  map[string]Bundle
}

func NewSnapshot(products []Product, bundles []Bundle) *Snapshot {
	s := &Snapshot{
		products: make(map[string]Product, len(products)),
		bundles:  make(map[string]Bundle, len(bundles)),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	for _, b := range bundles {
		s.bundles[b.Slug] = b
	}
	return s
}

func (s *Snapshot) Product(id string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	p, ok := s.products[id]
	return p, ok
}

func (s *Snapshot) Bundle(slug string) (Bundle, bool) {
	if s == nil {
		return Bundle{}, false
	}
	b, ok := s.bundles[slug]
	return b, ok
}

// Oracle resolves a whole cart's references in a single round trip.
type Oracle interface {
	Lookup(ctx context.Context, q Query) (*Snapshot, error)
}
