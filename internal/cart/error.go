package cart

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrEmptyCart       = errors.New("Coșul este gol")
	ErrNoValidItems    = errors.New("Nu există produse valide în coș")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrUnknownKind     = errors.New("unknown item type")
	ErrMalformedLine   = errors.New("malformed cart line")
)

// ItemNotFoundError means the catalog has no product or bundle for a line.
type ItemNotFoundError struct {
	Kind Kind
	Name string
}

func (e *ItemNotFoundError) Error() string {
	if e.Kind == KindProduct {
		return fmt.Sprintf("Produsul \"%s\" nu a fost găsit", e.Name)
	}
	return fmt.Sprintf("Pachetul \"%s\" nu a fost găsit", e.Name)
}

type BundleProblem int

const (
	BundleCountMismatch BundleProblem = iota
	BundleIneligibleWine
	BundleInvalidDefinition
)

// BundleConfigurationError rejects a whole configured bundle line.
type BundleConfigurationError struct {
	Problem  BundleProblem
	Bundle   string
	Wine     string
	Required int
	Actual   int
}

func (e *BundleConfigurationError) Error() string {
	switch e.Problem {
	case BundleCountMismatch:
		return fmt.Sprintf("Pachetul \"%s\" necesită %d sticle, dar are %d", e.Bundle, e.Required, e.Actual)
	case BundleIneligibleWine:
		return fmt.Sprintf("Vinul \"%s\" nu este disponibil în pachetul \"%s\"", e.Wine, e.Bundle)
	default:
		return fmt.Sprintf("Pachetul \"%s\" are o configurație invalidă", e.Bundle)
	}
}

// InvalidLineError covers lines rejected before any catalog lookup.
type InvalidLineError struct {
	Name   string
	Reason error
}

func (e *InvalidLineError) Error() string {
	switch {
	case errors.Is(e.Reason, ErrInvalidQuantity):
		return fmt.Sprintf("Cantitate invalidă pentru \"%s\"", e.Name)
	case errors.Is(e.Reason, ErrUnknownKind):
		return fmt.Sprintf("Tip de produs necunoscut pentru \"%s\"", e.Name)
	default:
		return fmt.Sprintf("Produs invalid în coș: \"%s\"", e.Name)
	}
}

func (e *InvalidLineError) Unwrap() error {
	return e.Reason
}

// RejectedCartError is the batch of line problems that blocks a checkout.
type RejectedCartError struct {
	Messages []string
}

func (e *RejectedCartError) Error() string {
	return strings.Join(e.Messages, ", ")
}
