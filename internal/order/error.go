package order

import (
	"github.com/go-faster/errors"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order transition")
	ErrInvalidShipment   = errors.New("awb number is required")
	ErrEmptyOrder        = errors.New("order has no items")
)

// PersistenceError wraps a failure of the order store. The detail is for logs;
// clients get a generic message.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "order store: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
