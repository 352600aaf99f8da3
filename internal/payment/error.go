package payment

import (
	"github.com/go-faster/errors"
)

var (
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrVerificationUnavailable = errors.New("signature verification unavailable")
	ErrNotConfigured           = errors.New("netopia credentials not configured")
)

// msgUnavailable replaces transport failures in customer-facing messages.
const msgUnavailable = "Netopia indisponibil"

// GatewayError is a failed payment initiation. Message is safe to show;
// Err keeps the underlying cause for logs and errors.Is.
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
