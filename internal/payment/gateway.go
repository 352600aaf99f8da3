package payment

import (
	"context"
)

type Gateway interface {
	InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	// Configured reports whether real payments can be started.
	Configured() bool
}
