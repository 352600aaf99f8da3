package payment

import (
	"nextaz-be/internal/order"
)

// Netopia payment status codes.
const (
	StatusPending     = 0
	StatusPendingAuth = 1
	StatusPaid        = 2
	StatusPaidPending = 3
	StatusScheduled   = 4
	StatusCredit      = 5
	StatusDeclined    = 6
	StatusError       = 7
	StatusCanceled    = 8
)

// MapStatus maps a gateway status code onto both order axes. Unknown codes
// are pending, never an error.
func MapStatus(code int) order.Outcome {
	switch code {
	case StatusPaid, StatusPaidPending, StatusCredit:
		return order.Outcome{Status: order.StatusConfirmed, PaymentStatus: order.PaymentPaid}
	case StatusDeclined, StatusError:
		return order.Outcome{Status: order.StatusCancelled, PaymentStatus: order.PaymentFailed}
	case StatusCanceled:
		return order.Outcome{Status: order.StatusCancelled, PaymentStatus: order.PaymentCancelled}
	default:
		return order.Outcome{Status: order.StatusPending, PaymentStatus: order.PaymentPending}
	}
}
