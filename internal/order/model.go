package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusSent       OrderStatus = "sent"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

// Fulfilled reports whether the order has moved past payment handling.
func (s OrderStatus) Fulfilled() bool {
	switch s {
	case StatusProcessing, StatusSent, StatusDelivered, StatusRefunded:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

// rank orders payment outcomes; a transition never lowers it.
func (p PaymentStatus) rank() int {
	switch p {
	case PaymentFailed, PaymentCancelled:
		return 1
	case PaymentPaid:
		return 2
	case PaymentRefunded:
		return 3
	default:
		return 0
	}
}

type CustomerType string

const (
	CustomerPerson  CustomerType = "person"
	CustomerCompany CustomerType = "company"
)

const (
	DefaultCountry       = "Romania"
	PaymentMethodNetopia = "netopia"
)

type Customer struct {
	Email string
	Phone string
	Name  string
	Type  CustomerType
}

type BillingAddress struct {
	Name               string
	Street             string
	City               string
	County             string
	PostalCode         string
	Country            string
	CompanyName        string
	VATNumber          string
	RegistrationNumber string
}

type ShippingAddress struct {
	Name       string
	Street     string
	City       string
	County     string
	PostalCode string
	Country    string
	Phone      string
	Notes      string
}

type ItemSelection struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Item is the frozen copy of a validated cart line.
type Item struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	Selections  []ItemSelection
}

type Order struct {
	ID          string
	OrderNumber string

	Customer Customer
	Billing  BillingAddress
	Shipping ShippingAddress
	Items    []Item

	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal // returnable bottle deposit
	TotalAmount    decimal.Decimal
	Currency       string

	Status           OrderStatus
	PaymentMethod    string
	PaymentStatus    PaymentStatus
	PaymentReference string

	AWBNumber   string
	CourierName string
	TrackingURL string

	PaidAt      *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateOrderInput carries already validated data; amounts are stored as given.
type CreateOrderInput struct {
	Customer Customer
	Billing  BillingAddress
	Shipping ShippingAddress
	Items    []Item
	Subtotal decimal.Decimal
	Deposit  decimal.Decimal
	Total    decimal.Decimal
	Currency string
}

type Created struct {
	ID          string
	OrderNumber string
}

// Outcome is a point on the two status axes.
type Outcome struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
}

type Transition struct {
	From    Outcome
	To      Outcome
	Applied bool
	Reason  TransitionReason
}

// IntoPaid reports whether this transition recorded a new payment.
func (t Transition) IntoPaid() bool {
	return t.Applied && t.To.PaymentStatus == PaymentPaid && t.From.PaymentStatus != PaymentPaid
}

type TransitionReason string

const (
	ReasonApplied    TransitionReason = "applied"
	ReasonDuplicate  TransitionReason = "duplicate"
	ReasonFulfilled  TransitionReason = "fulfilled"
	ReasonRegression TransitionReason = "regression"
)

type Shipment struct {
	AWBNumber   string
	CourierName string
	TrackingURL string
}
