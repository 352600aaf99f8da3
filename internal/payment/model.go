package payment

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const ProviderNetopia = "NETOPIA"

// Customer is the billing contact sent to the gateway.
type Customer struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    string
	City       string
	County     string
	PostalCode string
}

// Company is present only for company customers.
type Company struct {
	Name             string
	CUI              string
	ContactFirstName string
	ContactLastName  string
	NrCode           string
	CountyCode       string
}

type InitiateRequest struct {
	OrderNumber string
	// Amount is the already validated order total; it is sent as is.
	Amount      decimal.Decimal
	Currency    string
	Description string
	Customer    Customer
	Company     *Company
	NotifyURL   string
	RedirectURL string
}

type InitiateResult struct {
	PaymentURL string
	Reference  string
}

// Notification is the IPN payload posted by Netopia.
type Notification struct {
	Payment struct {
		Status   int         `json:"status"`
		NtpID    string      `json:"ntpID"`
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	} `json:"payment"`
	Order struct {
		NtpID       string      `json:"ntpID"`
		OrderID     string      `json:"orderID"`
		Description string      `json:"description"`
		Amount      json.Number `json:"amount"`
		Currency    string      `json:"currency"`
	} `json:"order"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// WebhookRecord is one row of the payment_webhooks audit table.
type WebhookRecord struct {
	ID             int64
	Provider       string
	EventID        string
	EventType      string
	OrderNumber    string
	Payload        json.RawMessage
	SignatureValid bool
	ReceivedAt     time.Time
}
