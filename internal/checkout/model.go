package checkout

import (
	"encoding/json"
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	County     string `json:"county"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// CustomerInput is the checkout form. Person fields and company fields are
// both present on the wire; Type decides which are read.
type CustomerInput struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	CompanyName   string `json:"companyName"`
	CUI           string `json:"cui"`
	ContactPerson string `json:"contactPerson"`
	NrCode        string `json:"nrRegCom"`

	DeliveryAddress Address  `json:"deliveryAddress"`
	BillingAddress  *Address `json:"billingAddress"`
	SameAddress     bool     `json:"sameAddress"`
}

type InitiateRequest struct {
	Customer   *CustomerInput    `json:"customer"`
	CartItems  []json.RawMessage `json:"cartItems"`
	OrderNotes string            `json:"orderNotes"`
}

type InitiateResponse struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber,omitempty"`
	PaymentURL  string `json:"paymentUrl,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ValidateRequest struct {
	Items []json.RawMessage `json:"items"`
}

// ValidateResponse is the cart preview. ValidatedItems echo the submitted
// items with the server's verdict merged in.
type ValidateResponse struct {
	Success        bool             `json:"success"`
	ValidatedItems []map[string]any `json:"validatedItems"`
	Subtotal       json.Number      `json:"subtotal"`
	Deposit        json.Number      `json:"deposit"`
	BottleCount    int              `json:"bottleCount"`
	Total          json.Number      `json:"total"`
	Errors         []string         `json:"errors,omitempty"`
	Error          string           `json:"error,omitempty"`
}
