package admin

import (
	"encoding/json"
	"time"

	"nextaz-be/internal/order"
	"nextaz-be/internal/pricing"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ShipmentRequest struct {
	AWBNumber   string `json:"awbNumber"`
	CourierName string `json:"courierName"`
	TrackingURL string `json:"trackingUrl"`
}

type ShipmentResponse struct {
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
	Applied     bool   `json:"applied"`
}

type CustomerResponse struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type AddressResponse struct {
	Name               string `json:"name"`
	Street             string `json:"street"`
	City               string `json:"city"`
	County             string `json:"county"`
	PostalCode         string `json:"postalCode"`
	Country            string `json:"country"`
	Phone              string `json:"phone,omitempty"`
	Notes              string `json:"notes,omitempty"`
	CompanyName        string `json:"companyName,omitempty"`
	VATNumber          string `json:"cui,omitempty"`
	RegistrationNumber string `json:"nrRegCom,omitempty"`
}

type ItemResponse struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Quantity    int         `json:"quantity"`
	UnitPrice   json.Number `json:"unitPrice"`
	TotalPrice  json.Number `json:"totalPrice"`
}

// OrderResponse is the admin view of a stored order.
type OrderResponse struct {
	ID               string                `json:"id"`
	OrderNumber      string                `json:"orderNumber"`
	Status           string                `json:"status"`
	PaymentStatus    string                `json:"paymentStatus"`
	PaymentMethod    string                `json:"paymentMethod"`
	PaymentReference string                `json:"paymentReference,omitempty"`
	Customer         CustomerResponse `json:"customer"`
	Billing          AddressResponse  `json:"billing"`
	Shipping         AddressResponse  `json:"shipping"`
	Items            []ItemResponse   `json:"items"`
	Subtotal         json.Number      `json:"subtotal"`
	Deposit          json.Number      `json:"deposit"`
	Total            json.Number      `json:"total"`
	Currency         string           `json:"currency"`
	AWBNumber        string           `json:"awbNumber,omitempty"`
	CourierName      string           `json:"courierName,omitempty"`
	TrackingURL      string           `json:"trackingUrl,omitempty"`
	PaidAt           *time.Time       `json:"paidAt,omitempty"`
	ShippedAt        *time.Time       `json:"shippedAt,omitempty"`
	DeliveredAt      *time.Time       `json:"deliveredAt,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   pricing.Amount(it.UnitPrice),
			TotalPrice:  pricing.Amount(it.TotalPrice),
		})
	}

	return OrderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentMethod:    o.PaymentMethod,
		PaymentReference: o.PaymentReference,
		Customer: CustomerResponse{
			Type:  string(o.Customer.Type),
			Name:  o.Customer.Name,
			Email: o.Customer.Email,
			Phone: o.Customer.Phone,
		},
		Billing: AddressResponse{
			Name:               o.Billing.Name,
			Street:             o.Billing.Street,
			City:               o.Billing.City,
			County:             o.Billing.County,
			PostalCode:         o.Billing.PostalCode,
			Country:            o.Billing.Country,
			CompanyName:        o.Billing.CompanyName,
			VATNumber:          o.Billing.VATNumber,
			RegistrationNumber: o.Billing.RegistrationNumber,
		},
		Shipping: AddressResponse{
			Name:       o.Shipping.Name,
			Street:     o.Shipping.Street,
			City:       o.Shipping.City,
			County:     o.Shipping.County,
			PostalCode: o.Shipping.PostalCode,
			Country:    o.Shipping.Country,
			Phone:      o.Shipping.Phone,
			Notes:      o.Shipping.Notes,
		},
		Items:       items,
		Subtotal:    pricing.Amount(o.Subtotal),
		Deposit:     pricing.Amount(o.TaxAmount),
		Total:       pricing.Amount(o.TotalAmount),
		Currency:    o.Currency,
		AWBNumber:   o.AWBNumber,
		CourierName: o.CourierName,
		TrackingURL: o.TrackingURL,
		PaidAt:      o.PaidAt,
		ShippedAt:   o.ShippedAt,
		DeliveredAt: o.DeliveredAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
