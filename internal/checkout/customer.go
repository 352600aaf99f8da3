package checkout

import (
	"net/http"
	"regexp"
	"strings"

	"nextaz-be/internal/order"
	"nextaz-be/internal/payment"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^(\+40|0)[0-9]{9,10}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "\t", "")
)

func (c *CustomerInput) customerType() order.CustomerType {
	switch strings.TrimSpace(c.Type) {
	case "", string(order.CustomerPerson):
		return order.CustomerPerson
	case string(order.CustomerCompany):
		return order.CustomerCompany
	default:
		return ""
	}
}

// billing resolves the billing address, falling back to delivery when the
// customer ticked "same address".
func (c *CustomerInput) billing() Address {
	if c.SameAddress || c.BillingAddress == nil {
		return c.DeliveryAddress
	}
	return *c.BillingAddress
}

// ValidateCustomer reports every problem with the checkout form at once.
func ValidateCustomer(c *CustomerInput) error {
	if c == nil {
		return &ValidationError{Messages: []string{msgMissingData}}
	}

	var msgs []string
	add := func(m string) { msgs = append(msgs, m) }

	if !emailPattern.MatchString(strings.TrimSpace(c.Email)) {
		add(msgInvalidEmail)
	}
	if !ValidPhone(c.Phone) {
		add(msgInvalidPhone)
	}

	switch c.customerType() {
	case order.CustomerPerson:
		if blank(c.FirstName) || blank(c.LastName) {
			add(msgMissingName)
		}
	case order.CustomerCompany:
		if blank(c.CompanyName) || blank(c.CUI) {
			add(msgMissingCompany)
		}
	default:
		add(msgInvalidType)
	}

	if blank(c.DeliveryAddress.Street) || blank(c.DeliveryAddress.City) {
		add(msgMissingAddress)
	}
	if !c.SameAddress && c.BillingAddress != nil &&
		(blank(c.BillingAddress.Street) || blank(c.BillingAddress.City)) {
		add(msgMissingBilling)
	}

	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}

// ValidPhone accepts Romanian numbers, ignoring spaces and dashes.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phoneStrip.Replace(strings.TrimSpace(phone)))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func countryOrDefault(c string) string {
	if c = strings.TrimSpace(c); c != "" {
		return c
	}
	return order.DefaultCountry
}

// orderParties builds the snapshots stored on the order row.
func orderParties(c *CustomerInput, notes string) (order.Customer, order.BillingAddress, order.ShippingAddress) {
	typ := c.customerType()

	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if typ == order.CustomerCompany {
		name = strings.TrimSpace(c.CompanyName)
	}

	customer := order.Customer{
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
		Name:  name,
		Type:  typ,
	}

	b := c.billing()
	billing := order.BillingAddress{
		Name:       name,
		Street:     b.Street,
		City:       b.City,
		County:     b.County,
		PostalCode: b.PostalCode,
		Country:    countryOrDefault(b.Country),
	}
	if typ == order.CustomerCompany {
		billing.CompanyName = name
		billing.VATNumber = strings.TrimSpace(c.CUI)
		billing.RegistrationNumber = strings.TrimSpace(c.NrCode)
	}

	d := c.DeliveryAddress
	shipping := order.ShippingAddress{
		Name:       name,
		Street:     d.Street,
		City:       d.City,
		County:     d.County,
		PostalCode: d.PostalCode,
		Country:    countryOrDefault(d.Country),
		Phone:      customer.Phone,
		Notes:      strings.TrimSpace(notes),
	}

	return customer, billing, shipping
}

// gatewayParties builds the billing identity sent to the payment gateway.
// Companies are billed on the contact person, falling back to the company name.
func gatewayParties(c *CustomerInput) (payment.Customer, *payment.Company) {
	d := c.DeliveryAddress
	cust := payment.Customer{
		FirstName:  strings.TrimSpace(c.FirstName),
		LastName:   strings.TrimSpace(c.LastName),
		Email:      strings.TrimSpace(c.Email),
		Phone:      strings.TrimSpace(c.Phone),
		Address:    d.Street,
		City:       d.City,
		County:     d.County,
		PostalCode: d.PostalCode,
	}

	if c.customerType() != order.CustomerCompany {
		return cust, nil
	}

	first, last := splitContact(c.ContactPerson)
	if first == "" {
		first = strings.TrimSpace(c.CompanyName)
	}
	cust.FirstName, cust.LastName = first, last

	return cust, &payment.Company{
		Name:             strings.TrimSpace(c.CompanyName),
		CUI:              strings.TrimSpace(c.CUI),
		ContactFirstName: first,
		ContactLastName:  last,
		NrCode:           strings.TrimSpace(c.NrCode),
	}
}

func splitContact(contact string) (string, string) {
	parts := strings.Fields(contact)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// CallbackOrigin is the public origin the gateway calls back on. A configured
// base URL wins; otherwise the request origin is used, upgraded to https
// unless it is localhost.
func CallbackOrigin(r *http.Request, publicBaseURL string) string {
	if base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"); base != "" {
		return base
	}

	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}

	if scheme == "http" && !strings.Contains(host, "localhost") {
		scheme = "https"
	}
	return scheme + "://" + host
}
