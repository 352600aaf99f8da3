package checkout

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"

	"nextaz-be/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPerson() *CustomerInput {
	return &CustomerInput{
		Type:      "person",
		Email:     "ana@example.com",
		Phone:     "0722 123-456",
		FirstName: "Ana",
		LastName:  "Pop",
		DeliveryAddress: Address{
			Street: "Str. Lunga 1", City: "Iasi", County: "Iasi", PostalCode: "700001",
		},
		SameAddress: true,
	}
}

func validCompany() *CustomerInput {
	return &CustomerInput{
		Type:          "company",
		Email:         "office@vinuri.ro",
		Phone:         "+40722123456",
		CompanyName:   "Vinuri SRL",
		CUI:           "RO123456",
		ContactPerson: "Ion Mihai Popescu",
		DeliveryAddress: Address{
			Street: "Bd. Unirii 5", City: "Bucuresti", County: "Bucuresti", PostalCode: "030000",
		},
		BillingAddress: &Address{Street: "Str. Sediu 2", City: "Cluj-Napoca", Country: "Romania"},
	}
}

func TestValidateCustomer(t *testing.T) {
	t.Run("valid person", func(t *testing.T) {
		assert.NoError(t, ValidateCustomer(validPerson()))
	})

	t.Run("valid company", func(t *testing.T) {
		assert.NoError(t, ValidateCustomer(validCompany()))
	})

	t.Run("nil customer", func(t *testing.T) {
		assert.EqualError(t, ValidateCustomer(nil), "Date lipsă sau invalide")
	})

	t.Run("all problems reported together", func(t *testing.T) {
		c := validPerson()
		c.Email = "ana@example"
		c.Phone = "12345"
		c.LastName = " "
		c.DeliveryAddress.City = ""

		err := ValidateCustomer(c)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, []string{
			"Adresă de email invalidă",
			"Număr de telefon invalid",
			"Numele și prenumele sunt obligatorii",
			"Adresa de livrare este incompletă",
		}, vErr.Messages)
	})

	t.Run("company without cui", func(t *testing.T) {
		c := validCompany()
		c.CUI = ""
		assert.EqualError(t, ValidateCustomer(c), "Denumirea firmei și CUI-ul sunt obligatorii")
	})

	t.Run("separate billing address must be complete", func(t *testing.T) {
		c := validCompany()
		c.BillingAddress.Street = ""
		assert.EqualError(t, ValidateCustomer(c), "Adresa de facturare este incompletă")
	})

	t.Run("unknown customer type", func(t *testing.T) {
		c := validPerson()
		c.Type = "robot"
		assert.EqualError(t, ValidateCustomer(c), "Tip de client invalid")
	})
}

func TestValidPhone(t *testing.T) {
	tests := map[string]bool{
		"0722123456":     true,
		"0722 123 456":   true,
		"+40-722-123456": true,
		"07221234567":    true,
		"+4072212345":    false,
		"722123456":      false,
		"0722abc456":     false,
		"":               false,
	}
	for in, want := range tests {
		assert.Equal(t, want, ValidPhone(in), in)
	}
}

func TestOrderParties(t *testing.T) {
	t.Run("person uses delivery address for billing", func(t *testing.T) {
		cust, billing, shipping := orderParties(validPerson(), " leave at door ")

		assert.Equal(t, order.Customer{Email: "ana@example.com", Phone: "0722 123-456", Name: "Ana Pop", Type: order.CustomerPerson}, cust)
		assert.Equal(t, "Ana Pop", billing.Name)
		assert.Equal(t, "Str. Lunga 1", billing.Street)
		assert.Equal(t, "Romania", billing.Country)
		assert.Empty(t, billing.CompanyName)
		assert.Equal(t, "Ana Pop", shipping.Name)
		assert.Equal(t, "0722 123-456", shipping.Phone)
		assert.Equal(t, "leave at door", shipping.Notes)
	})

	t.Run("company bills on company", func(t *testing.T) {
		cust, billing, shipping := orderParties(validCompany(), "")

		assert.Equal(t, "Vinuri SRL", cust.Name)
		assert.Equal(t, order.CustomerCompany, cust.Type)
		assert.Equal(t, "Vinuri SRL", billing.CompanyName)
		assert.Equal(t, "RO123456", billing.VATNumber)
		assert.Equal(t, "Cluj-Napoca", billing.City)
		assert.Equal(t, "Bucuresti", shipping.City)
	})
}

func TestGatewayParties(t *testing.T) {
	t.Run("person", func(t *testing.T) {
		cust, company := gatewayParties(validPerson())
		assert.Nil(t, company)
		assert.Equal(t, "Ana", cust.FirstName)
		assert.Equal(t, "Pop", cust.LastName)
		assert.Equal(t, "Str. Lunga 1", cust.Address)
	})

	t.Run("company contact split", func(t *testing.T) {
		cust, company := gatewayParties(validCompany())
		require.NotNil(t, company)
		assert.Equal(t, "Ion", cust.FirstName)
		assert.Equal(t, "Mihai Popescu", cust.LastName)
		assert.Equal(t, "Vinuri SRL", company.Name)
		assert.Equal(t, "RO123456", company.CUI)
	})

	t.Run("company without contact falls back to name", func(t *testing.T) {
		c := validCompany()
		c.ContactPerson = ""
		cust, _ := gatewayParties(c)
		assert.Equal(t, "Vinuri SRL", cust.FirstName)
		assert.Empty(t, cust.LastName)
	})
}

func TestCallbackOrigin(t *testing.T) {
	t.Run("configured base url wins", func(t *testing.T) {
		r := httptest.NewRequest("POST", "http://internal:8080/api/payment/initiate", nil)
		assert.Equal(t, "https://nextaz.ro", CallbackOrigin(r, "https://nextaz.ro/"))
	})

	t.Run("plain http is upgraded", func(t *testing.T) {
		r := httptest.NewRequest("POST", "http://shop.ngrok.io/api/payment/initiate", nil)
		assert.Equal(t, "https://shop.ngrok.io", CallbackOrigin(r, ""))
	})

	t.Run("localhost stays http", func(t *testing.T) {
		r := httptest.NewRequest("POST", "http://localhost:4321/api/payment/initiate", nil)
		assert.Equal(t, "http://localhost:4321", CallbackOrigin(r, ""))
	})

	t.Run("forwarded host behind proxy", func(t *testing.T) {
		r := httptest.NewRequest("POST", "http://10.0.0.5/api/payment/initiate", nil)
		r.Header.Set("X-Forwarded-Host", "nextaz.ro")
		r.Header.Set("X-Forwarded-Proto", "https")
		assert.Equal(t, "https://nextaz.ro", CallbackOrigin(r, ""))
	})

	t.Run("tls request", func(t *testing.T) {
		r := httptest.NewRequest("POST", "https://localhost/api/payment/initiate", nil)
		r.TLS = &tls.ConnectionState{}
		assert.Equal(t, "https://localhost", CallbackOrigin(r, ""))
	})
}
