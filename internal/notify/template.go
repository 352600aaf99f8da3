package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
	_ "time/tzdata"

	"nextaz-be/internal/order"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var roMonths = [...]string{
	"ianuarie", "februarie", "martie", "aprilie", "mai", "iunie",
	"iulie", "august", "septembrie", "octombrie", "noiembrie", "decembrie",
}

var bucharest = loadBucharest()

func loadBucharest() *time.Location {
	loc, err := time.LoadLocation("Europe/Bucharest")
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatAmount renders d the way Romanian receipts do: 1.234,50 RON.
func FormatAmount(d decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "RON"
	}

	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	b.WriteByte(' ')
	b.WriteString(currency)
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(bucharest)
	return fmt.Sprintf("%d %s %d, %02d:%02d", t.Day(), roMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

type itemView struct {
	Name       string
	Quantity   int
	UnitPrice  string
	TotalPrice string
	Details    []string
}

type orderView struct {
	OrderNumber string
	OrderDate   string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	IsCompany     bool

	Items []itemView

	Subtotal string
	Deposit  string
	Total    string

	Shipping order.ShippingAddress
	Billing  order.BillingAddress
}

func newOrderView(o *order.Order) orderView {
	money := func(d decimal.Decimal) string { return FormatAmount(d, o.Currency) }

	v := orderView{
		OrderNumber:   o.OrderNumber,
		OrderDate:     formatDate(o.CreatedAt),
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		CustomerPhone: o.Customer.Phone,
		IsCompany:     o.Customer.Type == order.CustomerCompany || o.Billing.CompanyName != "",
		Subtotal:      money(o.Subtotal),
		Deposit:       money(o.TaxAmount),
		Total:         money(o.TotalAmount),
		Shipping:      o.Shipping,
		Billing:       o.Billing,
	}
	if v.CustomerPhone == "" {
		v.CustomerPhone = "N/A"
	}

	for _, it := range o.Items {
		iv := itemView{
			Name:       it.ProductName,
			Quantity:   it.Quantity,
			UnitPrice:  money(it.UnitPrice),
			TotalPrice: money(it.TotalPrice),
		}
		for _, s := range it.Selections {
			iv.Details = append(iv.Details, fmt.Sprintf("%d x %s (%s)", s.Quantity, s.ProductName, money(s.UnitPrice)))
		}
		v.Items = append(v.Items, iv)
	}
	return v
}

const layoutHTML = `{{define "items"}}
<table cellpadding="6" cellspacing="0" border="0" width="100%" style="border-collapse:collapse">
  <tr style="background:#f4efe9"><th align="left">Produs</th><th>Cant.</th><th align="right">Preț</th><th align="right">Total</th></tr>
  {{range .Items}}
  <tr>
    <td>{{.Name}}{{range .Details}}<br><small>{{.}}</small>{{end}}</td>
    <td align="center">{{.Quantity}}</td>
    <td align="right">{{.UnitPrice}}</td>
    <td align="right">{{.TotalPrice}}</td>
  </tr>
  {{end}}
</table>
<p>Subtotal: {{.Subtotal}}<br>Garanție SGR: {{.Deposit}}<br><strong>Total: {{.Total}}</strong></p>
{{end}}
{{define "addresses"}}
<h3>Livrare</h3>
<p>{{.Shipping.Name}}<br>{{.Shipping.Street}}<br>{{.Shipping.City}}{{with .Shipping.County}}, {{.}}{{end}} {{.Shipping.PostalCode}}<br>{{.Shipping.Country}}</p>
<h3>Facturare</h3>
<p>{{if .IsCompany}}{{.Billing.CompanyName}}{{with .Billing.VATNumber}} ({{.}}){{end}}<br>{{end}}{{.Billing.Name}}<br>{{.Billing.Street}}<br>{{.Billing.City}}{{with .Billing.County}}, {{.}}{{end}} {{.Billing.PostalCode}}<br>{{.Billing.Country}}</p>
{{end}}`

const customerHTML = `{{define "customer"}}<!doctype html>
<html lang="ro"><body style="font-family:Georgia,serif;color:#2b1d14">
<h2>Mulțumim pentru comandă, {{.CustomerName}}!</h2>
<p>Comanda <strong>#{{.OrderNumber}}</strong> din {{.OrderDate}} a fost confirmată și plata a fost primită.</p>
{{template "items" .}}
{{template "addresses" .}}
<p>Te vom anunța când comanda pleacă spre tine.<br>Echipa Nextaz</p>
</body></html>{{end}}`

const adminHTML = `{{define "admin"}}<!doctype html>
<html lang="ro"><body style="font-family:Arial,sans-serif">
<h2>Comandă nouă #{{.OrderNumber}}</h2>
<p>{{.OrderDate}}</p>
<p><strong>{{.CustomerName}}</strong>{{if .IsCompany}} (persoană juridică){{end}}<br>{{.CustomerEmail}}<br>{{.CustomerPhone}}</p>
{{template "items" .}}
{{template "addresses" .}}
</body></html>{{end}}`

var templates = template.Must(template.New("email").Parse(layoutHTML + customerHTML + adminHTML))

func render(name string, v orderView) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", errors.Wrapf(err, "render %s email", name)
	}
	return buf.String(), nil
}

// CustomerConfirmation builds the payment confirmation sent to the buyer.
func CustomerConfirmation(o *order.Order, from string) (Message, error) {
	html, err := render(KindCustomer, newOrderView(o))
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    KindCustomer,
		From:    from,
		To:      []string{o.Customer.Email},
		Subject: fmt.Sprintf("Confirmare comanda #%s - Nextaz", o.OrderNumber),
		HTML:    html,
	}, nil
}

// AdminNotification builds the new-order alert for the shop inbox.
func AdminNotification(o *order.Order, from, adminEmail string) (Message, error) {
	html, err := render(KindAdmin, newOrderView(o))
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    KindAdmin,
		From:    from,
		To:      []string{adminEmail},
		ReplyTo: o.Customer.Email,
		Subject: fmt.Sprintf("[Comanda noua] #%s - %s - %s",
			o.OrderNumber, o.Customer.Name, FormatAmount(o.TotalAmount, o.Currency)),
		HTML: html,
	}, nil
}
