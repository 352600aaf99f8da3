package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nextaz-be/internal/config"
	"nextaz-be/internal/logger"
	"nextaz-be/internal/pricing"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const (
	netopiaSandboxURL = "https://secure-sandbox.netopia-payments.com"
	// The live host differs from the one the official SDK ships with.
	netopiaLiveURL   = "https://secure.mobilpay.ro/pay"
	netopiaStartPath = "/payment/card/start"

	countryCodeRomania = 642
	countryRomania     = "Romania"
	maxResponseLog     = 500
)

type netopiaGateway struct {
	cfg        config.NetopiaConfig
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// ----------------- Constructor -----------------

func NewNetopiaGateway(cfg config.NetopiaConfig) Gateway {
	if !cfg.Configured() {
		logger.L().Warn("Netopia credentials are empty, checkout will use the simulated flow")
	}

	base := netopiaSandboxURL
	if cfg.Live() {
		base = netopiaLiveURL
	}

	return &netopiaGateway{
		cfg:     cfg,
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

func (g *netopiaGateway) Configured() bool {
	return g.cfg.Configured()
}

// ----------------- Wire types -----------------

type netopiaStartRequest struct {
	Config  netopiaConfigData  `json:"config"`
	Payment netopiaPaymentData `json:"payment"`
	Order   netopiaOrderData   `json:"order"`
}

type netopiaConfigData struct {
	EmailTemplate string `json:"emailTemplate"`
	EmailSubject  string `json:"emailSubject"`
	NotifyURL     string `json:"notifyUrl"`
	RedirectURL   string `json:"redirectUrl"`
	Language      string `json:"language"`
}

type netopiaPaymentData struct {
	Options struct {
		Installments int `json:"installments"`
		Bonus        int `json:"bonus"`
	} `json:"options"`
	Instrument struct {
		Type string `json:"type"`
	} `json:"instrument"`
}

type netopiaOrderData struct {
	NtpID        *string             `json:"ntpID"`
	OrderID      string              `json:"orderID"`
	Description  string              `json:"description"`
	Amount       json.Number         `json:"amount"`
	Currency     string              `json:"currency"`
	DateTime     time.Time           `json:"dateTime"`
	Billing      netopiaBilling      `json:"billing"`
	Installments netopiaInstallments `json:"installments"`
	POSSignature string              `json:"posSignature"`
	Data         *netopiaCompanyData `json:"data,omitempty"`
}

type netopiaBilling struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Details     string `json:"details"`
	City        string `json:"city"`
	Country     int    `json:"country"`
	CountryName string `json:"countryName"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
}

type netopiaInstallments struct {
	Selected int `json:"selected"`
}

type netopiaCompanyData struct {
	OrderProfile string `json:"order_profile"`
	Company      string `json:"company"`
	VATCode      string `json:"vat_code"`
	VATPayer     string `json:"vat_payer"`
	TaxCode      string `json:"tax_code"`
	NrCode       string `json:"nr_code"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	County       string `json:"county"`
	CountyCode   string `json:"county_code"`
	Country      string `json:"country"`
}

type netopiaStartResponse struct {
	Message string `json:"message"`
	Payment *struct {
		NtpID      string `json:"ntpID"`
		PaymentURL string `json:"paymentURL"`
		Status     int    `json:"status"`
	} `json:"payment"`
}

// ----------------- InitiatePayment -----------------

func (g *netopiaGateway) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		logger.OrderNumber(req.OrderNumber),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("currency", req.Currency),
		zap.Bool("live", g.cfg.Live()),
		zap.Bool("company", req.Company != nil),
	)

	if !g.cfg.Configured() {
		return nil, ErrNotConfigured
	}

	jsonBody, err := json.Marshal(g.buildRequest(req))
	if err != nil {
		log.Error("failed to marshal payment request", zap.Error(err))
		return nil, errors.Wrap(err, "marshal netopia request")
	}

	url := g.baseURL + netopiaStartPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		log.Error("failed creating request", zap.Error(err))
		return nil, errors.Wrap(err, "create netopia request")
	}
	httpReq.Header.Set("Authorization", g.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	log.Info("sending payment request to Netopia", zap.String("url", url))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		log.Error("Netopia request failed", zap.Error(err))
		return nil, &GatewayError{Message: msgUnavailable, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("failed to read response body", zap.Error(err))
		return nil, &GatewayError{StatusCode: resp.StatusCode, Message: msgUnavailable, Err: err}
	}

	var res netopiaStartResponse
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		log.Error("Netopia returned non-JSON response",
			zap.Int("http_status", resp.StatusCode),
			zap.String("response_preview", preview(bodyBytes)),
		)
		return nil, &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Netopia returned non-JSON response (HTTP %d)", resp.StatusCode),
		}
	}

	hasURL := res.Payment != nil && res.Payment.PaymentURL != ""
	log.Info("Netopia response",
		zap.Int("http_status", resp.StatusCode),
		zap.Bool("has_payment_url", hasURL),
	)

	if resp.StatusCode == http.StatusOK && hasURL {
		return &InitiateResult{
			PaymentURL: res.Payment.PaymentURL,
			Reference:  res.Payment.NtpID,
		}, nil
	}

	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("Netopia HTTP %d", resp.StatusCode)
	}
	log.Error("Netopia rejected payment", zap.Int("http_status", resp.StatusCode), zap.String("error_code", msg))
	return nil, &GatewayError{StatusCode: resp.StatusCode, Message: msg}
}

func (g *netopiaGateway) buildRequest(req InitiateRequest) netopiaStartRequest {
	var body netopiaStartRequest

	body.Config = netopiaConfigData{
		EmailTemplate: "Confirmare plată Nextaz",
		EmailSubject:  "Plată comandă " + req.OrderNumber,
		NotifyURL:     req.NotifyURL,
		RedirectURL:   req.RedirectURL,
		Language:      "ro",
	}

	// Only the card type is sent; that is what makes Netopia return a hosted page URL.
	body.Payment.Instrument.Type = "card"

	description := req.Description
	if description == "" {
		description = "Comandă " + req.OrderNumber
	}
	currency := req.Currency
	if currency == "" {
		currency = "RON"
	}
	state := req.Customer.County
	if state == "" {
		state = countryRomania
	}
	postal := req.Customer.PostalCode
	if postal == "" {
		postal = "000000"
	}

	body.Order = netopiaOrderData{
		OrderID:     req.OrderNumber,
		Description: description,
		Amount:      pricing.Amount(req.Amount),
		Currency:    currency,
		DateTime:    g.now().UTC(),
		Billing: netopiaBilling{
			FirstName:   req.Customer.FirstName,
			LastName:    req.Customer.LastName,
			Email:       req.Customer.Email,
			Phone:       req.Customer.Phone,
			Details:     req.Customer.Address,
			City:        req.Customer.City,
			Country:     countryCodeRomania,
			CountryName: countryRomania,
			State:       state,
			PostalCode:  postal,
		},
		POSSignature: g.cfg.POSSignature,
	}

	if req.Company != nil {
		body.Order.Data = companyData(req.Company, req.Customer)
	}

	return body
}

// companyData builds the invoicing block. A CUI starting with RO marks a VAT payer.
func companyData(c *Company, cust Customer) *netopiaCompanyData {
	cui := strings.ToUpper(strings.TrimSpace(c.CUI))
	vatPayer := strings.HasPrefix(cui, "RO")

	vatCode := cui
	payer := "1"
	if !vatPayer {
		vatCode = "RO" + cui
		payer = "0"
	}

	return &netopiaCompanyData{
		OrderProfile: "4",
		Company:      c.Name,
		VATCode:      vatCode,
		VATPayer:     payer,
		TaxCode:      strings.TrimPrefix(cui, "RO"),
		NrCode:       c.NrCode,
		FirstName:    c.ContactFirstName,
		LastName:     c.ContactLastName,
		Email:        cust.Email,
		Phone:        cust.Phone,
		Address:      cust.Address,
		City:         cust.City,
		County:       cust.County,
		CountyCode:   c.CountyCode,
		Country:      "RO",
	}
}

func preview(b []byte) string {
	if len(b) > maxResponseLog {
		return string(b[:maxResponseLog])
	}
	return string(b)
}
