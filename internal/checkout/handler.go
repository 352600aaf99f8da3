package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"nextaz-be/internal/cart"
	"nextaz-be/internal/logger"
	"nextaz-be/internal/metrics"
	"nextaz-be/internal/order"
	"nextaz-be/internal/payment"
	"nextaz-be/internal/pricing"
	"nextaz-be/internal/utils"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	resultInitiated  = "initiated"
	resultMock       = "mock"
	resultInvalid    = "invalid_request"
	resultRejected   = "rejected_cart"
	resultCatalogErr = "catalog_error"
	resultPersistErr = "persistence_error"
	resultGatewayErr = "gateway_error"
	resultRefFailed  = "payment_reference_failed"
)

type Handler struct {
	Revalidator   cart.Revalidator
	Orders        order.Service
	Gateway       payment.Gateway
	Metrics       *metrics.Metrics
	PublicBaseURL string
	Currency      string
}

func NewHandler(
	revalidator cart.Revalidator,
	orders order.Service,
	gateway payment.Gateway,
	m *metrics.Metrics,
	publicBaseURL string,
	currency string,
) *Handler {
	return &Handler{
		Revalidator:   revalidator,
		Orders:        orders,
		Gateway:       gateway,
		Metrics:       m,
		PublicBaseURL: publicBaseURL,
		Currency:      currency,
	}
}

// Initiate validates the customer and cart, stores the order and hands off to
// the payment gateway. The gateway is never contacted before the order exists.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("layer", "handler"), zap.String("method", "Initiate"))

	var req InitiateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		log.Info("invalid checkout request body", zap.Error(err))
		h.fail(w, http.StatusBadRequest, resultInvalid, msgMissingData)
		return
	}
	if req.Customer == nil || len(req.CartItems) == 0 {
		h.fail(w, http.StatusBadRequest, resultInvalid, msgMissingData)
		return
	}

	// 1️⃣ Customer
	if err := ValidateCustomer(req.Customer); err != nil {
		log.Info("checkout customer rejected", zap.Error(err))
		h.fail(w, http.StatusBadRequest, resultInvalid, err.Error())
		return
	}

	// 2️⃣ Cart, repriced from the catalog
	res, err := h.Revalidator.Validate(ctx, cart.DecodeLines(req.CartItems))
	if err != nil {
		log.Error("cart validation failed", zap.String("error_code", resultCatalogErr), zap.Error(err))
		h.fail(w, http.StatusInternalServerError, resultCatalogErr, msgProcessFailed)
		return
	}
	if err := res.CheckoutError(); err != nil {
		log.Info("checkout cart rejected", zap.Error(err))
		h.fail(w, http.StatusBadRequest, resultRejected, err.Error())
		return
	}

	// 3️⃣ Order
	customer, billing, shipping := orderParties(req.Customer, req.OrderNotes)
	created, err := h.Orders.CreateOrder(ctx, order.CreateOrderInput{
		Customer: customer,
		Billing:  billing,
		Shipping: shipping,
		Items:    order.ItemsFromCart(res),
		Subtotal: res.Subtotal,
		Deposit:  res.Deposit,
		Total:    res.Total,
		Currency: h.Currency,
	})
	if err != nil {
		log.Error("failed to save order",
			zap.String("error_code", resultPersistErr),
			zap.String("total", res.Total.StringFixed(2)),
			zap.Error(err),
		)
		h.fail(w, http.StatusInternalServerError, resultPersistErr, msgSaveFailed)
		return
	}
	log = log.With(logger.OrderNumber(created.OrderNumber))

	if !h.Gateway.Configured() {
		log.Warn("payment gateway not configured, using mock payment flow")
		h.Metrics.Checkout(resultMock)
		utils.WriteJSON(w, http.StatusOK, InitiateResponse{
			Success:     true,
			OrderNumber: created.OrderNumber,
			PaymentURL:  "/payment/success?orderNumber=" + url.QueryEscape(created.OrderNumber) + "&mock=true",
			Message:     msgMockPayment,
		})
		return
	}

	// 4️⃣ Gateway
	initiated, err := h.Gateway.InitiatePayment(ctx, h.paymentRequest(r, req.Customer, created.OrderNumber, res.Total))
	if err != nil {
		var gwErr *payment.GatewayError
		msg := msgProcessFailed
		if errors.As(err, &gwErr) {
			msg = msgGatewayFailed + gwErr.Message
		}
		log.Error("payment initiation failed", zap.String("error_code", resultGatewayErr), zap.Error(err))
		h.fail(w, http.StatusInternalServerError, resultGatewayErr, msg)
		return
	}

	// 5️⃣ Reference; the customer already has a redirect URL, so checkout still succeeds
	if err := h.Orders.RecordPaymentReference(context.WithoutCancel(ctx), created.OrderNumber, initiated.Reference); err != nil {
		log.Error("failed to record payment reference",
			zap.String("error_code", resultRefFailed),
			zap.String("payment_reference", initiated.Reference),
			zap.Error(err),
		)
		h.Metrics.Checkout(resultRefFailed)
	}

	log.Info("payment initiated", zap.String("payment_reference", initiated.Reference))
	h.Metrics.Checkout(resultInitiated)
	utils.WriteJSON(w, http.StatusOK, InitiateResponse{
		Success:     true,
		OrderNumber: created.OrderNumber,
		PaymentURL:  initiated.PaymentURL,
	})
}

func (h *Handler) paymentRequest(r *http.Request, c *CustomerInput, orderNumber string, total decimal.Decimal) payment.InitiateRequest {
	origin := CallbackOrigin(r, h.PublicBaseURL)
	cust, company := gatewayParties(c)

	return payment.InitiateRequest{
		OrderNumber: orderNumber,
		Amount:      total,
		Currency:    h.Currency,
		Description: fmt.Sprintf("Comandă %s - Nextaz", orderNumber),
		Customer:    cust,
		Company:     company,
		NotifyURL:   origin + "/api/payment/ipn",
		RedirectURL: origin + "/payment/success?orderNumber=" + url.QueryEscape(orderNumber),
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, result, message string) {
	h.Metrics.Checkout(result)
	utils.WriteJSON(w, status, InitiateResponse{Success: false, Error: message})
}

// ValidateCart is the non-committal preview: it reports line problems but
// never rejects the cart.
func (h *Handler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("layer", "handler"), zap.String("method", "ValidateCart"))

	var req ValidateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		log.Info("invalid cart preview body", zap.Error(err))
	}
	if len(req.Items) == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, emptyPreview(cart.ErrEmptyCart.Error()))
		return
	}

	res, err := h.Revalidator.Validate(ctx, cart.DecodeLines(req.Items))
	if err != nil {
		log.Error("cart preview failed", zap.Error(err))
		utils.WriteJSON(w, http.StatusInternalServerError, emptyPreview(msgValidateFailed))
		return
	}

	items := make([]map[string]any, 0, len(res.Lines))
	for _, lr := range res.Lines {
		items = append(items, previewItem(req.Items[lr.Index], lr))
	}

	msgs := res.Messages()
	if len(msgs) == 0 {
		msgs = nil
	}

	utils.WriteJSON(w, http.StatusOK, ValidateResponse{
		Success:        len(res.Errors) == 0,
		ValidatedItems: items,
		Subtotal:       pricing.Amount(res.Subtotal),
		Deposit:        pricing.Amount(res.Deposit),
		BottleCount:    res.BottleCount,
		Total:          pricing.Amount(res.Total),
		Errors:         msgs,
	})
}

func emptyPreview(message string) ValidateResponse {
	zero := pricing.Amount(decimal.Zero)
	return ValidateResponse{
		Success:        false,
		Error:          message,
		ValidatedItems: []map[string]any{},
		Subtotal:       zero,
		Deposit:        zero,
		Total:          zero,
	}
}

// previewItem echoes the submitted item with the verdict merged in. Invalid
// lines keep the submitted price as validatedPrice.
func previewItem(raw json.RawMessage, lr cart.LineResult) map[string]any {
	item := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&item); err != nil || item == nil {
		item = map[string]any{}
	}

	item["isValid"] = lr.Valid()
	if lr.Valid() {
		item["validatedPrice"] = pricing.Amount(lr.UnitPrice)
		return item
	}

	item["error"] = lr.Err.Error()
	if p, ok := item["price"]; ok {
		item["validatedPrice"] = p
	} else {
		item["validatedPrice"] = nil
	}
	return item
}
