package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"nextaz-be/internal/logger"
	"nextaz-be/internal/metrics"
	"nextaz-be/internal/order"
	"nextaz-be/internal/payment"
	"nextaz-be/internal/utils"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const (
	VerificationHeader = "verification-token"

	codeEmptyBody        = "EMPTY_BODY"
	codeInvalidPayload   = "INVALID_PAYLOAD"
	codeInvalidSignature = "INVALID_SIGNATURE"
	codeMissingOrder     = "MISSING_ORDER"
	codeServerError      = "SERVER_ERROR"
)

// SignatureVerifier checks a notification against its raw body.
type SignatureVerifier interface {
	Verify(token string, body []byte) (payment.Verification, error)
}

// Notifier receives order numbers whose payment was just recorded.
type Notifier interface {
	Enqueue(orderNumber string) bool
}

// Response is the acknowledgment format Netopia expects.
type Response struct {
	ErrorType    int    `json:"errorType"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type Handler struct {
	OrderSvc   order.Service
	PayRepo    payment.Repository
	Verifier   SignatureVerifier
	Notifier   Notifier
	Metrics    *metrics.Metrics
	Configured bool
}

func NewWebhookHandler(
	orderSvc order.Service,
	payRepo payment.Repository,
	verifier SignatureVerifier,
	notifier Notifier,
	m *metrics.Metrics,
	configured bool,
) *Handler {
	return &Handler{
		OrderSvc:   orderSvc,
		PayRepo:    payRepo,
		Verifier:   verifier,
		Notifier:   notifier,
		Metrics:    m,
		Configured: configured,
	}
}

// Status answers GET probes of the IPN endpoint.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"status":            "IPN endpoint active",
		"netopiaConfigured": h.Configured,
	})
}

// NetopiaIPN reconciles one payment notification. Once the body is parsed and
// verified the gateway always gets an ack, whatever happens downstream.
func (h *Handler) NetopiaIPN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("layer", "webhook"), zap.String("provider", payment.ProviderNetopia))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic while processing IPN", zap.Any("panic", rec), zap.Stack("stack"))
			h.reply(w, http.StatusInternalServerError, codeServerError, "Internal server error")
		}
	}()

	// Step 1️⃣ – Read the exact bytes; the signature covers them
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, utils.MaxBodyBytes))
	if err != nil {
		log.Warn("failed to read IPN body", zap.Error(err))
		h.reply(w, http.StatusBadRequest, codeInvalidPayload, "Failed to read request body")
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		log.Warn("IPN received with empty body")
		h.reply(w, http.StatusBadRequest, codeEmptyBody, "Empty request body")
		return
	}

	// Step 2️⃣ – Parse by content type
	n, payload, err := ParseNotification(r.Header.Get("Content-Type"), body)
	if err != nil {
		log.Warn("unparseable IPN payload", zap.Error(err))
		h.reply(w, http.StatusBadRequest, codeInvalidPayload, "Invalid payload")
		return
	}

	// Step 3️⃣ – Verify
	token := r.Header.Get(VerificationHeader)
	verification, err := h.Verifier.Verify(token, body)
	if err != nil {
		log.Error("IPN signature verification failed",
			zap.Bool("token_present", token != ""),
			zap.String("error_code", codeInvalidSignature),
			zap.Error(err),
		)
		h.reply(w, http.StatusBadRequest, codeInvalidSignature, "Invalid signature")
		return
	}
	if !verification.Verified {
		log.Warn("IPN accepted without signature verification", zap.String("reason", verification.SkipReason))
	}

	// Step 4️⃣ – Identify the order
	orderNumber := strings.TrimSpace(n.Order.OrderID)
	if orderNumber == "" {
		log.Error("IPN missing orderID", zap.String("error_code", codeMissingOrder))
		h.reply(w, http.StatusBadRequest, codeMissingOrder, "Missing orderID")
		return
	}
	log = log.With(logger.OrderNumber(orderNumber), zap.Int("netopia_status", n.Payment.Status))

	// Step 5️⃣ – Audit. Failures here never change the answer.
	webhookID, dup, err := h.PayRepo.SavePaymentWebhook(
		ctx,
		payment.ProviderNetopia,
		EventID(body),
		eventType(n.Payment.Status),
		orderNumber,
		payload,
		verification.Verified,
	)
	switch {
	case err != nil:
		log.Error("failed to audit IPN", zap.Error(err))
	case dup:
		log.Info("duplicate IPN received")
	}

	// Step 6️⃣ – Apply
	h.reconcile(ctx, log, webhookID, orderNumber, n)

	h.reply(w, http.StatusOK, "", "OK")
}

// reconcile maps and applies a notification. Errors are logged and stamped on
// the audit record so Replay can pick them up later.
func (h *Handler) reconcile(
	ctx context.Context,
	log *zap.Logger,
	webhookID int64,
	orderNumber string,
	n *payment.Notification,
) (order.Transition, error) {
	target := payment.MapStatus(n.Payment.Status)

	t, err := h.OrderSvc.ApplyPaymentOutcome(ctx, orderNumber, target, n.Payment.NtpID)
	if err != nil {
		log.Error("failed to apply payment outcome",
			zap.String("target_status", string(target.Status)),
			zap.String("target_payment_status", string(target.PaymentStatus)),
			zap.Error(err),
		)
		h.Metrics.Webhook("apply_failed")
		if webhookID > 0 {
			if mErr := h.PayRepo.MarkWebhookFailed(ctx, webhookID, err.Error()); mErr != nil {
				log.Error("failed to mark webhook failed", zap.Error(mErr))
			}
		}
		return t, err
	}

	if webhookID > 0 {
		if mErr := h.PayRepo.MarkWebhookProcessed(ctx, webhookID); mErr != nil {
			log.Error("failed to mark webhook processed", zap.Error(mErr))
		}
	}

	if t.IntoPaid() && h.Notifier != nil {
		if !h.Notifier.Enqueue(orderNumber) {
			log.Warn("confirmation email not queued")
		}
	}

	h.Metrics.Webhook(string(t.Reason))
	return t, nil
}

type ReplayResult struct {
	Scanned int `json:"scanned"`
	Applied int `json:"applied"`
	Ignored int `json:"ignored"`
	Failed  int `json:"failed"`
}

// Replay re-runs the apply step for audit records never stamped processed.
func (h *Handler) Replay(ctx context.Context, limit int) (ReplayResult, error) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "webhook"), zap.String("method", "Replay"))

	records, err := h.PayRepo.ListUnprocessedWebhooks(ctx, payment.ProviderNetopia, limit)
	if err != nil {
		log.Error("failed to list unprocessed webhooks", zap.Error(err))
		return ReplayResult{}, err
	}

	res := ReplayResult{Scanned: len(records)}
	for _, rec := range records {
		recLog := log.With(zap.Int64("webhook_id", rec.ID), logger.OrderNumber(rec.OrderNumber))

		var n payment.Notification
		if err := json.Unmarshal(rec.Payload, &n); err != nil || strings.TrimSpace(n.Order.OrderID) == "" {
			res.Failed++
			reason := "missing orderID"
			if err != nil {
				reason = err.Error()
			}
			if mErr := h.PayRepo.MarkWebhookFailed(ctx, rec.ID, reason); mErr != nil {
				recLog.Error("failed to mark webhook failed", zap.Error(mErr))
			}
			continue
		}

		t, err := h.reconcile(ctx, recLog, rec.ID, strings.TrimSpace(n.Order.OrderID), &n)
		switch {
		case err != nil:
			res.Failed++
		case t.Applied:
			res.Applied++
		default:
			res.Ignored++
		}
	}

	log.Info("webhook replay finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("applied", res.Applied),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (h *Handler) reply(w http.ResponseWriter, status int, code, message string) {
	errType := 0
	if status != http.StatusOK {
		errType = 1
		h.Metrics.Webhook(strings.ToLower(code))
	}
	utils.WriteJSON(w, status, Response{ErrorType: errType, ErrorCode: code, ErrorMessage: message})
}

// ParseNotification decodes a JSON body, or a form body whose "data" field
// holds the JSON. It returns the JSON document that was decoded.
func ParseNotification(contentType string, body []byte) (*payment.Notification, json.RawMessage, error) {
	payload := body

	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, nil, errors.Wrap(err, "parse form body")
		}
		data := form.Get("data")
		if data == "" {
			data = "{}"
		}
		payload = []byte(data)
	}

	var n payment.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, nil, errors.Wrap(err, "decode notification")
	}
	return &n, json.RawMessage(payload), nil
}

// EventID identifies a notification by the hash of its raw body, so a
// redelivered notification maps to the same audit row.
func EventID(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func eventType(status int) string {
	return "status_" + strconv.Itoa(status)
}

