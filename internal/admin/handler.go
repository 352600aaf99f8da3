package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nextaz-be/internal/auth"
	"nextaz-be/internal/logger"
	"nextaz-be/internal/order"
	"nextaz-be/internal/payment/webhook"
	"nextaz-be/internal/utils"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const (
	defaultReplayLimit = 50
	maxReplayLimit     = 500
)

// Replayer re-runs stored payment notifications.
type Replayer interface {
	Replay(ctx context.Context, limit int) (webhook.ReplayResult, error)
}

type Config struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	SecureCookie bool
}

type Handler struct {
	orders   order.Service
	replayer Replayer
	cfg      Config
	now      func() time.Time
}

func NewHandler(orders order.Service, replayer Replayer, cfg Config) *Handler {
	return &Handler{orders: orders, replayer: replayer, cfg: cfg, now: time.Now}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(zap.String("layer", "admin"), zap.String("method", "Login"))

	var req LoginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passwordOK := auth.CheckPassword(req.Password, h.cfg.PasswordHash)
	if req.Username != h.cfg.Username || !passwordOK {
		log.Warn("admin login failed", zap.String("username", req.Username), zap.String("ip", utils.ClientIP(r)))
		utils.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expires, err := auth.GenerateToken(h.cfg.JWTSecret, req.Username, h.now())
	if err != nil {
		log.Error("failed to issue admin token", zap.Error(err))
		utils.WriteJSONError(w, "login unavailable", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, auth.SessionCookie(token, int(auth.TokenTTL.Seconds()), h.cfg.SecureCookie))
	log.Info("admin logged in", zap.String("username", req.Username))
	utils.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := strings.TrimSpace(r.PathValue("orderNumber"))

	o, err := h.orders.GetByNumber(r.Context(), orderNumber)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderNumber := strings.TrimSpace(r.PathValue("orderNumber"))
	admin, _ := utils.AdminFromContext(ctx)

	var req ShipmentRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := h.orders.MarkShipped(ctx, orderNumber, order.Shipment{
		AWBNumber:   req.AWBNumber,
		CourierName: req.CourierName,
		TrackingURL: req.TrackingURL,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	logger.FromCtx(ctx).Info("order marked shipped",
		logger.OrderNumber(orderNumber),
		zap.String("admin", admin),
		zap.Bool("applied", t.Applied),
	)
	utils.WriteJSON(w, http.StatusOK, ShipmentResponse{
		OrderNumber: orderNumber,
		Status:      string(t.To.Status),
		Applied:     t.Applied,
	})
}

func (h *Handler) ReplayWebhooks(w http.ResponseWriter, r *http.Request) {
	limit := defaultReplayLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.WriteJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxReplayLimit)
	}

	res, err := h.replayer.Replay(r.Context(), limit)
	if err != nil {
		utils.WriteJSONError(w, "replay failed", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, order.ErrInvalidShipment):
		utils.WriteJSONError(w, "awbNumber is required", http.StatusBadRequest)
	case errors.Is(err, order.ErrInvalidTransition):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	default:
		logger.FromCtx(r.Context()).Error("admin order operation failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteJSONError(w, "internal error", http.StatusInternalServerError)
	}
}
