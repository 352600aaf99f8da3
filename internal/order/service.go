package order

import (
	"context"
	"strings"

	"nextaz-be/internal/logger"
	"nextaz-be/internal/metrics"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Created, error)
	RecordPaymentReference(ctx context.Context, orderNumber, reference string) error
	ApplyPaymentOutcome(ctx context.Context, orderNumber string, target Outcome, reference string) (Transition, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	MarkShipped(ctx context.Context, orderNumber string, s Shipment) (Transition, error)
}

type service struct {
	repo    Repository
	metrics *metrics.Metrics
}

func NewService(repo Repository, m *metrics.Metrics) Service {
	return &service{repo: repo, metrics: m}
}

func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Created, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.String("customer_email", in.Customer.Email),
	)

	if len(in.Items) == 0 || !in.Total.IsPositive() {
		log.Warn("refusing to create empty order")
		return nil, ErrEmptyOrder
	}

	o := &Order{
		Customer:       in.Customer,
		Billing:        in.Billing,
		Shipping:       in.Shipping,
		Items:          in.Items,
		Subtotal:       in.Subtotal,
		ShippingCost:   decimal.Zero,
		DiscountAmount: decimal.Zero,
		TaxAmount:      in.Deposit,
		TotalAmount:    in.Total,
		Currency:       in.Currency,
		Status:         StatusPending,
		PaymentMethod:  PaymentMethodNetopia,
		PaymentStatus:  PaymentPending,
	}
	if strings.TrimSpace(o.Billing.Country) == "" {
		o.Billing.Country = DefaultCountry
	}
	if strings.TrimSpace(o.Shipping.Country) == "" {
		o.Shipping.Country = DefaultCountry
	}

	created, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, err
	}

	log.Info("order created",
		logger.OrderNumber(created.OrderNumber),
		zap.String("total", in.Total.StringFixed(2)),
		zap.Int("item_count", len(in.Items)),
	)
	return created, nil
}

// RecordPaymentReference stores the gateway session id. Callers treat a
// failure as non-fatal.
func (s *service) RecordPaymentReference(ctx context.Context, orderNumber, reference string) error {
	if reference == "" {
		return nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RecordPaymentReference"),
		logger.OrderNumber(orderNumber),
	)

	if err := s.repo.UpdatePaymentReference(ctx, orderNumber, reference); err != nil {
		log.Warn("failed to store payment reference", zap.String("reference", reference), zap.Error(err))
		return err
	}
	return nil
}

func (s *service) ApplyPaymentOutcome(
	ctx context.Context,
	orderNumber string,
	target Outcome,
	reference string,
) (Transition, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ApplyPaymentOutcome"),
		logger.OrderNumber(orderNumber),
		zap.String("target_status", string(target.Status)),
		zap.String("target_payment_status", string(target.PaymentStatus)),
	)

	t, err := s.repo.ApplyPaymentOutcome(ctx, orderNumber, target, reference)
	if err != nil {
		log.Error("failed to apply payment outcome", zap.Error(err))
		return t, err
	}

	s.metrics.Transition(t.Applied, string(t.Reason))

	if t.Applied {
		log.Info("order status updated",
			zap.String("from_status", string(t.From.Status)),
			zap.String("from_payment_status", string(t.From.PaymentStatus)),
		)
	} else {
		log.Info("payment outcome ignored",
			zap.String("reason", string(t.Reason)),
			zap.String("current_status", string(t.From.Status)),
			zap.String("current_payment_status", string(t.From.PaymentStatus)),
		)
	}
	return t, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, orderNumber)
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			logger.FromCtx(ctx).Error("failed to load order", logger.OrderNumber(orderNumber), zap.Error(err))
		}
		return nil, err
	}
	return o, nil
}

func (s *service) MarkShipped(ctx context.Context, orderNumber string, sh Shipment) (Transition, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MarkShipped"),
		logger.OrderNumber(orderNumber),
	)

	sh.AWBNumber = strings.TrimSpace(sh.AWBNumber)
	if sh.AWBNumber == "" {
		return Transition{}, ErrInvalidShipment
	}

	t, err := s.repo.MarkShipped(ctx, orderNumber, sh)
	if err != nil {
		log.Warn("failed to mark order shipped", zap.Error(err))
		return t, err
	}

	log.Info("order shipped", zap.String("awb", sh.AWBNumber), zap.String("courier", sh.CourierName))
	return t, nil
}
