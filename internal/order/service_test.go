package order

import (
	"context"
	"errors"
	"testing"

	"nextaz-be/internal/logger"
	"nextaz-be/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateOrder(ctx context.Context, o *Order) (*Created, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Created), args.Error(1)
}

func (m *MockRepository) UpdatePaymentReference(ctx context.Context, orderNumber, reference string) error {
	return m.Called(ctx, orderNumber, reference).Error(0)
}

func (m *MockRepository) ApplyPaymentOutcome(ctx context.Context, orderNumber string, target Outcome, reference string) (Transition, error) {
	args := m.Called(ctx, orderNumber, target, reference)
	return args.Get(0).(Transition), args.Error(1)
}

func (m *MockRepository) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) MarkShipped(ctx context.Context, orderNumber string, s Shipment) (Transition, error) {
	args := m.Called(ctx, orderNumber, s)
	return args.Get(0).(Transition), args.Error(1)
}

func validInput() CreateOrderInput {
	return CreateOrderInput{
		Customer: Customer{Email: "ana@example.com", Name: "Ana Pop", Type: CustomerPerson},
		Billing:  BillingAddress{Name: "Ana Pop", Street: "Str. 1", City: "Iasi"},
		Shipping: ShippingAddress{Name: "Ana Pop", Street: "Str. 1", City: "Iasi"},
		Items:    []Item{{ProductID: "wine-1", Quantity: 6, UnitPrice: decimal.NewFromInt(45), TotalPrice: decimal.NewFromInt(270)}},
		Subtotal: decimal.NewFromInt(270),
		Deposit:  decimal.NewFromInt(3),
		Total:    decimal.NewFromInt(273),
		Currency: "RON",
	}
}

func TestService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil)

		repo.On("CreateOrder", ctx, mock.MatchedBy(func(o *Order) bool {
			return o.Status == StatusPending &&
				o.PaymentStatus == PaymentPending &&
				o.PaymentMethod == PaymentMethodNetopia &&
				o.Billing.Country == DefaultCountry &&
				o.Shipping.Country == DefaultCountry &&
				o.TaxAmount.Equal(decimal.NewFromInt(3)) &&
				o.TotalAmount.Equal(decimal.NewFromInt(273)) &&
				o.ShippingCost.IsZero()
		})).Return(&Created{ID: "id-1", OrderNumber: "2026-000001"}, nil)

		created, err := svc.CreateOrder(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, "2026-000001", created.OrderNumber)
		repo.AssertExpectations(t)
	})

	t.Run("EmptyOrder", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil)

		in := validInput()
		in.Items = nil

		_, err := svc.CreateOrder(ctx, in)
		assert.ErrorIs(t, err, ErrEmptyOrder)
		repo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("ZeroTotal", func(t *testing.T) {
		svc := NewService(new(MockRepository), nil)

		in := validInput()
		in.Total = decimal.Zero

		_, err := svc.CreateOrder(ctx, in)
		assert.ErrorIs(t, err, ErrEmptyOrder)
	})

	t.Run("PersistenceError", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil)

		repo.On("CreateOrder", ctx, mock.Anything).
			Return(nil, &PersistenceError{Op: "insert order", Err: errors.New("unique violation")})

		_, err := svc.CreateOrder(ctx, validInput())
		var pe *PersistenceError
		assert.ErrorAs(t, err, &pe)
	})
}

func TestService_RecordPaymentReference(t *testing.T) {
	ctx := context.Background()

	t.Run("Stored", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("UpdatePaymentReference", ctx, "2026-000001", "ntp-1").Return(nil)

		assert.NoError(t, NewService(repo, nil).RecordPaymentReference(ctx, "2026-000001", "ntp-1"))
		repo.AssertExpectations(t)
	})

	t.Run("EmptyReferenceSkipped", func(t *testing.T) {
		repo := new(MockRepository)

		assert.NoError(t, NewService(repo, nil).RecordPaymentReference(ctx, "2026-000001", ""))
		repo.AssertNotCalled(t, "UpdatePaymentReference", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("FailureLogged", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		restore := logger.Replace(zap.New(core))
		defer restore()

		repo := new(MockRepository)
		repo.On("UpdatePaymentReference", ctx, "2026-000001", "ntp-1").Return(errors.New("db down"))

		err := NewService(repo, nil).RecordPaymentReference(ctx, "2026-000001", "ntp-1")
		assert.Error(t, err)
		assert.Equal(t, 1, logs.FilterMessage("failed to store payment reference").Len())
	})
}

func TestService_ApplyPaymentOutcome(t *testing.T) {
	ctx := context.Background()
	paid := Outcome{StatusConfirmed, PaymentPaid}

	t.Run("RecordsMetrics", func(t *testing.T) {
		m := metrics.New()
		repo := new(MockRepository)
		tr := Decide(Outcome{StatusPending, PaymentPending}, paid)
		repo.On("ApplyPaymentOutcome", ctx, "2026-000001", paid, "ntp-1").Return(tr, nil)

		got, err := NewService(repo, m).ApplyPaymentOutcome(ctx, "2026-000001", paid, "ntp-1")
		require.NoError(t, err)
		assert.True(t, got.Applied)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("true", "applied")))
	})

	t.Run("Ignored", func(t *testing.T) {
		repo := new(MockRepository)
		tr := Decide(paid, Outcome{StatusPending, PaymentPending})
		repo.On("ApplyPaymentOutcome", ctx, "2026-000001", mock.Anything, "").Return(tr, nil)

		got, err := NewService(repo, nil).ApplyPaymentOutcome(ctx, "2026-000001", Outcome{StatusPending, PaymentPending}, "")
		require.NoError(t, err)
		assert.False(t, got.Applied)
		assert.Equal(t, paid, got.To)
	})

	t.Run("Error", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ApplyPaymentOutcome", ctx, "missing", paid, "").Return(Transition{}, ErrOrderNotFound)

		_, err := NewService(repo, nil).ApplyPaymentOutcome(ctx, "missing", paid, "")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestService_MarkShipped(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingAWB", func(t *testing.T) {
		repo := new(MockRepository)

		_, err := NewService(repo, nil).MarkShipped(ctx, "2026-000001", Shipment{AWBNumber: "  "})
		assert.ErrorIs(t, err, ErrInvalidShipment)
		repo.AssertNotCalled(t, "MarkShipped", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		s := Shipment{AWBNumber: "AWB1", CourierName: "Sameday"}
		repo.On("MarkShipped", ctx, "2026-000001", s).
			Return(Transition{To: Outcome{StatusSent, PaymentPaid}, Applied: true, Reason: ReasonApplied}, nil)

		tr, err := NewService(repo, nil).MarkShipped(ctx, "2026-000001", Shipment{AWBNumber: " AWB1 ", CourierName: "Sameday"})
		require.NoError(t, err)
		assert.Equal(t, StatusSent, tr.To.Status)
	})
}

func TestService_GetByNumber(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetByNumber", ctx, "2026-000001").Return(&Order{OrderNumber: "2026-000001"}, nil)
	repo.On("GetByNumber", ctx, "missing").Return(nil, ErrOrderNotFound)

	svc := NewService(repo, nil)

	o, err := svc.GetByNumber(ctx, "2026-000001")
	require.NoError(t, err)
	assert.Equal(t, "2026-000001", o.OrderNumber)

	_, err = svc.GetByNumber(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
