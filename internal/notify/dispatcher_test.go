package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"nextaz-be/internal/logger"
	"nextaz-be/internal/metrics"
	"nextaz-be/internal/order"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockOrderLoader struct {
	mock.Mock
}

func (m *MockOrderLoader) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func kindIs(kind string) interface{} {
	return mock.MatchedBy(func(msg Message) bool { return msg.Kind == kind })
}

func newTestDispatcher(loader OrderLoader, sender Sender, m *metrics.Metrics, queue int) (*Dispatcher, *[]time.Duration) {
	d := NewDispatcher(loader, sender, m, DispatcherConfig{
		From:        "Nextaz <comenzi@nextaz.ro>",
		AdminEmail:  "contact@nextaz.ro",
		QueueSize:   queue,
		MaxAttempts: 3,
		Backoff:     time.Second,
	})
	var waits []time.Duration
	d.sleep = func(_ context.Context, dur time.Duration) error {
		waits = append(waits, dur)
		return nil
	}
	return d, &waits
}

func TestDispatcher_SendConfirmation(t *testing.T) {
	t.Run("sends customer and admin emails", func(t *testing.T) {
		loader := new(MockOrderLoader)
		sender := new(MockSender)
		m := metrics.New()
		d, _ := newTestDispatcher(loader, sender, m, 1)

		loader.On("GetByNumber", mock.Anything, "2026-000042").Return(testOrder(), nil).Once()
		sender.On("Send", mock.Anything, kindIs(KindCustomer)).Return("msg-1", nil).Once()
		sender.On("Send", mock.Anything, kindIs(KindAdmin)).Return("msg-2", nil).Once()

		require.NoError(t, d.SendConfirmation(context.Background(), "2026-000042"))

		assert.Equal(t, float64(1), testutil.ToFloat64(m.Emails.WithLabelValues(KindCustomer, "sent")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Emails.WithLabelValues(KindAdmin, "sent")))
		loader.AssertExpectations(t)
		sender.AssertExpectations(t)
	})

	t.Run("retries with doubling backoff", func(t *testing.T) {
		loader := new(MockOrderLoader)
		sender := new(MockSender)
		d, waits := newTestDispatcher(loader, sender, nil, 1)

		loader.On("GetByNumber", mock.Anything, "2026-000042").Return(testOrder(), nil).Once()
		sender.On("Send", mock.Anything, kindIs(KindCustomer)).Return("", errors.New("429")).Twice()
		sender.On("Send", mock.Anything, kindIs(KindCustomer)).Return("msg-1", nil).Once()
		sender.On("Send", mock.Anything, kindIs(KindAdmin)).Return("msg-2", nil).Once()

		require.NoError(t, d.SendConfirmation(context.Background(), "2026-000042"))
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
		sender.AssertExpectations(t)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		loader := new(MockOrderLoader)
		sender := new(MockSender)
		m := metrics.New()
		d, _ := newTestDispatcher(loader, sender, m, 1)

		loader.On("GetByNumber", mock.Anything, "2026-000042").Return(testOrder(), nil).Once()
		sender.On("Send", mock.Anything, kindIs(KindCustomer)).Return("msg-1", nil).Once()
		sender.On("Send", mock.Anything, kindIs(KindAdmin)).Return("", errors.New("provider down")).Times(3)

		err := d.SendConfirmation(context.Background(), "2026-000042")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "send admin email")
		assert.Equal(t, float64(1), testutil.ToFloat64(m.Emails.WithLabelValues(KindAdmin, "failed")))
		assert.Equal(t, float64(2), testutil.ToFloat64(m.Emails.WithLabelValues(KindAdmin, "retry")))
		sender.AssertExpectations(t)
	})

	t.Run("order load failure sends nothing", func(t *testing.T) {
		loader := new(MockOrderLoader)
		sender := new(MockSender)
		d, _ := newTestDispatcher(loader, sender, nil, 1)

		loader.On("GetByNumber", mock.Anything, "2026-999999").Return(nil, order.ErrOrderNotFound).Once()

		err := d.SendConfirmation(context.Background(), "2026-999999")

		assert.ErrorIs(t, err, order.ErrOrderNotFound)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})
}

func TestDispatcher_Enqueue(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	defer logger.Replace(zap.New(core))()

	m := metrics.New()
	d, _ := newTestDispatcher(new(MockOrderLoader), new(MockSender), m, 1)

	assert.True(t, d.Enqueue("2026-000001"))
	assert.False(t, d.Enqueue("2026-000002"))

	assert.Equal(t, 1, logs.FilterMessage("email queue full, dropping confirmation").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Emails.WithLabelValues("queue", "dropped")))
}

func TestDispatcher_RunDrainsOnShutdown(t *testing.T) {
	loader := new(MockOrderLoader)
	sender := new(MockSender)
	d, _ := newTestDispatcher(loader, sender, nil, 2)

	loader.On("GetByNumber", mock.Anything, mock.Anything).Return(testOrder(), nil).Twice()
	sender.On("Send", mock.Anything, mock.Anything).Return("id", nil).Times(4)

	require.True(t, d.Enqueue("2026-000042"))
	require.True(t, d.Enqueue("2026-000043"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, d.Run(ctx))
	assert.Empty(t, d.queue)
	loader.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	defer logger.Replace(zap.New(core))()

	m := metrics.New()
	d, _ := newTestDispatcher(new(MockOrderLoader), new(MockSender), m, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	assert.False(t, d.Enqueue("2026-000099"))
	assert.Empty(t, d.queue)
	assert.Equal(t, 1, logs.FilterMessage("email dispatcher stopped, rejecting confirmation").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Emails.WithLabelValues("queue", "rejected")))
}
