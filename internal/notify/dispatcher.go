package notify

import (
	"context"
	"sync"
	"time"

	"nextaz-be/internal/logger"
	"nextaz-be/internal/metrics"
	"nextaz-be/internal/order"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OrderLoader is the slice of the order service the dispatcher needs.
type OrderLoader interface {
	GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error)
}

// Dispatcher sends order confirmation emails off the request path.
type Dispatcher struct {
	orders  OrderLoader
	sender  Sender
	metrics *metrics.Metrics
	cfg     DispatcherConfig

	queue chan string
	sleep func(ctx context.Context, d time.Duration) error

	// stopped is set once Run starts its final drain; guarded by mu.
	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(orders OrderLoader, sender Sender, m *metrics.Metrics, cfg DispatcherConfig) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		orders:  orders,
		sender:  sender,
		metrics: m,
		cfg:     cfg,
		queue:   make(chan string, cfg.QueueSize),
		sleep:   sleepCtx,
	}
}

// Enqueue schedules the confirmation emails for an order. It never blocks;
// false means the job was dropped because the queue was full or the
// dispatcher has already stopped.
func (d *Dispatcher) Enqueue(orderNumber string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		logger.L().Warn("email dispatcher stopped, rejecting confirmation",
			logger.OrderNumber(orderNumber),
		)
		d.metrics.Email("queue", "rejected")
		return false
	}

	select {
	case d.queue <- orderNumber:
		return true
	default:
		logger.L().Warn("email queue full, dropping confirmation",
			logger.OrderNumber(orderNumber),
			zap.Int("queue_size", cap(d.queue)),
		)
		d.metrics.Email("queue", "dropped")
		return false
	}
}

// Run processes queued jobs until ctx is done, then drains what is left.
// Cancel ctx only once no producer can enqueue any more.
func (d *Dispatcher) Run(ctx context.Context) error {
	log := logger.L().With(zap.String("layer", "notify"))
	log.Info("email dispatcher started", zap.Int("queue_size", cap(d.queue)))

	for {
		select {
		case n := <-d.queue:
			d.process(ctx, n)
		case <-ctx.Done():
			// no Enqueue can add work after this, so the drain below sees every job
			d.mu.Lock()
			d.stopped = true
			d.mu.Unlock()

			drainCtx := context.WithoutCancel(ctx)
			for {
				select {
				case n := <-d.queue:
					d.process(drainCtx, n)
				default:
					log.Info("email dispatcher stopped")
					return nil
				}
			}
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, orderNumber string) {
	if err := d.SendConfirmation(ctx, orderNumber); err != nil {
		logger.L().Error("order confirmation emails failed",
			logger.OrderNumber(orderNumber),
			zap.Error(err),
		)
	}
}

// SendConfirmation loads the order and sends the customer and admin emails
// concurrently. One failing does not cancel the other.
func (d *Dispatcher) SendConfirmation(ctx context.Context, orderNumber string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "notify"),
		zap.String("method", "SendConfirmation"),
		logger.OrderNumber(orderNumber),
	)

	o, err := d.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		d.metrics.Email("load", "failed")
		return errors.Wrap(err, "load order")
	}

	customer, err := CustomerConfirmation(o, d.cfg.From)
	if err != nil {
		return err
	}
	admin, err := AdminNotification(o, d.cfg.From, d.cfg.AdminEmail)
	if err != nil {
		return err
	}

	var g errgroup.Group
	for _, msg := range []Message{customer, admin} {
		g.Go(func() error {
			return d.deliver(ctx, log, msg)
		})
	}
	return g.Wait()
}

// deliver retries a single message with doubling backoff.
func (d *Dispatcher) deliver(ctx context.Context, log *zap.Logger, msg Message) error {
	log = log.With(zap.String("kind", msg.Kind))
	backoff := d.cfg.Backoff

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		id, err := d.sender.Send(ctx, msg)
		if err == nil {
			log.Info("email sent", zap.String("message_id", id), zap.Int("attempt", attempt))
			d.metrics.Email(msg.Kind, "sent")
			return nil
		}
		lastErr = err

		log.Warn("email send failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == d.cfg.MaxAttempts {
			break
		}
		d.metrics.Email(msg.Kind, "retry")
		if err := d.sleep(ctx, backoff); err != nil {
			lastErr = errors.Wrap(err, "retry wait")
			break
		}
		backoff *= 2
	}

	d.metrics.Email(msg.Kind, "failed")
	return errors.Wrapf(lastErr, "send %s email", msg.Kind)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
