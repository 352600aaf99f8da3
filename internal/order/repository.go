package order

import (
	"context"
	"database/sql"
	"time"

	"nextaz-be/internal/logger"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	CreateOrder(ctx context.Context, o *Order) (*Created, error)
	UpdatePaymentReference(ctx context.Context, orderNumber, reference string) error
	ApplyPaymentOutcome(ctx context.Context, orderNumber string, target Outcome, reference string) (Transition, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	MarkShipped(ctx context.Context, orderNumber string, s Shipment) (Transition, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id, order_number,
	customer_email, customer_phone, customer_name, customer_type,
	billing_name, billing_street, billing_city, billing_county, billing_postal_code, billing_country,
	billing_company_name, billing_vat_number, billing_registration_number,
	shipping_name, shipping_street, shipping_city, shipping_county, shipping_postal_code, shipping_country,
	shipping_phone, shipping_notes,
	items, subtotal, shipping_cost, discount_amount, tax_amount, total_amount, currency,
	status, payment_method, payment_status, payment_reference,
	awb_number, courier_name, tracking_url,
	paid_at, shipped_at, delivered_at, created_at, updated_at`

func (r *repository) CreateOrder(ctx context.Context, o *Order) (*Created, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
	)

	items, err := marshalItems(o.Items)
	if err != nil {
		return nil, errors.Wrap(err, "encode order items")
	}

	id := o.ID
	if id == "" {
		id = uuid.NewString()
	}

	// order_number comes from the sequence so concurrent checkouts never collide
	var number string
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, order_number,
			customer_email, customer_phone, customer_name, customer_type,
			billing_name, billing_street, billing_city, billing_county, billing_postal_code, billing_country,
			billing_company_name, billing_vat_number, billing_registration_number,
			shipping_name, shipping_street, shipping_city, shipping_county, shipping_postal_code, shipping_country,
			shipping_phone, shipping_notes,
			items, subtotal, shipping_cost, discount_amount, tax_amount, total_amount, currency,
			status, payment_method, payment_status
		) VALUES (
			$1, to_char(now(), 'YYYY') || '-' || lpad(nextval('order_number_seq')::text, 6, '0'),
			$2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18, $19, $20,
			$21, $22,
			$23, $24, $25, $26, $27, $28, $29,
			$30, $31, $32
		)
		RETURNING order_number
	`,
		id,
		o.Customer.Email, nullIfEmpty(o.Customer.Phone), o.Customer.Name, string(o.Customer.Type),
		o.Billing.Name, o.Billing.Street, o.Billing.City, nullIfEmpty(o.Billing.County), o.Billing.PostalCode, o.Billing.Country,
		nullIfEmpty(o.Billing.CompanyName), nullIfEmpty(o.Billing.VATNumber), nullIfEmpty(o.Billing.RegistrationNumber),
		o.Shipping.Name, o.Shipping.Street, o.Shipping.City, nullIfEmpty(o.Shipping.County), o.Shipping.PostalCode, o.Shipping.Country,
		nullIfEmpty(o.Shipping.Phone), nullIfEmpty(o.Shipping.Notes),
		items, o.Subtotal, o.ShippingCost, o.DiscountAmount, o.TaxAmount, o.TotalAmount, o.Currency,
		string(o.Status), nullIfEmpty(o.PaymentMethod), string(o.PaymentStatus),
	).Scan(&number)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return nil, persistence("insert order", err)
	}

	return &Created{ID: id, OrderNumber: number}, nil
}

func (r *repository) UpdatePaymentReference(ctx context.Context, orderNumber, reference string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_reference = $2, updated_at = now()
		WHERE order_number = $1
	`, orderNumber, reference)
	if err != nil {
		return persistence("update payment reference", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return persistence("update payment reference", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ApplyPaymentOutcome locks the row, decides, and writes in one transaction,
// so concurrent notifications for one order are serialised.
func (r *repository) ApplyPaymentOutcome(
	ctx context.Context,
	orderNumber string,
	target Outcome,
	reference string,
) (Transition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Transition{}, persistence("begin", err)
	}
	defer tx.Rollback()

	// 1️⃣ Lock current state
	var current Outcome
	err = tx.QueryRowContext(ctx, `
		SELECT status, payment_status
		FROM orders
		WHERE order_number = $1
		FOR UPDATE
	`, orderNumber).Scan(&current.Status, &current.PaymentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return Transition{}, ErrOrderNotFound
	}
	if err != nil {
		return Transition{}, persistence("lock order", err)
	}

	// 2️⃣ Decide
	t := Decide(current, target)
	if !t.Applied {
		return t, nil
	}

	// 3️⃣ Write
	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
			payment_status = $3,
			payment_reference = COALESCE(NULLIF($4, ''), payment_reference),
			paid_at = CASE WHEN $3 = 'paid' THEN COALESCE(paid_at, now()) ELSE paid_at END,
			updated_at = now()
		WHERE order_number = $1
	`, orderNumber, string(target.Status), string(target.PaymentStatus), reference)
	if err != nil {
		return Transition{}, persistence("apply payment outcome", err)
	}

	if err := tx.Commit(); err != nil {
		return Transition{}, persistence("commit", err)
	}
	return t, nil
}

func (r *repository) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, persistence("get order", err)
	}
	return o, nil
}

func (r *repository) MarkShipped(ctx context.Context, orderNumber string, s Shipment) (Transition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Transition{}, persistence("begin", err)
	}
	defer tx.Rollback()

	var current Outcome
	err = tx.QueryRowContext(ctx, `
		SELECT status, payment_status
		FROM orders
		WHERE order_number = $1
		FOR UPDATE
	`, orderNumber).Scan(&current.Status, &current.PaymentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return Transition{}, ErrOrderNotFound
	}
	if err != nil {
		return Transition{}, persistence("lock order", err)
	}

	if current.Status != StatusConfirmed && current.Status != StatusProcessing {
		return Transition{From: current, To: current}, errors.Wrapf(ErrInvalidTransition, "cannot ship order in status %s", current.Status)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = 'sent',
			awb_number = $2,
			courier_name = NULLIF($3, ''),
			tracking_url = NULLIF($4, ''),
			shipped_at = now(),
			updated_at = now()
		WHERE order_number = $1
	`, orderNumber, s.AWBNumber, s.CourierName, s.TrackingURL)
	if err != nil {
		return Transition{}, persistence("mark shipped", err)
	}

	if err := tx.Commit(); err != nil {
		return Transition{}, persistence("commit", err)
	}

	return Transition{
		From:    current,
		To:      Outcome{Status: StatusSent, PaymentStatus: current.PaymentStatus},
		Applied: true,
		Reason:  ReasonApplied,
	}, nil
}

func scanOrder(row *sql.Row) (*Order, error) {
	var (
		o Order

		phone, county, companyName, vat, regNo sql.NullString

		shipCounty, shipPhone, shipNotes, paymentMethod, payRef sql.NullString

		awb, courier, tracking sql.NullString

		paidAt, shippedAt, deliveredAt sql.NullTime

		subtotal, shippingCost, discount, tax, total decimal.Decimal

		customerType, status, paymentStatus string

		items []byte
	)

	err := row.Scan(
		&o.ID, &o.OrderNumber,
		&o.Customer.Email, &phone, &o.Customer.Name, &customerType,
		&o.Billing.Name, &o.Billing.Street, &o.Billing.City, &county, &o.Billing.PostalCode, &o.Billing.Country,
		&companyName, &vat, &regNo,
		&o.Shipping.Name, &o.Shipping.Street, &o.Shipping.City, &shipCounty, &o.Shipping.PostalCode, &o.Shipping.Country,
		&shipPhone, &shipNotes,
		&items, &subtotal, &shippingCost, &discount, &tax, &total, &o.Currency,
		&status, &paymentMethod, &paymentStatus, &payRef,
		&awb, &courier, &tracking,
		&paidAt, &shippedAt, &deliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Items, err = unmarshalItems(items)
	if err != nil {
		return nil, err
	}

	o.Customer.Phone = phone.String
	o.Customer.Type = CustomerType(customerType)
	o.Billing.County = county.String
	o.Billing.CompanyName = companyName.String
	o.Billing.VATNumber = vat.String
	o.Billing.RegistrationNumber = regNo.String
	o.Shipping.County = shipCounty.String
	o.Shipping.Phone = shipPhone.String
	o.Shipping.Notes = shipNotes.String

	o.Subtotal, o.ShippingCost, o.DiscountAmount, o.TaxAmount, o.TotalAmount = subtotal, shippingCost, discount, tax, total
	o.Status = OrderStatus(status)
	o.PaymentMethod = paymentMethod.String
	o.PaymentStatus = PaymentStatus(paymentStatus)
	o.PaymentReference = payRef.String
	o.AWBNumber = awb.String
	o.CourierName = courier.String
	o.TrackingURL = tracking.String
	o.PaidAt = timePtr(paidAt)
	o.ShippedAt = timePtr(shippedAt)
	o.DeliveredAt = timePtr(deliveredAt)

	return &o, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
