package payment

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-faster/errors"
)

// Repository is the payment_webhooks audit log.
type Repository interface {
	SavePaymentWebhook(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		orderNumber string,
		payload json.RawMessage,
		signatureValid bool,
	) (webhookID int64, isDuplicate bool, err error)

	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
	ListUnprocessedWebhooks(ctx context.Context, provider string, limit int) ([]WebhookRecord, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePaymentWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	orderNumber string,
	payload json.RawMessage,
	signatureValid bool,
) (int64, bool, error) {

	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		external_id,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id)
	DO NOTHING
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		eventID,
		eventType,
		orderNumber,
		signatureValid,
		[]byte(payload),
	).Scan(&id)

	if err != nil {
		// Duplicate webhook → idempotent success
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, errors.Wrap(err, "save payment webhook")
	}

	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(
	ctx context.Context,
	webhookID int64,
) error {

	const q = `
	UPDATE payment_webhooks
	SET processed_at = now(), process_error = NULL
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return errors.Wrap(err, "mark webhook processed")
}

func (r *repository) MarkWebhookFailed(
	ctx context.Context,
	webhookID int64,
	reason string,
) error {

	const q = `
	UPDATE payment_webhooks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return errors.Wrap(err, "mark webhook failed")
}

// ListUnprocessedWebhooks returns the oldest records never stamped processed.
func (r *repository) ListUnprocessedWebhooks(ctx context.Context, provider string, limit int) ([]WebhookRecord, error) {
	const q = `
	SELECT id, provider, event_id, event_type, external_id, payload, signature_valid, received_at
	FROM payment_webhooks
	WHERE provider = $1 AND processed_at IS NULL
	ORDER BY received_at ASC
	LIMIT $2;
	`

	rows, err := r.db.QueryContext(ctx, q, provider, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list unprocessed webhooks")
	}
	defer rows.Close()

	var out []WebhookRecord
	for rows.Next() {
		var (
			rec         WebhookRecord
			orderNumber sql.NullString
			payload     []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.Provider, &rec.EventID, &rec.EventType,
			&orderNumber, &payload, &rec.SignatureValid, &rec.ReceivedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan webhook")
		}
		rec.OrderNumber = orderNumber.String
		rec.Payload = json.RawMessage(payload)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate webhooks")
	}
	return out, nil
}
