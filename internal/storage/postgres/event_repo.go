package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
)

const eventColumns = `id, event_id, type, order_number, payload, processed, processed_at, error, created_at`

func scanEvent(row pgx.Row) (*model.PaymentEvent, error) {
	var e model.PaymentEvent
	err := row.Scan(&e.ID, &e.EventID, &e.Type, &e.OrderNumber, &e.Payload,
		&e.Processed, &e.ProcessedAt, &e.Error, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert records a verified notification before any handler runs. The
// unique constraint on event_id decides races between concurrent
// redeliveries: the loser gets inserted=false and no write happens.
func (r *eventRepository) Insert(ctx context.Context, eventID, eventType string, orderNumber *string, payload []byte) (bool, error) {
	const query = `INSERT INTO payment_events (event_id, type, order_number, payload)
                   VALUES ($1, $2, $3, $4)
                   ON CONFLICT (event_id) DO NOTHING`
	tag, err := r.storage.pool.Exec(ctx, query, eventID, eventType, orderNumber, payload)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *eventRepository) Get(ctx context.Context, eventID string) (*model.PaymentEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM payment_events WHERE event_id=$1`
	event, err := scanEvent(r.storage.pool.QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *eventRepository) MarkProcessed(ctx context.Context, eventID string, procErr *string) error {
	const query = `UPDATE payment_events
                   SET processed=TRUE, processed_at=NOW(), error=$2
                   WHERE event_id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, eventID, procErr)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *eventRepository) ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]model.PaymentEvent, error) {
	query := `SELECT ` + eventColumns + `
              FROM payment_events
              WHERE NOT processed AND created_at < $1
              ORDER BY created_at
              LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.PaymentEvent
	for rows.Next() {
		var e model.PaymentEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.Type, &e.OrderNumber, &e.Payload,
			&e.Processed, &e.ProcessedAt, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
