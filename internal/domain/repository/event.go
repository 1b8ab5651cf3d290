package repository

import (
	"context"
	"time"

	"github.com/mkravets/bookpress/internal/domain/model"
)

// EventRepository is the Event Ledger: one row per provider
// notification, keyed by the provider-assigned event identifier.
type EventRepository interface {
	// Insert records a freshly verified notification. The insert is
	// atomic per event identifier: when a row already exists the call
	// reports inserted=false and performs no write, so concurrent
	// redeliveries race safely on the unique constraint.
	Insert(ctx context.Context, eventID, eventType string, orderNumber *string, payload []byte) (inserted bool, err error)

	Get(ctx context.Context, eventID string) (*model.PaymentEvent, error)

	// MarkProcessed closes the ledger row, recording the handler error
	// message when handling failed. Rows are never deleted.
	MarkProcessed(ctx context.Context, eventID string, procErr *string) error

	// ListUnprocessed returns rows still open past the grace period,
	// oldest first, for the reconciliation sweep.
	ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]model.PaymentEvent, error)
}
