package repository

import (
	"context"
	"time"

	"github.com/mkravets/bookpress/internal/domain/model"
)

// NewOrder carries the fields required to create a pending order at
// checkout-session creation time. The total is computed server-side
// before this point; client prices are never trusted.
type NewOrder struct {
	Number      string
	SessionID   string
	Email       string
	Items       []model.LineItem
	Shipping    *model.ShippingAddress
	Currency    string
	AmountTotal int64
	Metadata    map[string]any
}

// OrderRepository owns order rows. All partial mutation flows through
// UpdateFields, the column-whitelist primitive.
type OrderRepository interface {
	Create(ctx context.Context, order NewOrder) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error)

	// UpdateFields applies a partial update after validating every
	// column against a fixed allow-list. Any unknown column fails the
	// whole update with ErrUnknownColumn and no partial write occurs.
	UpdateFields(ctx context.Context, number string, fields map[string]any) error

	// MarkPaid performs the one-shot pending->paid transition. It
	// returns ErrAlreadyPaid when payment_status already left pending.
	MarkPaid(ctx context.Context, number, paymentIntentID string) error

	// ConsumeDownload atomically spends one download use of the given
	// credential. Expired, exhausted, or unknown credentials return
	// ErrDownloadExpired / ErrNotFound; the row itself is never removed.
	ConsumeDownload(ctx context.Context, token string, now time.Time) (*model.Order, error)
}
