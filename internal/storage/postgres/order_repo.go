package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
)

// allowedOrderColumns is the fixed allow-list for partial order
// updates. Every mutation path in the pipeline goes through
// UpdateFields, so a column missing here can never be written by a
// dynamically-built update regardless of the caller.
var allowedOrderColumns = map[string]struct{}{
	"status":              {},
	"payment_status":      {},
	"fulfillment_status":  {},
	"payment_intent_id":   {},
	"download_token":      {},
	"download_expires_at": {},
	"download_count":      {},
	"download_limit":      {},
	"refund_status":       {},
	"refund_amount":       {},
	"refund_reason":       {},
	"metadata":            {},
	"completed_at":        {},
	"refunded_at":         {},
}

const orderColumns = `id, number, session_id, payment_intent_id, email, items, shipping, currency, amount_total,
       status, payment_status, fulfillment_status,
       download_token, download_expires_at, download_count, download_limit,
       refund_status, refund_amount, refund_reason, metadata,
       created_at, updated_at, completed_at, refunded_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o        model.Order
		items    []byte
		shipping []byte
		metadata []byte
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.SessionID, &o.PaymentIntentID, &o.Email, &items, &shipping, &o.Currency, &o.AmountTotal,
		&o.Status, &o.PaymentStatus, &o.FulfillmentStatus,
		&o.DownloadToken, &o.DownloadExpiresAt, &o.DownloadCount, &o.DownloadLimit,
		&o.RefundStatus, &o.RefundAmount, &o.RefundReason, &metadata,
		&o.CreatedAt, &o.UpdatedAt, &o.CompletedAt, &o.RefundedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	if len(shipping) > 0 {
		var addr model.ShippingAddress
		if err := json.Unmarshal(shipping, &addr); err != nil {
			return nil, fmt.Errorf("decode shipping address: %w", err)
		}
		o.Shipping = &addr
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &o.Metadata); err != nil {
			return nil, fmt.Errorf("decode order metadata: %w", err)
		}
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, in repository.NewOrder) (*model.Order, error) {
	items, err := json.Marshal(in.Items)
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}
	var shipping []byte
	if in.Shipping != nil {
		if shipping, err = json.Marshal(in.Shipping); err != nil {
			return nil, fmt.Errorf("encode shipping address: %w", err)
		}
	}
	metadata := []byte("{}")
	if in.Metadata != nil {
		if metadata, err = json.Marshal(in.Metadata); err != nil {
			return nil, fmt.Errorf("encode order metadata: %w", err)
		}
	}

	const query = `INSERT INTO orders (number, session_id, email, items, shipping, currency, amount_total,
                       status, payment_status, fulfillment_status, metadata)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
                   RETURNING id, created_at, updated_at`

	order := &model.Order{
		Number:            in.Number,
		SessionID:         in.SessionID,
		Email:             in.Email,
		Items:             in.Items,
		Shipping:          in.Shipping,
		Currency:          in.Currency,
		AmountTotal:       in.AmountTotal,
		Status:            model.OrderStatusPending,
		PaymentStatus:     model.PaymentStatusPending,
		FulfillmentStatus: model.FulfillmentPending,
		Metadata:          in.Metadata,
	}
	err = r.storage.pool.QueryRow(ctx, query,
		in.Number, in.SessionID, in.Email, items, shipping, in.Currency, in.AmountTotal,
		model.OrderStatusPending, model.PaymentStatusPending, model.FulfillmentPending, metadata,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE number=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE session_id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

// UpdateFields applies a partial update. Every supplied column is
// validated against allowedOrderColumns before any SQL is constructed;
// a single unknown column fails the whole call and nothing is written.
func (r *orderRepository) UpdateFields(ctx context.Context, number string, fields map[string]any) error {
	if len(fields) == 0 {
		return domainErrors.ErrNoFieldsToUpdate
	}

	columns := make([]string, 0, len(fields))
	for col := range fields {
		if _, ok := allowedOrderColumns[col]; !ok {
			return fmt.Errorf("%w: %s", domainErrors.ErrUnknownColumn, col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var sb strings.Builder
	sb.WriteString("UPDATE orders SET ")
	args := make([]any, 0, len(columns)+1)
	for i, col := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		args = append(args, fields[col])
		fmt.Fprintf(&sb, "%s=$%d", col, len(args))
	}
	sb.WriteString(", updated_at=NOW()")
	args = append(args, number)
	fmt.Fprintf(&sb, " WHERE number=$%d", len(args))

	tag, err := r.storage.pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// MarkPaid performs the one-shot paid transition. The WHERE guard on
// payment_status makes concurrent attempts race safely: exactly one
// update wins, the rest observe ErrAlreadyPaid.
func (r *orderRepository) MarkPaid(ctx context.Context, number, paymentIntentID string) error {
	const query = `UPDATE orders
                   SET status=$2, payment_status=$3, payment_intent_id=$4, completed_at=NOW(), updated_at=NOW()
                   WHERE number=$1 AND payment_status=$5`
	tag, err := r.storage.pool.Exec(ctx, query,
		number, model.OrderStatusCompleted, model.PaymentStatusPaid, paymentIntentID, model.PaymentStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByNumber(ctx, number); err != nil {
		return err
	}
	return domainErrors.ErrAlreadyPaid
}

// ConsumeDownload spends one use of a download credential. The guarded
// UPDATE never matches an expired or exhausted credential, so such
// rows are never returned even though they still exist.
func (r *orderRepository) ConsumeDownload(ctx context.Context, token string, now time.Time) (*model.Order, error) {
	query := `UPDATE orders
              SET download_count = download_count + 1, updated_at=NOW()
              WHERE download_token=$1 AND download_expires_at > $2 AND download_count < download_limit
              RETURNING ` + orderColumns
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, token, now))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	const exists = `SELECT 1 FROM orders WHERE download_token=$1`
	var one int
	if err := r.storage.pool.QueryRow(ctx, exists, token).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return nil, domainErrors.ErrDownloadExpired
}
