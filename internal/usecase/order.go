package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkravets/bookpress/internal/adapter/catalog"
	"github.com/mkravets/bookpress/internal/adapter/payment"
	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
)

// ItemInput is one requested line item. Prices are intentionally
// absent: the catalog oracle is the only price authority.
type ItemInput struct {
	BookID   string
	Title    string
	Format   string
	Quantity int
}

// CreateOrderInput is everything needed to record a pending order at
// checkout-session creation time.
type CreateOrderInput struct {
	SessionID string
	Email     string
	Currency  string
	Items     []ItemInput
	Shipping  *model.ShippingAddress
}

// OrderUseCase encapsulates order lifecycle logic outside the webhook
// pipeline: creation, status queries, and admin refunds.
type OrderUseCase struct {
	orders   repository.OrderRepository
	prices   catalog.PriceOracle
	payments payment.Client
	now      func() time.Time
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, prices catalog.PriceOracle, payments payment.Client) *OrderUseCase {
	return &OrderUseCase{orders: orders, prices: prices, payments: payments, now: time.Now}
}

// Create records a new pending order. The total is computed from
// oracle prices per line item.
func (u *OrderUseCase) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", domainErrors.ErrInvalidAmount)
	}

	currency := in.Currency
	if currency == "" {
		currency = "usd"
	}

	var total int64
	items := make([]model.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit, err := u.prices.Price(ctx, item.BookID, item.Format)
		if err != nil {
			return nil, fmt.Errorf("price lookup %s/%s: %w", item.BookID, item.Format, err)
		}
		items = append(items, model.LineItem{
			BookID:     item.BookID,
			Title:      item.Title,
			Format:     item.Format,
			UnitAmount: unit,
			Quantity:   qty,
		})
		total += unit * int64(qty)
	}

	order := repository.NewOrder{
		Number:      NewOrderNumber(),
		SessionID:   in.SessionID,
		Email:       in.Email,
		Items:       items,
		Shipping:    in.Shipping,
		Currency:    currency,
		AmountTotal: total,
	}
	probe := model.Order{Items: items}
	order.Metadata = map[string]any{"fulfillment": string(probe.Kind())}

	return u.orders.Create(ctx, order)
}

// Get returns the order with its three-axis status.
func (u *OrderUseCase) Get(ctx context.Context, number string) (*model.Order, error) {
	return u.orders.GetByNumber(ctx, number)
}

// Refund invokes the provider refund capability for a paid order and
// records the refund facts on the row. The order must carry a payment
// intent reference.
func (u *OrderUseCase) Refund(ctx context.Context, number string, amount *int64, reason string) (*model.Refund, error) {
	order, err := u.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order.PaymentIntentID == nil || *order.PaymentIntentID == "" {
		return nil, domainErrors.ErrMissingPayment
	}

	refund, err := u.payments.CreateRefund(ctx, *order.PaymentIntentID, amount, reason)
	if err != nil {
		return nil, fmt.Errorf("provider refund: %w", err)
	}

	fields := map[string]any{
		"refund_status": refund.Status,
		"refund_amount": refund.Amount,
		"refund_reason": reason,
		"refunded_at":   u.now(),
	}
	if err := u.orders.UpdateFields(ctx, number, fields); err != nil {
		return nil, err
	}
	return refund, nil
}

// NewOrderNumber generates the externally-visible order identifier.
func NewOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "BP-" + id[:12]
}
