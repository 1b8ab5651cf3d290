package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mkravets/bookpress/internal/adapter/mailer"
	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
)

// Result reports how a webhook delivery was resolved. Skipped means
// the ledger already knew the event and no handler ran. HandlerErr is
// a recorded handler failure; the delivery is still acknowledged.
type Result struct {
	Skipped    bool
	HandlerErr error
}

// WebhookUseCase is the ingress pipeline behind signature verification:
// ledger dedupe, type dispatch, and processed bookkeeping.
type WebhookUseCase struct {
	events      repository.EventRepository
	orders      repository.OrderRepository
	fulfillment *FulfillmentUseCase
	prints      *PrintUseCase
	mail        mailer.Mailer
	logger      *slog.Logger
	now         func() time.Time
}

// NewWebhookUseCase constructs WebhookUseCase.
func NewWebhookUseCase(
	events repository.EventRepository,
	orders repository.OrderRepository,
	fulfillment *FulfillmentUseCase,
	prints *PrintUseCase,
	mail mailer.Mailer,
	logger *slog.Logger,
) *WebhookUseCase {
	return &WebhookUseCase{
		events:      events,
		orders:      orders,
		fulfillment: fulfillment,
		prints:      prints,
		mail:        mail,
		logger:      logger,
		now:         time.Now,
	}
}

// providerEnvelope mirrors the provider's notification JSON.
type providerEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentIntent string `json:"payment_intent"`
			AmountTotal   int64  `json:"amount_total"`
			Amount        int64  `json:"amount"`
			Reason        string `json:"reason"`
			Metadata      struct {
				OrderNumber string `json:"order_number"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseProviderEvent decodes a verified payment-provider payload.
func ParseProviderEvent(payload []byte) (model.ProviderEvent, error) {
	var env providerEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return model.ProviderEvent{}, fmt.Errorf("decode provider event: %w", err)
	}
	if env.ID == "" || env.Type == "" {
		return model.ProviderEvent{}, fmt.Errorf("provider event missing id or type")
	}
	amount := env.Data.Object.AmountTotal
	if amount == 0 {
		amount = env.Data.Object.Amount
	}
	return model.ProviderEvent{
		ID:              env.ID,
		Type:            env.Type,
		SessionID:       env.Data.Object.ID,
		PaymentIntentID: env.Data.Object.PaymentIntent,
		OrderNumber:     env.Data.Object.Metadata.OrderNumber,
		Amount:          amount,
		Reason:          env.Data.Object.Reason,
		Raw:             payload,
	}, nil
}

// podEnvelope mirrors the POD provider's notification JSON.
type podEnvelope struct {
	ID          string `json:"id"`
	JobID       string `json:"job_id"`
	ExternalID  string `json:"external_id"`
	Status      string `json:"status"`
	TrackingID  string `json:"tracking_id"`
	TrackingURL string `json:"tracking_url"`
}

// PrintEventType is the ledger discriminator for POD notifications.
const PrintEventType = "print_job.status_changed"

// ParsePrintEvent decodes a verified POD payload.
func ParsePrintEvent(payload []byte) (model.PrintEvent, error) {
	var env podEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return model.PrintEvent{}, fmt.Errorf("decode print event: %w", err)
	}
	if env.ID == "" || env.Status == "" {
		return model.PrintEvent{}, fmt.Errorf("print event missing id or status")
	}
	return model.PrintEvent{
		ID:            env.ID,
		ProviderJobID: env.JobID,
		ExternalID:    env.ExternalID,
		Status:        env.Status,
		TrackingID:    env.TrackingID,
		TrackingURL:   env.TrackingURL,
		Raw:           payload,
	}, nil
}

// Process drives one payment-provider delivery through the ledger.
func (u *WebhookUseCase) Process(ctx context.Context, evt model.ProviderEvent) (Result, error) {
	var orderNumber *string
	if evt.OrderNumber != "" {
		orderNumber = &evt.OrderNumber
	}
	return u.withLedger(ctx, evt.ID, evt.Type, orderNumber, evt.Raw, func(ctx context.Context) error {
		return u.dispatch(ctx, evt)
	})
}

// ProcessPrint drives one POD delivery through the same ledger.
func (u *WebhookUseCase) ProcessPrint(ctx context.Context, evt model.PrintEvent) (Result, error) {
	var orderNumber *string
	if evt.ExternalID != "" {
		orderNumber = &evt.ExternalID
	}
	return u.withLedger(ctx, evt.ID, PrintEventType, orderNumber, evt.Raw, func(ctx context.Context) error {
		return u.prints.HandleStatusChange(ctx, evt)
	})
}

// withLedger enforces at-most-one effective processing attempt per
// event identifier. The payload is recorded before the handler runs so
// a crash mid-handling still leaves forensic evidence; redeliveries of
// a seen event are acknowledged without side effects.
func (u *WebhookUseCase) withLedger(ctx context.Context, eventID, eventType string, orderNumber *string, payload []byte, handle func(context.Context) error) (Result, error) {
	existing, err := u.events.Get(ctx, eventID)
	if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
		return Result{}, err
	}
	if existing != nil {
		return Result{Skipped: true}, nil
	}

	inserted, err := u.events.Insert(ctx, eventID, eventType, orderNumber, payload)
	if err != nil {
		return Result{}, err
	}
	if !inserted {
		// Lost the race against a concurrent delivery of the same event.
		return Result{Skipped: true}, nil
	}

	handlerErr := handle(ctx)
	var procErr *string
	if handlerErr != nil {
		msg := handlerErr.Error()
		procErr = &msg
	}
	if err := u.events.MarkProcessed(ctx, eventID, procErr); err != nil {
		return Result{}, err
	}
	return Result{HandlerErr: handlerErr}, nil
}

// Reprocess re-drives a ledger row left unprocessed, reparsing the
// stored payload. Used by the reconciliation sweep.
func (u *WebhookUseCase) Reprocess(ctx context.Context, event model.PaymentEvent) error {
	var handlerErr error
	if strings.HasPrefix(event.Type, "print_job.") {
		evt, err := ParsePrintEvent(event.Payload)
		if err != nil {
			handlerErr = err
		} else {
			handlerErr = u.prints.HandleStatusChange(ctx, evt)
		}
	} else {
		evt, err := ParseProviderEvent(event.Payload)
		if err != nil {
			handlerErr = err
		} else {
			handlerErr = u.dispatch(ctx, evt)
		}
	}

	var procErr *string
	if handlerErr != nil {
		msg := handlerErr.Error()
		procErr = &msg
	}
	return u.events.MarkProcessed(ctx, event.EventID, procErr)
}

// UnprocessedEvents lists ledger rows open past the grace period.
func (u *WebhookUseCase) UnprocessedEvents(ctx context.Context, grace time.Duration, limit int) ([]model.PaymentEvent, error) {
	return u.events.ListUnprocessed(ctx, u.now().Add(-grace), limit)
}

func (u *WebhookUseCase) dispatch(ctx context.Context, evt model.ProviderEvent) error {
	switch evt.Type {
	case model.EventCheckoutCompleted:
		return u.handleCheckoutCompleted(ctx, evt)
	case model.EventCheckoutExpired:
		return u.handleCheckoutExpired(ctx, evt)
	case model.EventPaymentSucceeded:
		return u.handlePaymentSucceeded(ctx, evt)
	case model.EventPaymentFailed:
		return u.handlePaymentFailed(ctx, evt)
	case model.EventChargeRefunded:
		return u.handleChargeRefunded(ctx, evt)
	default:
		// Forward-compatible with provider additions.
		u.logger.Info("ignoring unknown event type", slog.String("type", evt.Type), slog.String("event", evt.ID))
		return nil
	}
}

// handleCheckoutCompleted is the trigger that makes fulfillment
// eligible: the one-shot paid transition followed by dispatch.
func (u *WebhookUseCase) handleCheckoutCompleted(ctx context.Context, evt model.ProviderEvent) error {
	order, err := u.orders.GetBySessionID(ctx, evt.SessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("checkout completed for unknown session",
				slog.String("session", evt.SessionID), slog.String("event", evt.ID))
			return nil
		}
		return err
	}

	if err := u.orders.MarkPaid(ctx, order.Number, evt.PaymentIntentID); err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyPaid) {
			u.logger.Warn("order already paid, skipping fulfillment",
				slog.String("order", order.Number), slog.String("event", evt.ID))
			return nil
		}
		return err
	}

	order, err = u.orders.GetByNumber(ctx, order.Number)
	if err != nil {
		return err
	}

	_, err = u.fulfillment.Dispatch(ctx, order)
	return err
}

func (u *WebhookUseCase) handleCheckoutExpired(ctx context.Context, evt model.ProviderEvent) error {
	return u.closePendingOrder(ctx, evt, map[string]any{
		"status":         model.OrderStatusExpired,
		"payment_status": model.PaymentStatusExpired,
	})
}

func (u *WebhookUseCase) handlePaymentFailed(ctx context.Context, evt model.ProviderEvent) error {
	return u.closePendingOrder(ctx, evt, map[string]any{
		"status":         model.OrderStatusFailed,
		"payment_status": model.PaymentStatusFailed,
	})
}

// closePendingOrder applies a terminal pre-payment transition, but only
// while the order is still pending: events arrive in no guaranteed
// order and a completed order must not be clobbered by a late expiry.
func (u *WebhookUseCase) closePendingOrder(ctx context.Context, evt model.ProviderEvent, fields map[string]any) error {
	order, err := u.orders.GetBySessionID(ctx, evt.SessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("event for unknown session",
				slog.String("session", evt.SessionID), slog.String("event", evt.ID))
			return nil
		}
		return err
	}
	if order.PaymentStatus != model.PaymentStatusPending {
		u.logger.Warn("order already settled, ignoring transition",
			slog.String("order", order.Number), slog.String("event", evt.ID))
		return nil
	}
	return u.orders.UpdateFields(ctx, order.Number, fields)
}

// handlePaymentSucceeded records the payment intent reference when the
// intent event arrives before (or without) the session event.
func (u *WebhookUseCase) handlePaymentSucceeded(ctx context.Context, evt model.ProviderEvent) error {
	if evt.OrderNumber == "" || evt.PaymentIntentID == "" {
		return nil
	}
	err := u.orders.UpdateFields(ctx, evt.OrderNumber, map[string]any{
		"payment_intent_id": evt.PaymentIntentID,
	})
	if errors.Is(err, domainErrors.ErrNotFound) {
		u.logger.Warn("payment succeeded for unknown order",
			slog.String("order", evt.OrderNumber), slog.String("event", evt.ID))
		return nil
	}
	return err
}

// handleChargeRefunded records the refund facts and confirms to the
// customer. It deliberately leaves payment and fulfillment status
// untouched: a refunded order remains recorded as fulfilled for audit.
func (u *WebhookUseCase) handleChargeRefunded(ctx context.Context, evt model.ProviderEvent) error {
	if evt.OrderNumber == "" {
		u.logger.Warn("refund event without order reference", slog.String("event", evt.ID))
		return nil
	}
	order, err := u.orders.GetByNumber(ctx, evt.OrderNumber)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("refund for unknown order",
				slog.String("order", evt.OrderNumber), slog.String("event", evt.ID))
			return nil
		}
		return err
	}

	fields := map[string]any{
		"refund_status": "refunded",
		"refund_amount": evt.Amount,
		"refund_reason": evt.Reason,
		"refunded_at":   u.now(),
	}
	if err := u.orders.UpdateFields(ctx, order.Number, fields); err != nil {
		return err
	}

	msg := mailer.Message{
		To:       order.Email,
		Subject:  "Refund confirmation " + order.Number,
		Template: "refund-confirmation",
		Data: map[string]any{
			"order_number":  order.Number,
			"refund_amount": evt.Amount,
			"currency":      order.Currency,
		},
	}
	if err := u.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send refund confirmation: %w", err)
	}
	return nil
}
