package app

import (
	"context"
	"time"

	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/usecase"
)

// FulfillmentFacade aggregates the application use cases behind one
// surface consumed by HTTP handlers and the reconciliation worker.
type FulfillmentFacade struct {
	orders    *usecase.OrderUseCase
	webhooks  *usecase.WebhookUseCase
	downloads *usecase.DownloadUseCase
}

// NewFulfillmentFacade constructs the facade.
func NewFulfillmentFacade(orders *usecase.OrderUseCase, webhooks *usecase.WebhookUseCase, downloads *usecase.DownloadUseCase) *FulfillmentFacade {
	return &FulfillmentFacade{orders: orders, webhooks: webhooks, downloads: downloads}
}

func (f *FulfillmentFacade) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*model.Order, error) {
	return f.orders.Create(ctx, in)
}

func (f *FulfillmentFacade) OrderStatus(ctx context.Context, number string) (*model.Order, error) {
	return f.orders.Get(ctx, number)
}

func (f *FulfillmentFacade) Refund(ctx context.Context, number string, amount *int64, reason string) (*model.Refund, error) {
	return f.orders.Refund(ctx, number, amount, reason)
}

func (f *FulfillmentFacade) ProcessEvent(ctx context.Context, evt model.ProviderEvent) (usecase.Result, error) {
	return f.webhooks.Process(ctx, evt)
}

func (f *FulfillmentFacade) ProcessPrintEvent(ctx context.Context, evt model.PrintEvent) (usecase.Result, error) {
	return f.webhooks.ProcessPrint(ctx, evt)
}

func (f *FulfillmentFacade) ConsumeDownload(ctx context.Context, token string) (*model.Order, error) {
	return f.downloads.Consume(ctx, token)
}

func (f *FulfillmentFacade) UnprocessedEvents(ctx context.Context, grace time.Duration, limit int) ([]model.PaymentEvent, error) {
	return f.webhooks.UnprocessedEvents(ctx, grace, limit)
}

func (f *FulfillmentFacade) ReprocessEvent(ctx context.Context, event model.PaymentEvent) error {
	return f.webhooks.Reprocess(ctx, event)
}
