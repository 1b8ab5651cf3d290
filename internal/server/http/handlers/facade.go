package handlers

import (
	"context"

	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/usecase"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*model.Order, error)
	OrderStatus(ctx context.Context, number string) (*model.Order, error)
	Refund(ctx context.Context, number string, amount *int64, reason string) (*model.Refund, error)
}

// WebhookFacade drives verified provider deliveries through the
// idempotency pipeline.
type WebhookFacade interface {
	ProcessEvent(ctx context.Context, evt model.ProviderEvent) (usecase.Result, error)
	ProcessPrintEvent(ctx context.Context, evt model.PrintEvent) (usecase.Result, error)
}

// DownloadFacade resolves download credentials.
type DownloadFacade interface {
	ConsumeDownload(ctx context.Context, token string) (*model.Order, error)
}

// Facade aggregates the full set of operations used across handlers.
type Facade interface {
	OrderFacade
	WebhookFacade
	DownloadFacade
}
