package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/mkravets/bookpress/internal/adapter/mailer"
	"github.com/mkravets/bookpress/internal/adapter/printing"
	"github.com/mkravets/bookpress/internal/config"
	"github.com/mkravets/bookpress/internal/domain/repository"
	"github.com/mkravets/bookpress/internal/pkg/download"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewOrderUseCase,
	NewPrintUseCase,
	NewDownloadUseCase,
	NewWebhookUseCase,
	newIssuer,
	newFulfillment,
)

func newIssuer(cfg *config.Config) *download.Issuer {
	return download.NewIssuer(download.Options{
		TTL:     cfg.DownloadTTL,
		MaxUses: cfg.DownloadMaxUses,
	})
}

type fulfillmentParams struct {
	fx.In

	Orders    repository.OrderRepository
	PrintJobs repository.PrintJobRepository
	Printer   printing.Client
	Mail      mailer.Mailer
	Issuer    *download.Issuer
	Config    *config.Config
	Logger    *slog.Logger
}

func newFulfillment(p fulfillmentParams) *FulfillmentUseCase {
	return NewFulfillmentUseCase(p.Orders, p.PrintJobs, p.Printer, p.Mail, p.Issuer, p.Config.PublicBaseURL, p.Logger)
}
