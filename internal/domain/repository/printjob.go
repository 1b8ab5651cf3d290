package repository

import (
	"context"

	"github.com/mkravets/bookpress/internal/domain/model"
)

// NewPrintJob captures a successful submission to the POD provider.
type NewPrintJob struct {
	OrderNumber    string
	ProviderJobID  string
	Status         string
	Quantity       int
	ShippingMethod string
	ShippingCost   int64
}

// PrintJobRepository owns print job rows.
type PrintJobRepository interface {
	Create(ctx context.Context, job NewPrintJob) (*model.PrintJob, error)
	GetByOrder(ctx context.Context, orderNumber string) (*model.PrintJob, error)
	GetByProviderJobID(ctx context.Context, providerJobID string) (*model.PrintJob, error)
	UpdateStatus(ctx context.Context, providerJobID, status string, trackingID, trackingURL *string) error
}
