package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkravets/bookpress/internal/adapter/mailer"
	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
)

// PrintUseCase reacts to the POD provider's asynchronous status
// notifications: it updates the print job, moves the order's
// fulfillment axis for terminal statuses, and notifies the customer.
type PrintUseCase struct {
	orders    repository.OrderRepository
	printJobs repository.PrintJobRepository
	mail      mailer.Mailer
	logger    *slog.Logger
}

// NewPrintUseCase constructs PrintUseCase.
func NewPrintUseCase(orders repository.OrderRepository, printJobs repository.PrintJobRepository, mail mailer.Mailer, logger *slog.Logger) *PrintUseCase {
	return &PrintUseCase{orders: orders, printJobs: printJobs, mail: mail, logger: logger}
}

// HandleStatusChange processes one verified POD notification, keyed by
// the provider job id with the external order reference as fallback.
func (u *PrintUseCase) HandleStatusChange(ctx context.Context, evt model.PrintEvent) error {
	job, err := u.lookupJob(ctx, evt)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("print event for unknown job",
				slog.String("job", evt.ProviderJobID), slog.String("external", evt.ExternalID))
			return nil
		}
		return err
	}

	var trackingID, trackingURL *string
	if evt.TrackingID != "" {
		trackingID = &evt.TrackingID
	}
	if evt.TrackingURL != "" {
		trackingURL = &evt.TrackingURL
	}
	if err := u.printJobs.UpdateStatus(ctx, job.ProviderJobID, evt.Status, trackingID, trackingURL); err != nil {
		return fmt.Errorf("update print job: %w", err)
	}

	if status, terminal := orderStatusFor(evt.Status); terminal {
		err := u.orders.UpdateFields(ctx, job.OrderNumber, map[string]any{
			"fulfillment_status": status,
		})
		if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
			return err
		}
	}

	return u.notifyCustomer(ctx, job.OrderNumber, evt)
}

func (u *PrintUseCase) lookupJob(ctx context.Context, evt model.PrintEvent) (*model.PrintJob, error) {
	if evt.ProviderJobID != "" {
		job, err := u.printJobs.GetByProviderJobID(ctx, evt.ProviderJobID)
		if err == nil || !errors.Is(err, domainErrors.ErrNotFound) {
			return job, err
		}
	}
	if evt.ExternalID == "" {
		return nil, domainErrors.ErrNotFound
	}
	return u.printJobs.GetByOrder(ctx, evt.ExternalID)
}

// orderStatusFor maps provider statuses onto the order's fulfillment
// axis. In-flight production states change the job only.
func orderStatusFor(podStatus string) (model.FulfillmentStatus, bool) {
	switch podStatus {
	case model.PrintStatusShipped:
		return model.FulfillmentShipped, true
	case model.PrintStatusCanceled:
		return model.FulfillmentPrintCanceled, true
	case model.PrintStatusRejected:
		return model.FulfillmentPrintFailed, true
	default:
		return "", false
	}
}

func (u *PrintUseCase) notifyCustomer(ctx context.Context, orderNumber string, evt model.PrintEvent) error {
	order, err := u.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("print event for unknown order", slog.String("order", orderNumber))
			return nil
		}
		return err
	}

	var subject, template string
	switch evt.Status {
	case model.PrintStatusProductionDelayed:
		subject, template = "Your book is slightly delayed", "print-delayed"
	case model.PrintStatusInProduction:
		subject, template = "Your book is being printed", "print-in-production"
	case model.PrintStatusShipped:
		subject, template = "Your book has shipped", "print-shipped"
	case model.PrintStatusCanceled:
		subject, template = "Your print order was canceled", "print-canceled"
	case model.PrintStatusRejected:
		subject, template = "A problem with your print order", "print-failed"
	default:
		return nil
	}

	msg := mailer.Message{
		To:       order.Email,
		Subject:  subject,
		Template: template,
		Data: map[string]any{
			"order_number": order.Number,
			"status":       evt.Status,
			"tracking_id":  evt.TrackingID,
			"tracking_url": evt.TrackingURL,
		},
	}
	if err := u.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send print status email: %w", err)
	}
	return nil
}
