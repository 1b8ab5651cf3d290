package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkravets/bookpress/internal/adapter/mailer"
	"github.com/mkravets/bookpress/internal/adapter/printing"
	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
	"github.com/mkravets/bookpress/internal/pkg/download"
)

// BranchResult is the outcome of one fulfillment branch. Failures are
// carried as values so the dispatcher alone decides which ones
// propagate to the caller.
type BranchResult struct {
	Attempted bool
	Err       error
}

// Succeeded reports whether the branch ran and completed.
func (r BranchResult) Succeeded() bool {
	return r.Attempted && r.Err == nil
}

// DispatchReport summarizes a fulfillment dispatch across branches.
type DispatchReport struct {
	Digital  BranchResult
	Physical BranchResult
}

// FulfillmentUseCase dispatches post-payment work for a confirmed-paid
// order: digital delivery, physical print submission, or both.
type FulfillmentUseCase struct {
	orders    repository.OrderRepository
	printJobs repository.PrintJobRepository
	printer   printing.Client
	mail      mailer.Mailer
	issuer    *download.Issuer
	baseURL   string
	logger    *slog.Logger
}

// NewFulfillmentUseCase constructs FulfillmentUseCase.
func NewFulfillmentUseCase(
	orders repository.OrderRepository,
	printJobs repository.PrintJobRepository,
	printer printing.Client,
	mail mailer.Mailer,
	issuer *download.Issuer,
	baseURL string,
	logger *slog.Logger,
) *FulfillmentUseCase {
	return &FulfillmentUseCase{
		orders:    orders,
		printJobs: printJobs,
		printer:   printer,
		mail:      mail,
		issuer:    issuer,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Dispatch runs the fulfillment branches the order requires. For mixed
// orders the branches are isolated: either may fail without preventing
// the other from running. A digital failure is returned to the caller;
// a physical failure is recorded on the order only, since print
// submission is recoverable through admin retry.
func (u *FulfillmentUseCase) Dispatch(ctx context.Context, order *model.Order) (DispatchReport, error) {
	var report DispatchReport
	kind := order.Kind()

	if kind == model.KindDigital || kind == model.KindMixed {
		report.Digital.Attempted = true
		report.Digital.Err = u.fulfillDigital(ctx, order)
		if report.Digital.Err != nil {
			u.logger.Error("digital fulfillment failed",
				slog.String("order", order.Number),
				slog.String("error", report.Digital.Err.Error()))
		}
	}

	if kind == model.KindPhysical || kind == model.KindMixed {
		report.Physical.Attempted = true
		report.Physical.Err = u.fulfillPhysical(ctx, order)
		if report.Physical.Err != nil {
			u.logger.Error("physical fulfillment failed",
				slog.String("order", order.Number),
				slog.String("error", report.Physical.Err.Error()))
		}
	}

	if u.allSucceeded(report) {
		if err := u.orders.UpdateFields(ctx, order.Number, map[string]any{
			"fulfillment_status": model.FulfillmentFulfilled,
		}); err != nil {
			u.logger.Error("finalize fulfillment failed",
				slog.String("order", order.Number), slog.String("error", err.Error()))
		}
	}

	u.sendConfirmation(ctx, order, report)

	return report, report.Digital.Err
}

func (u *FulfillmentUseCase) allSucceeded(report DispatchReport) bool {
	if report.Digital.Attempted && report.Digital.Err != nil {
		return false
	}
	if report.Physical.Attempted && report.Physical.Err != nil {
		return false
	}
	return report.Digital.Attempted || report.Physical.Attempted
}

// fulfillDigital issues the download credential, persists it, and
// mails the link. Any failure is recorded as digital_delivery_failed
// and returned so monitoring can alert on it.
func (u *FulfillmentUseCase) fulfillDigital(ctx context.Context, order *model.Order) error {
	err := u.deliverDigital(ctx, order)
	if err == nil {
		return nil
	}

	u.recordBranchFailure(ctx, order, model.FulfillmentDigitalDeliveryFailed, "digital_error", err)
	return err
}

func (u *FulfillmentUseCase) deliverDigital(ctx context.Context, order *model.Order) error {
	cred, err := u.issuer.Issue()
	if err != nil {
		return err
	}

	fields := map[string]any{
		"download_token":      cred.Token,
		"download_expires_at": cred.ExpiresAt,
		"download_count":      0,
		"download_limit":      cred.MaxUses,
		"fulfillment_status":  model.FulfillmentDigitalFulfilled,
	}
	if err := u.orders.UpdateFields(ctx, order.Number, fields); err != nil {
		return fmt.Errorf("persist download credential: %w", err)
	}
	order.DownloadToken = &cred.Token
	order.DownloadExpiresAt = &cred.ExpiresAt

	msg := mailer.Message{
		To:       order.Email,
		Subject:  "Your books are ready to download",
		Template: "download-ready",
		Data: map[string]any{
			"order_number": order.Number,
			"download_url": u.downloadURL(cred.Token),
			"expires_at":   cred.ExpiresAt,
			"max_uses":     cred.MaxUses,
		},
	}
	if err := u.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send download email: %w", err)
	}
	return nil
}

// fulfillPhysical submits the print job. Failures are recorded as
// print_job_failed but never returned: a failed submission must not
// abort order completion and is retried through admin tooling.
func (u *FulfillmentUseCase) fulfillPhysical(ctx context.Context, order *model.Order) error {
	err := u.submitPrintJob(ctx, order)
	if err == nil {
		return nil
	}

	u.recordBranchFailure(ctx, order, model.FulfillmentPrintJobFailed, "print_error", err)
	return err
}

func (u *FulfillmentUseCase) submitPrintJob(ctx context.Context, order *model.Order) error {
	// Retries must find an existing submission rather than create a
	// duplicate job at the provider.
	if _, err := u.printJobs.GetByOrder(ctx, order.Number); err == nil {
		return u.orders.UpdateFields(ctx, order.Number, map[string]any{
			"fulfillment_status": model.FulfillmentPrintJobCreated,
		})
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return err
	}

	if order.Shipping == nil {
		return fmt.Errorf("order %s has physical items but no shipping address", order.Number)
	}

	items := order.PhysicalItems()
	quantity := 0
	submitItems := make([]printing.SubmitItem, 0, len(items))
	for _, item := range items {
		quantity += item.Quantity
		submitItems = append(submitItems, printing.SubmitItem{
			BookID:   item.BookID,
			Title:    item.Title,
			Format:   item.Format,
			Quantity: item.Quantity,
		})
	}

	resp, err := u.printer.SubmitJob(ctx, printing.SubmitRequest{
		ExternalID:     order.Number,
		ContactEmail:   order.Email,
		Items:          submitItems,
		ShippingName:   order.Shipping.Name,
		ShippingLine1:  order.Shipping.Line1,
		ShippingLine2:  order.Shipping.Line2,
		ShippingCity:   order.Shipping.City,
		PostalCode:     order.Shipping.PostalCode,
		Country:        order.Shipping.Country,
		ShippingMethod: "MAIL",
	})
	if errors.Is(err, printing.ErrDuplicateSubmission) {
		u.logger.Warn("print submission already known to provider", slog.String("order", order.Number))
		return u.orders.UpdateFields(ctx, order.Number, map[string]any{
			"fulfillment_status": model.FulfillmentPrintJobCreated,
		})
	}
	if err != nil {
		return fmt.Errorf("submit print job: %w", err)
	}

	_, err = u.printJobs.Create(ctx, repository.NewPrintJob{
		OrderNumber:    order.Number,
		ProviderJobID:  resp.JobID,
		Status:         resp.Status,
		Quantity:       quantity,
		ShippingMethod: resp.ShippingMethod,
		ShippingCost:   resp.ShippingCost,
	})
	if err != nil && !errors.Is(err, domainErrors.ErrAlreadyExists) {
		return fmt.Errorf("persist print job: %w", err)
	}

	return u.orders.UpdateFields(ctx, order.Number, map[string]any{
		"fulfillment_status": model.FulfillmentPrintJobCreated,
	})
}

// recordBranchFailure marks the branch's terminal failure status and
// captures the error in order metadata for operator follow-up.
func (u *FulfillmentUseCase) recordBranchFailure(ctx context.Context, order *model.Order, status model.FulfillmentStatus, key string, cause error) {
	metadata := map[string]any{}
	for k, v := range order.Metadata {
		metadata[k] = v
	}
	metadata[key] = cause.Error()
	order.Metadata = metadata

	fields := map[string]any{
		"fulfillment_status": status,
		"metadata":           order.MetadataJSON(),
	}
	if err := u.orders.UpdateFields(ctx, order.Number, fields); err != nil {
		u.logger.Error("record branch failure failed",
			slog.String("order", order.Number), slog.String("error", err.Error()))
	}
}

// sendConfirmation mails the consolidated summary of what succeeded.
// Delivery problems here are logged only; the branch outcomes are
// already durable on the order row.
func (u *FulfillmentUseCase) sendConfirmation(ctx context.Context, order *model.Order, report DispatchReport) {
	data := map[string]any{
		"order_number": order.Number,
		"amount_total": order.AmountTotal,
		"currency":     order.Currency,
	}
	if report.Digital.Attempted {
		data["digital_delivered"] = report.Digital.Succeeded()
		if report.Digital.Succeeded() && order.DownloadToken != nil {
			data["download_url"] = u.downloadURL(*order.DownloadToken)
		}
	}
	if report.Physical.Attempted {
		data["print_submitted"] = report.Physical.Succeeded()
	}

	msg := mailer.Message{
		To:       order.Email,
		Subject:  "Order confirmation " + order.Number,
		Template: "order-confirmation",
		Data:     data,
	}
	if err := u.mail.Send(ctx, msg); err != nil {
		u.logger.Error("send confirmation failed",
			slog.String("order", order.Number), slog.String("error", err.Error()))
	}
}

func (u *FulfillmentUseCase) downloadURL(token string) string {
	return u.baseURL + "/download/" + token
}
