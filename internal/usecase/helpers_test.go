package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mkravets/bookpress/internal/adapter/mailer"
	"github.com/mkravets/bookpress/internal/adapter/printing"
	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
	"github.com/mkravets/bookpress/internal/pkg/download"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fieldUpdate struct {
	number string
	fields map[string]any
}

type stubOrderRepository struct {
	createFn   func(context.Context, repository.NewOrder) (*model.Order, error)
	byNumberFn func(context.Context, string) (*model.Order, error)
	bySessFn   func(context.Context, string) (*model.Order, error)
	updateFn   func(context.Context, string, map[string]any) error
	markPaidFn func(context.Context, string, string) error
	consumeFn  func(context.Context, string, time.Time) (*model.Order, error)

	updates []fieldUpdate
	paid    []string
}

func (s *stubOrderRepository) Create(ctx context.Context, order repository.NewOrder) (*model.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, order)
	}
	return &model.Order{
		ID: 1, Number: order.Number, SessionID: order.SessionID, Email: order.Email,
		Items: order.Items, Shipping: order.Shipping, Currency: order.Currency,
		AmountTotal: order.AmountTotal, Metadata: order.Metadata,
		Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending,
		FulfillmentStatus: model.FulfillmentPending,
	}, nil
}

func (s *stubOrderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	if s.byNumberFn != nil {
		return s.byNumberFn(ctx, number)
	}
	return nil, domainErrors.ErrNotFound
}

func (s *stubOrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	if s.bySessFn != nil {
		return s.bySessFn(ctx, sessionID)
	}
	return nil, domainErrors.ErrNotFound
}

func (s *stubOrderRepository) UpdateFields(ctx context.Context, number string, fields map[string]any) error {
	s.updates = append(s.updates, fieldUpdate{number: number, fields: fields})
	if s.updateFn != nil {
		return s.updateFn(ctx, number, fields)
	}
	return nil
}

func (s *stubOrderRepository) MarkPaid(ctx context.Context, number, paymentIntentID string) error {
	s.paid = append(s.paid, number)
	if s.markPaidFn != nil {
		return s.markPaidFn(ctx, number, paymentIntentID)
	}
	return nil
}

func (s *stubOrderRepository) ConsumeDownload(ctx context.Context, token string, now time.Time) (*model.Order, error) {
	if s.consumeFn != nil {
		return s.consumeFn(ctx, token, now)
	}
	return nil, domainErrors.ErrNotFound
}

// lastFulfillmentStatus returns the most recent fulfillment_status
// written through UpdateFields, if any.
func (s *stubOrderRepository) lastFulfillmentStatus() (model.FulfillmentStatus, bool) {
	for i := len(s.updates) - 1; i >= 0; i-- {
		if v, ok := s.updates[i].fields["fulfillment_status"]; ok {
			return v.(model.FulfillmentStatus), true
		}
	}
	return "", false
}

type stubEventRepository struct {
	insertFn func(context.Context, string, string, *string, []byte) (bool, error)
	getFn    func(context.Context, string) (*model.PaymentEvent, error)
	markFn   func(context.Context, string, *string) error
	listFn   func(context.Context, time.Time, int) ([]model.PaymentEvent, error)

	inserted  []string
	processed map[string]*string
}

func (s *stubEventRepository) Insert(ctx context.Context, eventID, eventType string, orderNumber *string, payload []byte) (bool, error) {
	s.inserted = append(s.inserted, eventID)
	if s.insertFn != nil {
		return s.insertFn(ctx, eventID, eventType, orderNumber, payload)
	}
	return true, nil
}

func (s *stubEventRepository) Get(ctx context.Context, eventID string) (*model.PaymentEvent, error) {
	if s.getFn != nil {
		return s.getFn(ctx, eventID)
	}
	return nil, domainErrors.ErrNotFound
}

func (s *stubEventRepository) MarkProcessed(ctx context.Context, eventID string, procErr *string) error {
	if s.processed == nil {
		s.processed = make(map[string]*string)
	}
	s.processed[eventID] = procErr
	if s.markFn != nil {
		return s.markFn(ctx, eventID, procErr)
	}
	return nil
}

func (s *stubEventRepository) ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]model.PaymentEvent, error) {
	if s.listFn != nil {
		return s.listFn(ctx, olderThan, limit)
	}
	return nil, nil
}

type stubPrintJobRepository struct {
	createFn     func(context.Context, repository.NewPrintJob) (*model.PrintJob, error)
	byOrderFn    func(context.Context, string) (*model.PrintJob, error)
	byProviderFn func(context.Context, string) (*model.PrintJob, error)
	updateFn     func(context.Context, string, string, *string, *string) error

	created []repository.NewPrintJob
}

func (s *stubPrintJobRepository) Create(ctx context.Context, job repository.NewPrintJob) (*model.PrintJob, error) {
	s.created = append(s.created, job)
	if s.createFn != nil {
		return s.createFn(ctx, job)
	}
	return &model.PrintJob{ID: 1, OrderNumber: job.OrderNumber, ProviderJobID: job.ProviderJobID, Status: job.Status}, nil
}

func (s *stubPrintJobRepository) GetByOrder(ctx context.Context, orderNumber string) (*model.PrintJob, error) {
	if s.byOrderFn != nil {
		return s.byOrderFn(ctx, orderNumber)
	}
	return nil, domainErrors.ErrNotFound
}

func (s *stubPrintJobRepository) GetByProviderJobID(ctx context.Context, providerJobID string) (*model.PrintJob, error) {
	if s.byProviderFn != nil {
		return s.byProviderFn(ctx, providerJobID)
	}
	return nil, domainErrors.ErrNotFound
}

func (s *stubPrintJobRepository) UpdateStatus(ctx context.Context, providerJobID, status string, trackingID, trackingURL *string) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, providerJobID, status, trackingID, trackingURL)
	}
	return nil
}

type stubMailer struct {
	sendFn   func(context.Context, mailer.Message) error
	messages []mailer.Message
}

func (s *stubMailer) Send(ctx context.Context, msg mailer.Message) error {
	s.messages = append(s.messages, msg)
	if s.sendFn != nil {
		return s.sendFn(ctx, msg)
	}
	return nil
}

func (s *stubMailer) templates() []string {
	names := make([]string, 0, len(s.messages))
	for _, msg := range s.messages {
		names = append(names, msg.Template)
	}
	return names
}

type stubPrinter struct {
	submitFn    func(context.Context, printing.SubmitRequest) (*printing.SubmitResponse, error)
	submissions []printing.SubmitRequest
}

func (s *stubPrinter) SubmitJob(ctx context.Context, req printing.SubmitRequest) (*printing.SubmitResponse, error) {
	s.submissions = append(s.submissions, req)
	if s.submitFn != nil {
		return s.submitFn(ctx, req)
	}
	return &printing.SubmitResponse{JobID: "pod_1", Status: model.PrintStatusCreated, ShippingMethod: req.ShippingMethod}, nil
}

type stubPriceOracle struct {
	priceFn func(context.Context, string, string) (int64, error)
	prices  map[string]int64
}

func (s stubPriceOracle) Price(ctx context.Context, bookID, format string) (int64, error) {
	if s.priceFn != nil {
		return s.priceFn(ctx, bookID, format)
	}
	if price, ok := s.prices[bookID+"/"+format]; ok {
		return price, nil
	}
	return 0, domainErrors.ErrUnknownPriceEntry
}

type stubPaymentClient struct {
	refundFn func(context.Context, string, *int64, string) (*model.Refund, error)
	refunds  []string
}

func (s *stubPaymentClient) CreateRefund(ctx context.Context, paymentIntentID string, amount *int64, reason string) (*model.Refund, error) {
	s.refunds = append(s.refunds, paymentIntentID)
	if s.refundFn != nil {
		return s.refundFn(ctx, paymentIntentID, amount, reason)
	}
	refunded := int64(0)
	if amount != nil {
		refunded = *amount
	}
	return &model.Refund{ID: "re_1", Amount: refunded, Status: "succeeded"}, nil
}

func digitalOrder(number string) *model.Order {
	return &model.Order{
		ID: 1, Number: number, SessionID: "cs_" + number, Email: "reader@example.com",
		Items: []model.LineItem{
			{BookID: "bk_1", Title: "Go Patterns", Format: model.FormatDigital, UnitAmount: 1500, Quantity: 1},
		},
		Currency: "usd", AmountTotal: 1500,
		Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending,
		FulfillmentStatus: model.FulfillmentPending,
	}
}

func mixedOrder(number string) *model.Order {
	order := digitalOrder(number)
	order.Items = append(order.Items, model.LineItem{
		BookID: "bk_2", Title: "Go Patterns", Format: model.FormatPaperback, UnitAmount: 2500, Quantity: 2,
	})
	order.Shipping = &model.ShippingAddress{
		Name: "Reader", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
	}
	order.AmountTotal = 6500
	return order
}

func newTestFulfillment(orders repository.OrderRepository, printJobs repository.PrintJobRepository, printer printing.Client, mail mailer.Mailer) *FulfillmentUseCase {
	issuer := download.NewIssuer(download.Options{TTL: time.Hour, MaxUses: 3})
	return NewFulfillmentUseCase(orders, printJobs, printer, mail, issuer, "https://shop.example.com", discardLogger())
}
