package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
)

// FieldUpdate records one UpdateFields invocation.
type FieldUpdate struct {
	Number string
	Fields map[string]any
}

// OrderRepositoryStub allows tests to customize behaviour.
type OrderRepositoryStub struct {
	CreateFn          func(context.Context, repository.NewOrder) (*model.Order, error)
	GetByNumberFn     func(context.Context, string) (*model.Order, error)
	GetBySessionIDFn  func(context.Context, string) (*model.Order, error)
	UpdateFieldsFn    func(context.Context, string, map[string]any) error
	MarkPaidFn        func(context.Context, string, string) error
	ConsumeDownloadFn func(context.Context, string, time.Time) (*model.Order, error)

	mu       sync.Mutex
	Orders   []model.Order
	Created  []repository.NewOrder
	Updates  []FieldUpdate
	PaidWith []string
}

// Create tracks invocations and returns configured responses.
func (s *OrderRepositoryStub) Create(ctx context.Context, order repository.NewOrder) (*model.Order, error) {
	s.mu.Lock()
	s.Created = append(s.Created, order)
	s.mu.Unlock()
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order)
	}
	return &model.Order{
		ID:                1,
		Number:            order.Number,
		SessionID:         order.SessionID,
		Email:             order.Email,
		Items:             order.Items,
		Shipping:          order.Shipping,
		Currency:          order.Currency,
		AmountTotal:       order.AmountTotal,
		Status:            model.OrderStatusPending,
		PaymentStatus:     model.PaymentStatusPending,
		FulfillmentStatus: model.FulfillmentPending,
		Metadata:          order.Metadata,
	}, nil
}

// GetByNumber returns matched order either via override or stored slice.
func (s *OrderRepositoryStub) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	if s.GetByNumberFn != nil {
		return s.GetByNumberFn(ctx, number)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.Orders {
		if o.Number == number {
			order := o
			return &order, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// GetBySessionID resolves the checkout session reference.
func (s *OrderRepositoryStub) GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	if s.GetBySessionIDFn != nil {
		return s.GetBySessionIDFn(ctx, sessionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.Orders {
		if o.SessionID == sessionID {
			order := o
			return &order, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// UpdateFields records partial updates.
func (s *OrderRepositoryStub) UpdateFields(ctx context.Context, number string, fields map[string]any) error {
	s.mu.Lock()
	s.Updates = append(s.Updates, FieldUpdate{Number: number, Fields: fields})
	s.mu.Unlock()
	if s.UpdateFieldsFn != nil {
		return s.UpdateFieldsFn(ctx, number, fields)
	}
	return nil
}

// MarkPaid records one-shot paid transitions.
func (s *OrderRepositoryStub) MarkPaid(ctx context.Context, number, paymentIntentID string) error {
	s.mu.Lock()
	s.PaidWith = append(s.PaidWith, number)
	s.mu.Unlock()
	if s.MarkPaidFn != nil {
		return s.MarkPaidFn(ctx, number, paymentIntentID)
	}
	return nil
}

// ConsumeDownload resolves the credential via override or stored orders.
func (s *OrderRepositoryStub) ConsumeDownload(ctx context.Context, token string, now time.Time) (*model.Order, error) {
	if s.ConsumeDownloadFn != nil {
		return s.ConsumeDownloadFn(ctx, token, now)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.Orders {
		if o.DownloadToken != nil && *o.DownloadToken == token {
			order := o
			return &order, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// UpdatesFor returns recorded field updates for the given order number.
func (s *OrderRepositoryStub) UpdatesFor(number string) []FieldUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updates []FieldUpdate
	for _, u := range s.Updates {
		if u.Number == number {
			updates = append(updates, u)
		}
	}
	return updates
}

// EventRepositoryStub keeps the ledger in-memory for tests.
type EventRepositoryStub struct {
	InsertFn          func(context.Context, string, string, *string, []byte) (bool, error)
	GetFn             func(context.Context, string) (*model.PaymentEvent, error)
	MarkProcessedFn   func(context.Context, string, *string) error
	ListUnprocessedFn func(context.Context, time.Time, int) ([]model.PaymentEvent, error)

	mu        sync.Mutex
	Rows      map[string]*model.PaymentEvent
	Processed []string
}

// NewEventRepositoryStub constructs stub ledger with initialized map.
func NewEventRepositoryStub() *EventRepositoryStub {
	return &EventRepositoryStub{Rows: make(map[string]*model.PaymentEvent)}
}

// Insert registers the event unless already present.
func (s *EventRepositoryStub) Insert(ctx context.Context, eventID, eventType string, orderNumber *string, payload []byte) (bool, error) {
	if s.InsertFn != nil {
		return s.InsertFn(ctx, eventID, eventType, orderNumber, payload)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Rows == nil {
		s.Rows = make(map[string]*model.PaymentEvent)
	}
	if _, exists := s.Rows[eventID]; exists {
		return false, nil
	}
	s.Rows[eventID] = &model.PaymentEvent{
		ID:          int64(len(s.Rows) + 1),
		EventID:     eventID,
		Type:        eventType,
		OrderNumber: orderNumber,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}
	return true, nil
}

// Get fetches the ledger row or returns not found.
func (s *EventRepositoryStub) Get(ctx context.Context, eventID string) (*model.PaymentEvent, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, eventID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.Rows[eventID]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// MarkProcessed closes the row and records the invocation.
func (s *EventRepositoryStub) MarkProcessed(ctx context.Context, eventID string, procErr *string) error {
	if s.MarkProcessedFn != nil {
		return s.MarkProcessedFn(ctx, eventID, procErr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed = append(s.Processed, eventID)
	if row, ok := s.Rows[eventID]; ok {
		now := time.Now()
		row.Processed = true
		row.ProcessedAt = &now
		row.Error = procErr
	}
	return nil
}

// ListUnprocessed returns open rows older than the watermark.
func (s *EventRepositoryStub) ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]model.PaymentEvent, error) {
	if s.ListUnprocessedFn != nil {
		return s.ListUnprocessedFn(ctx, olderThan, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []model.PaymentEvent
	for _, row := range s.Rows {
		if !row.Processed && row.CreatedAt.Before(olderThan) && len(events) < limit {
			events = append(events, *row)
		}
	}
	return events, nil
}

// PrintJobRepositoryStub keeps print jobs in-memory for tests.
type PrintJobRepositoryStub struct {
	CreateFn             func(context.Context, repository.NewPrintJob) (*model.PrintJob, error)
	GetByOrderFn         func(context.Context, string) (*model.PrintJob, error)
	GetByProviderJobIDFn func(context.Context, string) (*model.PrintJob, error)
	UpdateStatusFn       func(context.Context, string, string, *string, *string) error

	mu      sync.Mutex
	Jobs    []model.PrintJob
	Created []repository.NewPrintJob
}

// Create registers a job unless one already exists for the order.
func (s *PrintJobRepositoryStub) Create(ctx context.Context, job repository.NewPrintJob) (*model.PrintJob, error) {
	s.mu.Lock()
	s.Created = append(s.Created, job)
	s.mu.Unlock()
	if s.CreateFn != nil {
		return s.CreateFn(ctx, job)
	}
	created := model.PrintJob{
		ID:             int64(len(s.Jobs) + 1),
		OrderNumber:    job.OrderNumber,
		ProviderJobID:  job.ProviderJobID,
		Status:         job.Status,
		Quantity:       job.Quantity,
		ShippingMethod: job.ShippingMethod,
		ShippingCost:   job.ShippingCost,
	}
	s.mu.Lock()
	s.Jobs = append(s.Jobs, created)
	s.mu.Unlock()
	return &created, nil
}

// GetByOrder finds the job submitted for the order.
func (s *PrintJobRepositoryStub) GetByOrder(ctx context.Context, orderNumber string) (*model.PrintJob, error) {
	if s.GetByOrderFn != nil {
		return s.GetByOrderFn(ctx, orderNumber)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.Jobs {
		if j.OrderNumber == orderNumber {
			job := j
			return &job, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// GetByProviderJobID finds the job by the provider's identifier.
func (s *PrintJobRepositoryStub) GetByProviderJobID(ctx context.Context, providerJobID string) (*model.PrintJob, error) {
	if s.GetByProviderJobIDFn != nil {
		return s.GetByProviderJobIDFn(ctx, providerJobID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.Jobs {
		if j.ProviderJobID == providerJobID {
			job := j
			return &job, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// UpdateStatus applies the provider status to the stored job.
func (s *PrintJobRepositoryStub) UpdateStatus(ctx context.Context, providerJobID, status string, trackingID, trackingURL *string) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, providerJobID, status, trackingID, trackingURL)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Jobs {
		if s.Jobs[i].ProviderJobID == providerJobID {
			s.Jobs[i].Status = status
			if trackingID != nil {
				s.Jobs[i].TrackingID = trackingID
			}
			if trackingURL != nil {
				s.Jobs[i].TrackingURL = trackingURL
			}
			return nil
		}
	}
	return domainErrors.ErrNotFound
}
