package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/usecase"
)

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	CreateFn func(context.Context, usecase.CreateOrderInput) (*model.Order, error)
	StatusFn func(context.Context, string) (*model.Order, error)
	RefundFn func(context.Context, string, *int64, string) (*model.Refund, error)
}

// CreateOrder delegates to provided function or returns default order.
func (s OrderFacadeStub) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, in)
	}
	return &model.Order{Number: "BP-TEST", SessionID: in.SessionID, Email: in.Email}, nil
}

// OrderStatus returns configured order data.
func (s OrderFacadeStub) OrderStatus(ctx context.Context, number string) (*model.Order, error) {
	if s.StatusFn != nil {
		return s.StatusFn(ctx, number)
	}
	return &model.Order{Number: number, Status: model.OrderStatusPending}, nil
}

// Refund executes configured refund handler.
func (s OrderFacadeStub) Refund(ctx context.Context, number string, amount *int64, reason string) (*model.Refund, error) {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, number, amount, reason)
	}
	return &model.Refund{ID: "re_1", Status: "succeeded"}, nil
}

// WebhookFacadeStub simulates the ingress pipeline.
type WebhookFacadeStub struct {
	ProcessFn      func(context.Context, model.ProviderEvent) (usecase.Result, error)
	ProcessPrintFn func(context.Context, model.PrintEvent) (usecase.Result, error)

	mu          sync.Mutex
	Events      []model.ProviderEvent
	PrintEvents []model.PrintEvent
}

// ProcessEvent records the delivery and returns configured result.
func (s *WebhookFacadeStub) ProcessEvent(ctx context.Context, evt model.ProviderEvent) (usecase.Result, error) {
	s.mu.Lock()
	s.Events = append(s.Events, evt)
	s.mu.Unlock()
	if s.ProcessFn != nil {
		return s.ProcessFn(ctx, evt)
	}
	return usecase.Result{}, nil
}

// ProcessPrintEvent records the POD delivery.
func (s *WebhookFacadeStub) ProcessPrintEvent(ctx context.Context, evt model.PrintEvent) (usecase.Result, error) {
	s.mu.Lock()
	s.PrintEvents = append(s.PrintEvents, evt)
	s.mu.Unlock()
	if s.ProcessPrintFn != nil {
		return s.ProcessPrintFn(ctx, evt)
	}
	return usecase.Result{}, nil
}

// DownloadFacadeStub resolves download credentials for tests.
type DownloadFacadeStub struct {
	ConsumeFn func(context.Context, string) (*model.Order, error)
}

// ConsumeDownload delegates to provided function or returns a default order.
func (s DownloadFacadeStub) ConsumeDownload(ctx context.Context, token string) (*model.Order, error) {
	if s.ConsumeFn != nil {
		return s.ConsumeFn(ctx, token)
	}
	return &model.Order{Number: "BP-TEST", DownloadToken: &token}, nil
}

// FacadeStub aggregates the per-handler stubs into the full surface.
type FacadeStub struct {
	OrderFacadeStub
	*WebhookFacadeStub
	DownloadFacadeStub
}

// NewFacadeStub constructs a stub with default behaviour everywhere.
func NewFacadeStub() *FacadeStub {
	return &FacadeStub{WebhookFacadeStub: &WebhookFacadeStub{}}
}

// WorkerFacadeStub mimics reconciler interactions with the facade.
type WorkerFacadeStub struct {
	Batches     [][]model.PaymentEvent
	EventsFn    func(context.Context, time.Duration, int) ([]model.PaymentEvent, error)
	ReprocessFn func(context.Context, model.PaymentEvent) error

	mu             sync.Mutex
	Reprocessed    []string
	batchCallCount int32
}

// UnprocessedEvents returns batches from the configured queue.
func (s *WorkerFacadeStub) UnprocessedEvents(ctx context.Context, grace time.Duration, limit int) ([]model.PaymentEvent, error) {
	if s.EventsFn != nil {
		return s.EventsFn(ctx, grace, limit)
	}
	call := atomic.AddInt32(&s.batchCallCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// ReprocessEvent records re-driven events.
func (s *WorkerFacadeStub) ReprocessEvent(ctx context.Context, event model.PaymentEvent) error {
	if s.ReprocessFn != nil {
		return s.ReprocessFn(ctx, event)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reprocessed = append(s.Reprocessed, event.EventID)
	return nil
}

// ReprocessedIDs returns a copy of recorded event identifiers.
func (s *WorkerFacadeStub) ReprocessedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Reprocessed))
	copy(out, s.Reprocessed)
	return out
}
