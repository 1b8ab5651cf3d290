package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkravets/bookpress/internal/domain/model"
)

// FulfillmentFacade exposes the subset of application functionality required by the worker.
type FulfillmentFacade interface {
	UnprocessedEvents(ctx context.Context, grace time.Duration, limit int) ([]model.PaymentEvent, error)
	ReprocessEvent(ctx context.Context, event model.PaymentEvent) error
}

// EventReconciler re-drives ledger rows left unprocessed past a grace
// period, typically after a crash between ingestion and handling.
type EventReconciler struct {
	facade       FulfillmentFacade
	pollInterval time.Duration
	grace        time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.PaymentEvent
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewEventReconciler constructs the reconciliation worker pool.
func NewEventReconciler(facade FulfillmentFacade, pollInterval, grace time.Duration, batchSize, workers int, logger *slog.Logger) *EventReconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &EventReconciler{
		facade:       facade,
		pollInterval: pollInterval,
		grace:        grace,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.PaymentEvent, batchSize*workers),
	}
}

// Start launches background processing.
func (r *EventReconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *EventReconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *EventReconciler) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx)
		}
	}
}

func (r *EventReconciler) fetchAndDispatch(ctx context.Context) {
	events, err := r.facade.UnprocessedEvents(ctx, r.grace, r.batchSize)
	if err != nil {
		r.logger.Error("fetch unprocessed events failed", slog.String("error", err.Error()))
		return
	}
	for _, event := range events {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- event:
		}
	}
}

func (r *EventReconciler) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-r.jobs:
			if !ok {
				return
			}
			r.handleEvent(ctx, event)
		}
	}
}

func (r *EventReconciler) handleEvent(ctx context.Context, event model.PaymentEvent) {
	if err := r.facade.ReprocessEvent(ctx, event); err != nil {
		r.logger.Error("reprocess event failed",
			slog.String("event", event.EventID),
			slog.String("type", event.Type),
			slog.String("error", err.Error()))
		return
	}
	r.logger.Info("reprocessed stale event",
		slog.String("event", event.EventID), slog.String("type", event.Type))
}
