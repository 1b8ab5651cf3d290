package test

import (
	"context"
	"sync"

	"github.com/mkravets/bookpress/internal/adapter/mailer"
	"github.com/mkravets/bookpress/internal/adapter/printing"
	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
)

// MailerStub records outgoing messages.
type MailerStub struct {
	SendFn func(context.Context, mailer.Message) error

	mu       sync.Mutex
	Messages []mailer.Message
}

// Send stores the message or executes the override.
func (s *MailerStub) Send(ctx context.Context, msg mailer.Message) error {
	if s.SendFn != nil {
		return s.SendFn(ctx, msg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msg)
	return nil
}

// Sent returns a copy of recorded messages.
func (s *MailerStub) Sent() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mailer.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Templates returns template names of recorded messages in send order.
func (s *MailerStub) Templates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.Messages))
	for _, msg := range s.Messages {
		names = append(names, msg.Template)
	}
	return names
}

// PrinterStub simulates the POD submission API.
type PrinterStub struct {
	SubmitFn func(context.Context, printing.SubmitRequest) (*printing.SubmitResponse, error)

	mu          sync.Mutex
	Submissions []printing.SubmitRequest
}

// SubmitJob records the request and returns a canned acceptance.
func (s *PrinterStub) SubmitJob(ctx context.Context, req printing.SubmitRequest) (*printing.SubmitResponse, error) {
	s.mu.Lock()
	s.Submissions = append(s.Submissions, req)
	s.mu.Unlock()
	if s.SubmitFn != nil {
		return s.SubmitFn(ctx, req)
	}
	return &printing.SubmitResponse{
		JobID:          "pod-" + req.ExternalID,
		Status:         model.PrintStatusCreated,
		ShippingMethod: req.ShippingMethod,
	}, nil
}

// PriceOracleStub resolves prices from a fixed table.
type PriceOracleStub struct {
	PriceFn func(context.Context, string, string) (int64, error)
	Prices  map[string]int64
}

// Price looks up "bookID/format" in the table.
func (s PriceOracleStub) Price(ctx context.Context, bookID, format string) (int64, error) {
	if s.PriceFn != nil {
		return s.PriceFn(ctx, bookID, format)
	}
	if price, ok := s.Prices[bookID+"/"+format]; ok {
		return price, nil
	}
	return 0, domainErrors.ErrUnknownPriceEntry
}

// PaymentClientStub simulates the provider refund API.
type PaymentClientStub struct {
	CreateRefundFn func(context.Context, string, *int64, string) (*model.Refund, error)

	mu      sync.Mutex
	Refunds []string
}

// CreateRefund records the intent reference and returns a canned refund.
func (s *PaymentClientStub) CreateRefund(ctx context.Context, paymentIntentID string, amount *int64, reason string) (*model.Refund, error) {
	s.mu.Lock()
	s.Refunds = append(s.Refunds, paymentIntentID)
	s.mu.Unlock()
	if s.CreateRefundFn != nil {
		return s.CreateRefundFn(ctx, paymentIntentID, amount, reason)
	}
	refunded := int64(0)
	if amount != nil {
		refunded = *amount
	}
	return &model.Refund{ID: "re_1", Amount: refunded, Status: "succeeded"}, nil
}
