package model

import "time"

// Provider event types the ingress controller dispatches on. Unknown
// types are acknowledged and ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventChargeRefunded    = "charge.refunded"
)

// PaymentEvent is one ledger entry for a provider notification. The row
// is inserted the moment the signature verifies, before any business
// logic, and updated exactly once when handling finishes.
type PaymentEvent struct {
	ID          int64
	EventID     string
	Type        string
	OrderNumber *string
	Payload     []byte
	Processed   bool
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// ProviderEvent is the parsed form of a verified provider notification.
type ProviderEvent struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	OrderNumber     string
	Amount          int64
	Reason          string
	Raw             []byte
}
