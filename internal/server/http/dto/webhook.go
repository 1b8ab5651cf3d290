package dto

// WebhookResponse acknowledges a provider delivery. The provider sees
// success even when handling failed; the failure lives in the ledger.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RefundRequest is the admin refund action payload.
type RefundRequest struct {
	Amount *int64 `json:"amount"`
	Reason string `json:"reason"`
}

// RefundResponse mirrors the provider's refund object.
type RefundResponse struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}
