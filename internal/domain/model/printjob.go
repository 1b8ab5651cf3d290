package model

import "time"

// Provider-reported print job statuses.
const (
	PrintStatusCreated           = "CREATED"
	PrintStatusProductionDelayed = "PRODUCTION_DELAYED"
	PrintStatusInProduction      = "IN_PRODUCTION"
	PrintStatusShipped           = "SHIPPED"
	PrintStatusCanceled          = "CANCELED"
	PrintStatusRejected          = "REJECTED"
)

// PrintJob is one physical fulfillment submission. At most one active
// job exists per order; retries must find the existing job instead of
// submitting a duplicate.
type PrintJob struct {
	ID             int64
	OrderNumber    string
	ProviderJobID  string
	Status         string
	TrackingID     *string
	TrackingURL    *string
	Quantity       int
	ShippingMethod string
	ShippingCost   int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PrintEvent is a verified status notification from the POD provider,
// keyed by the external order reference set at submission time.
type PrintEvent struct {
	ID            string
	ProviderJobID string
	ExternalID    string
	Status        string
	TrackingID    string
	TrackingURL   string
	Raw           []byte
}
