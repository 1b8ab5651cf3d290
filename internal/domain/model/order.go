package model

import (
	"encoding/json"
	"time"
)

// OrderStatus describes the overall order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusFailed    OrderStatus = "failed"
)

// PaymentStatus tracks the payment axis independently from the order axis.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

// FulfillmentStatus tracks post-payment delivery work.
type FulfillmentStatus string

const (
	FulfillmentPending               FulfillmentStatus = "pending"
	FulfillmentDigitalFulfilled      FulfillmentStatus = "digital_fulfilled"
	FulfillmentPrintJobCreated       FulfillmentStatus = "print_job_created"
	FulfillmentPrintJobFailed        FulfillmentStatus = "print_job_failed"
	FulfillmentDigitalDeliveryFailed FulfillmentStatus = "digital_delivery_failed"
	FulfillmentFulfilled             FulfillmentStatus = "fulfilled"
	FulfillmentShipped               FulfillmentStatus = "shipped"
	FulfillmentPrintCanceled         FulfillmentStatus = "print_canceled"
	FulfillmentPrintFailed           FulfillmentStatus = "print_failed"
)

// Book formats a line item can be sold in.
const (
	FormatDigital   = "digital"
	FormatPaperback = "paperback"
	FormatHardcover = "hardcover"
)

// FulfillmentKind classifies order composition for dispatching.
type FulfillmentKind string

const (
	KindDigital  FulfillmentKind = "digital"
	KindPhysical FulfillmentKind = "physical"
	KindMixed    FulfillmentKind = "mixed"
)

// LineItem is a single purchased book in a given format.
type LineItem struct {
	BookID     string `json:"book_id"`
	Title      string `json:"title"`
	Format     string `json:"format"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
}

// Physical reports whether this item requires print-and-ship fulfillment.
func (li LineItem) Physical() bool {
	return li.Format != FormatDigital
}

// ShippingAddress is captured at checkout for physical line items.
type ShippingAddress struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Order describes one purchase transaction. Rows are never deleted;
// refunds and failures are recorded on the row itself.
type Order struct {
	ID                int64
	Number            string
	SessionID         string
	PaymentIntentID   *string
	Email             string
	Items             []LineItem
	Shipping          *ShippingAddress
	Currency          string
	AmountTotal       int64
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
	DownloadToken     *string
	DownloadExpiresAt *time.Time
	DownloadCount     int
	DownloadLimit     int
	RefundStatus      *string
	RefundAmount      *int64
	RefundReason      *string
	Metadata          map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
	RefundedAt        *time.Time
}

// Kind derives order composition from the stored line items. The order
// row, not the provider payload, is the source of truth at fulfillment
// time.
func (o *Order) Kind() FulfillmentKind {
	var digital, physical bool
	for _, item := range o.Items {
		if item.Physical() {
			physical = true
		} else {
			digital = true
		}
	}
	switch {
	case digital && physical:
		return KindMixed
	case physical:
		return KindPhysical
	default:
		return KindDigital
	}
}

// PhysicalItems returns the subset of items requiring print fulfillment.
func (o *Order) PhysicalItems() []LineItem {
	var items []LineItem
	for _, item := range o.Items {
		if item.Physical() {
			items = append(items, item)
		}
	}
	return items
}

// MetadataJSON serializes order metadata for storage, defaulting to an
// empty object.
func (o *Order) MetadataJSON() []byte {
	if o.Metadata == nil {
		return []byte("{}")
	}
	data, err := json.Marshal(o.Metadata)
	if err != nil {
		return []byte("{}")
	}
	return data
}
