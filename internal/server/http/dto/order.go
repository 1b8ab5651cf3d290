package dto

import "time"

// CreateOrderItem is one requested line item. Prices are computed
// server-side and never accepted from the client.
type CreateOrderItem struct {
	BookID   string `json:"book_id" binding:"required"`
	Title    string `json:"title"`
	Format   string `json:"format" binding:"required"`
	Quantity int    `json:"quantity"`
}

// CreateOrderShipping is the shipping address for physical items.
type CreateOrderShipping struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CreateOrderRequest creates the pending order record at
// checkout-session creation time.
type CreateOrderRequest struct {
	SessionID string               `json:"session_id" binding:"required"`
	Email     string               `json:"email" binding:"required,email"`
	Currency  string               `json:"currency"`
	Items     []CreateOrderItem    `json:"items" binding:"required"`
	Shipping  *CreateOrderShipping `json:"shipping"`
}

// CreateOrderResponse returns the recorded order identity and total.
type CreateOrderResponse struct {
	Number      string `json:"number"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
}

// OrderItemResponse is one line item in a status response.
type OrderItemResponse struct {
	BookID     string `json:"book_id"`
	Title      string `json:"title"`
	Format     string `json:"format"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
}

// OrderStatusResponse is the three-axis order status.
type OrderStatusResponse struct {
	Number            string              `json:"number"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"payment_status"`
	FulfillmentStatus string              `json:"fulfillment_status"`
	Items             []OrderItemResponse `json:"items"`
	AmountTotal       int64               `json:"amount_total"`
	Currency          string              `json:"currency"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	RefundedAt        *time.Time          `json:"refunded_at,omitempty"`
}

// DownloadResponse acknowledges a spent download use.
type DownloadResponse struct {
	OrderNumber   string    `json:"order_number"`
	Items         []string  `json:"items"`
	RemainingUses int       `json:"remaining_uses"`
	ExpiresAt     time.Time `json:"expires_at"`
}
