package model

// Refund is the provider's reply to a refund request.
type Refund struct {
	ID     string
	Amount int64
	Status string
}
