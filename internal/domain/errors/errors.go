package errors

import "errors"

var (
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrNoFieldsToUpdate  = errors.New("no fields to update")
	ErrDownloadExpired   = errors.New("download expired or exhausted")
	ErrMissingPayment    = errors.New("order has no payment intent")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrUnknownPriceEntry = errors.New("unknown book or format")
	ErrInvalidAmount     = errors.New("invalid amount")
)
