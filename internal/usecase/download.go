package usecase

import (
	"context"
	"time"

	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
)

// DownloadUseCase resolves download credentials.
type DownloadUseCase struct {
	orders repository.OrderRepository
	now    func() time.Time
}

// NewDownloadUseCase constructs DownloadUseCase.
func NewDownloadUseCase(orders repository.OrderRepository) *DownloadUseCase {
	return &DownloadUseCase{orders: orders, now: time.Now}
}

// Consume spends one use of the credential and returns the owning
// order. Expired or exhausted credentials are never returned even
// though their rows persist.
func (u *DownloadUseCase) Consume(ctx context.Context, token string) (*model.Order, error) {
	return u.orders.ConsumeDownload(ctx, token, u.now())
}
