package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/mkravets/bookpress/internal/domain/errors"
	"github.com/mkravets/bookpress/internal/domain/model"
	"github.com/mkravets/bookpress/internal/domain/repository"
)

const printJobColumns = `id, order_number, provider_job_id, status, tracking_id, tracking_url,
       quantity, shipping_method, shipping_cost, created_at, updated_at`

func scanPrintJob(row pgx.Row) (*model.PrintJob, error) {
	var j model.PrintJob
	err := row.Scan(&j.ID, &j.OrderNumber, &j.ProviderJobID, &j.Status, &j.TrackingID, &j.TrackingURL,
		&j.Quantity, &j.ShippingMethod, &j.ShippingCost, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *printJobRepository) Create(ctx context.Context, in repository.NewPrintJob) (*model.PrintJob, error) {
	const query = `INSERT INTO print_jobs (order_number, provider_job_id, status, quantity, shipping_method, shipping_cost)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   RETURNING id, created_at, updated_at`
	job := &model.PrintJob{
		OrderNumber:    in.OrderNumber,
		ProviderJobID:  in.ProviderJobID,
		Status:         in.Status,
		Quantity:       in.Quantity,
		ShippingMethod: in.ShippingMethod,
		ShippingCost:   in.ShippingCost,
	}
	err := r.storage.pool.QueryRow(ctx, query,
		in.OrderNumber, in.ProviderJobID, in.Status, in.Quantity, in.ShippingMethod, in.ShippingCost,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return job, nil
}

func (r *printJobRepository) GetByOrder(ctx context.Context, orderNumber string) (*model.PrintJob, error) {
	query := `SELECT ` + printJobColumns + ` FROM print_jobs WHERE order_number=$1`
	job, err := scanPrintJob(r.storage.pool.QueryRow(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *printJobRepository) GetByProviderJobID(ctx context.Context, providerJobID string) (*model.PrintJob, error) {
	query := `SELECT ` + printJobColumns + ` FROM print_jobs WHERE provider_job_id=$1`
	job, err := scanPrintJob(r.storage.pool.QueryRow(ctx, query, providerJobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *printJobRepository) UpdateStatus(ctx context.Context, providerJobID, status string, trackingID, trackingURL *string) error {
	const query = `UPDATE print_jobs
                   SET status=$2,
                       tracking_id=COALESCE($3, tracking_id),
                       tracking_url=COALESCE($4, tracking_url),
                       updated_at=NOW()
                   WHERE provider_job_id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, providerJobID, status, trackingID, trackingURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}
