package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
)

const contractColumns = `
	id, kind, car_id, booking_id, inspection_schedule_id, owner_id, counterparty_id,
	status, owner_signature_date, counterparty_signature_date, created_at, updated_at`

type contractRepository struct {
	q querier
}

func scanContract(row rowScanner) (*entity.Contract, error) {
	var c entity.Contract
	err := row.Scan(
		&c.ID,
		&c.Kind,
		&c.CarID,
		&c.BookingID,
		&c.InspectionScheduleID,
		&c.OwnerID,
		&c.CounterpartyID,
		&c.Status,
		&c.OwnerSignatureDate,
		&c.CounterpartySignatureDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contractRepository) Create(ctx context.Context, c *entity.Contract) error {
	query := `INSERT INTO contracts (` + contractColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.q.ExecContext(ctx, query,
		c.ID, c.Kind, c.CarID, c.BookingID, c.InspectionScheduleID, c.OwnerID, c.CounterpartyID,
		c.Status, c.OwnerSignatureDate, c.CounterpartySignatureDate, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if mapped := mapError(err); entity.IsBusiness(mapped) {
			return mapped
		}
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

func (r *contractRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, id, "contract %s not found")
}

func (r *contractRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, id, "contract %s not found")
}

func (r *contractRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE booking_id = $1`, bookingID, "contract for booking %s not found")
}

func (r *contractRepository) GetByInspectionID(ctx context.Context, scheduleID uuid.UUID) (*entity.Contract, error) {
	return r.get(ctx, `SELECT `+contractColumns+` FROM contracts WHERE inspection_schedule_id = $1`, scheduleID, "contract for inspection %s not found")
}

func (r *contractRepository) get(ctx context.Context, query string, id uuid.UUID, notFound string) (*entity.Contract, error) {
	c, err := scanContract(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.NotFound(notFound, id)
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

func (r *contractRepository) Update(ctx context.Context, c *entity.Contract) error {
	query := `
		UPDATE contracts
		SET status = $2, owner_signature_date = $3, counterparty_signature_date = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, c.ID, c.Status, c.OwnerSignatureDate, c.CounterpartySignatureDate, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.NotFound("contract %s not found", c.ID)
	}
	return nil
}
