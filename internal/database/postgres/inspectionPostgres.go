package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
)

const inspectionColumns = `id, car_id, technician_id, status, inspection_date, created_at, updated_at`

type inspectionRepository struct {
	q querier
}

func (r *inspectionRepository) Create(ctx context.Context, s *entity.InspectionSchedule) error {
	query := `INSERT INTO inspection_schedules (` + inspectionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.q.ExecContext(ctx, query, s.ID, s.CarID, s.TechnicianID, s.Status, s.InspectionDate, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create inspection schedule: %w", err)
	}
	return nil
}

func (r *inspectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.InspectionSchedule, error) {
	return r.get(ctx, `SELECT `+inspectionColumns+` FROM inspection_schedules WHERE id = $1`, id)
}

func (r *inspectionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.InspectionSchedule, error) {
	return r.get(ctx, `SELECT `+inspectionColumns+` FROM inspection_schedules WHERE id = $1 FOR UPDATE`, id)
}

func (r *inspectionRepository) get(ctx context.Context, query string, id uuid.UUID) (*entity.InspectionSchedule, error) {
	var s entity.InspectionSchedule
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.CarID,
		&s.TechnicianID,
		&s.Status,
		&s.InspectionDate,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.NotFound("inspection %s not found", id)
		}
		return nil, fmt.Errorf("failed to get inspection schedule: %w", err)
	}
	return &s, nil
}

func (r *inspectionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.InspectionStatus) error {
	query := `UPDATE inspection_schedules SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update inspection status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.NotFound("inspection %s not found", id)
	}
	return nil
}
