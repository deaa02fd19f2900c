package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/crypto"

	"github.com/google/uuid"
)

const carColumns = `id, owner_id, brand, model, license_plate, status, price_per_day, has_gps, created_at, updated_at`

// carRepository seals license plates on the way in and opens them on the
// way out; the table never holds plaintext.
type carRepository struct {
	q   querier
	pii crypto.Cipher
}

func (r *carRepository) Create(ctx context.Context, car *entity.Car) error {
	plate, err := r.pii.Encrypt(car.LicensePlate)
	if err != nil {
		return fmt.Errorf("failed to encrypt license plate: %w", err)
	}

	query := `INSERT INTO cars (` + carColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = r.q.ExecContext(ctx, query,
		car.ID, car.OwnerID, car.Brand, car.Model, plate,
		car.Status, car.PricePerDay, car.HasGPS, car.CreatedAt, car.UpdatedAt,
	)
	if err != nil {
		if mapped := mapError(err); entity.IsBusiness(mapped) {
			return mapped
		}
		return fmt.Errorf("failed to create car: %w", err)
	}
	return nil
}

func (r *carRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Car, error) {
	return r.get(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id)
}

func (r *carRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Car, error) {
	return r.get(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1 FOR UPDATE`, id)
}

func (r *carRepository) get(ctx context.Context, query string, id uuid.UUID) (*entity.Car, error) {
	var car entity.Car
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&car.ID,
		&car.OwnerID,
		&car.Brand,
		&car.Model,
		&car.LicensePlate,
		&car.Status,
		&car.PricePerDay,
		&car.HasGPS,
		&car.CreatedAt,
		&car.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.NotFound("car %s not found", id)
		}
		return nil, fmt.Errorf("failed to get car: %w", err)
	}

	plate, err := r.pii.Decrypt(car.LicensePlate)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt license plate: %w", err)
	}
	car.LicensePlate = plate
	return &car, nil
}

func (r *carRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CarStatus) error {
	query := `UPDATE cars SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update car status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.NotFound("car %s not found", id)
	}
	return nil
}
