package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const bookingColumns = `
	id, car_id, requester_id, start_time, end_time, status,
	base_price, excess_fee, platform_fee, platform_fee_percent, total_amount, is_paid,
	approved_at, trip_started_at, start_latitude, start_longitude,
	actual_return_time, cancelled_at, cancelled_by, note, created_at, updated_at`

type bookingRepository struct {
	q querier
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.CarID,
		&b.RequesterID,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.BasePrice,
		&b.ExcessFee,
		&b.PlatformFee,
		&b.PlatformFeePercent,
		&b.TotalAmount,
		&b.IsPaid,
		&b.ApprovedAt,
		&b.TripStartedAt,
		&b.StartLatitude,
		&b.StartLongitude,
		&b.ActualReturnTime,
		&b.CancelledAt,
		&b.CancelledBy,
		&b.Note,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create relies on the bookings_no_overlap exclusion constraint as the last
// line against double booking; a violation comes back as Conflict.
func (r *bookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.q.ExecContext(ctx, query,
		b.ID, b.CarID, b.RequesterID, b.StartTime, b.EndTime, b.Status,
		b.BasePrice, b.ExcessFee, b.PlatformFee, b.PlatformFeePercent, b.TotalAmount, b.IsPaid,
		b.ApprovedAt, b.TripStartedAt, b.StartLatitude, b.StartLongitude,
		b.ActualReturnTime, b.CancelledAt, b.CancelledBy, b.Note, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if mapped := mapError(err); entity.IsBusiness(mapped) {
			return mapped
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *bookingRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *bookingRepository) get(ctx context.Context, query string, id uuid.UUID) (*entity.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.NotFound("booking %s not found", id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// Update is a compare-and-set on status.
func (r *bookingRepository) Update(ctx context.Context, b *entity.Booking, expected entity.BookingStatus) error {
	query := `
		UPDATE bookings SET
			status = $3, base_price = $4, excess_fee = $5, platform_fee = $6, total_amount = $7,
			is_paid = $8, approved_at = $9, trip_started_at = $10, start_latitude = $11,
			start_longitude = $12, actual_return_time = $13, cancelled_at = $14, cancelled_by = $15,
			note = $16, updated_at = $17
		WHERE id = $1 AND status = $2
	`

	result, err := r.q.ExecContext(ctx, query,
		b.ID, expected,
		b.Status, b.BasePrice, b.ExcessFee, b.PlatformFee, b.TotalAmount,
		b.IsPaid, b.ApprovedAt, b.TripStartedAt, b.StartLatitude,
		b.StartLongitude, b.ActualReturnTime, b.CancelledAt, b.CancelledBy,
		b.Note, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.Conflict("booking %s is no longer %s", b.ID, expected)
	}
	return nil
}

func (r *bookingRepository) FindOverlapping(ctx context.Context, carID uuid.UUID, start, end time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE car_id = $1
			AND status = ANY($2)
			AND start_time < $4
			AND $3 < end_time
		ORDER BY start_time
	`
	return r.list(ctx, query, carID, pq.Array(committingStatuses()), start, end)
}

func (r *bookingRepository) CountCancellations(ctx context.Context, requesterID uuid.UUID, by entity.CancelledBy, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE requester_id = $1 AND status = $2 AND cancelled_by = $3 AND cancelled_at >= $4
	`

	var count int
	err := r.q.QueryRowContext(ctx, query, requesterID, entity.BookingStatusCancelled, by, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cancellations: %w", err)
	}
	return count, nil
}

func (r *bookingRepository) GetByRequesterID(ctx context.Context, requesterID uuid.UUID) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE requester_id = $1 ORDER BY start_time`
	return r.list(ctx, query, requesterID)
}

func (r *bookingRepository) GetByCarID(ctx context.Context, carID uuid.UUID) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE car_id = $1 ORDER BY start_time`
	return r.list(ctx, query, carID)
}

func (r *bookingRepository) GetOverdue(ctx context.Context, now, approvedBefore time.Time) ([]*entity.BookingExpiration, error) {
	query := `
		SELECT id, car_id, requester_id, status, start_time
		FROM bookings
		WHERE (status = 'pending' AND start_time <= $1)
			OR (status = 'approved' AND NOT is_paid AND approved_at < $2)
		ORDER BY start_time
	`

	rows, err := r.q.QueryContext(ctx, query, now, approvedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue bookings: %w", err)
	}
	defer rows.Close()

	var expirations []*entity.BookingExpiration
	for rows.Next() {
		var exp entity.BookingExpiration
		if err := rows.Scan(&exp.BookingID, &exp.CarID, &exp.RequesterID, &exp.Status, &exp.StartTime); err != nil {
			return nil, fmt.Errorf("failed to scan overdue booking: %w", err)
		}
		expirations = append(expirations, &exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overdue bookings: %w", err)
	}
	return expirations, nil
}

func (r *bookingRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

func committingStatuses() []string {
	statuses := make([]string, 0, len(entity.CommittingStatuses))
	for _, s := range entity.CommittingStatuses {
		statuses = append(statuses, string(s))
	}
	return statuses
}
