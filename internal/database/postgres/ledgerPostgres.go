package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const ledgerColumns = `id, booking_id, user_id, direction, amount, reason, created_at, published_at`

// ledgerRepository doubles as the outbox for the ledger topic.
type ledgerRepository struct {
	q querier
}

func (r *ledgerRepository) Append(ctx context.Context, entries ...*entity.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, e := range entries {
		_, err := r.q.ExecContext(ctx, query, e.ID, e.BookingID, e.UserID, e.Direction, e.Amount, e.Reason, e.CreatedAt, e.PublishedAt)
		if err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
	}
	return nil
}

func (r *ledgerRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE booking_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, bookingID)
}

// GetUnpublished skips rows another relay already holds.
func (r *ledgerRepository) GetUnpublished(ctx context.Context, limit int) ([]*entity.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	return r.list(ctx, query, limit)
}

func (r *ledgerRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	query := `UPDATE ledger_entries SET published_at = $2 WHERE id = ANY($1::uuid[]) AND published_at IS NULL`
	if _, err := r.q.ExecContext(ctx, query, pq.Array(raw), at); err != nil {
		return fmt.Errorf("failed to mark ledger entries published: %w", err)
	}
	return nil
}

func (r *ledgerRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(&e.ID, &e.BookingID, &e.UserID, &e.Direction, &e.Amount, &e.Reason, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}
