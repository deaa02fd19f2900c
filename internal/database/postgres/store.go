package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/crypto"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
)

// querier is satisfied by *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Store struct {
	db  *sql.DB
	pii crypto.Cipher
}

func NewStore(db *sql.DB, pii crypto.Cipher) *Store {
	if pii == nil {
		pii = crypto.Plaintext{}
	}
	return &Store{db: db, pii: pii}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx database.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{q: tx, pii: s.pii}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

type pgTx struct {
	q   querier
	pii crypto.Cipher
}

func (t *pgTx) Cars() database.CarRepository {
	return &carRepository{q: t.q, pii: t.pii}
}

func (t *pgTx) Bookings() database.BookingRepository {
	return &bookingRepository{q: t.q}
}

func (t *pgTx) Contracts() database.ContractRepository {
	return &contractRepository{q: t.q}
}

func (t *pgTx) Inspections() database.InspectionRepository {
	return &inspectionRepository{q: t.q}
}

func (t *pgTx) Ledger() database.LedgerRepository {
	return &ledgerRepository{q: t.q}
}

// mapError turns constraint violations into business conflicts and leaves
// everything else as an infrastructure error.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqExclusionViolation:
			return entity.Conflict("requested interval overlaps an existing booking")
		case pqUniqueViolation:
			return entity.Conflict("record already exists: %s", pqErr.Constraint)
		}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
