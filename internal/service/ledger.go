package service

import (
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func ledgerEntry(bookingID, userID uuid.UUID, dir entity.LedgerDirection, amount decimal.Decimal, reason string, at time.Time) *entity.LedgerEntry {
	return &entity.LedgerEntry{
		ID:        uuid.New(),
		BookingID: bookingID,
		UserID:    userID,
		Direction: dir,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: at,
	}
}

// entries collects ledger movements for one unit of work, dropping zero amounts.
type entries []*entity.LedgerEntry

func (e *entries) credit(bookingID, userID uuid.UUID, amount decimal.Decimal, reason string, at time.Time) {
	if amount.IsPositive() {
		*e = append(*e, ledgerEntry(bookingID, userID, entity.LedgerCredit, amount, reason, at))
	}
}

func (e *entries) debit(bookingID, userID uuid.UUID, amount decimal.Decimal, reason string, at time.Time) {
	if amount.IsPositive() {
		*e = append(*e, ledgerEntry(bookingID, userID, entity.LedgerDebit, amount, reason, at))
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
