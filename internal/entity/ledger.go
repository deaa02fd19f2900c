package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LedgerDirection string

const (
	LedgerCredit LedgerDirection = "credit"
	LedgerDebit  LedgerDirection = "debit"
)

const (
	LedgerReasonPayment       = "booking_payment"
	LedgerReasonRefund        = "cancellation_refund"
	LedgerReasonOwnerPenalty  = "owner_cancellation_penalty"
	LedgerReasonOwnerPayout   = "completion_payout"
	LedgerReasonPlatformFee   = "platform_fee"
	LedgerReasonExcessPayment = "completion_excess_charge"
)

// PlatformAccountID receives platform fees.
var PlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// LedgerEntry is written in the same transaction as the booking change and
// relayed to the ledger topic afterwards.
type LedgerEntry struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	BookingID   uuid.UUID       `json:"booking_id" db:"booking_id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Direction   LedgerDirection `json:"direction" db:"direction"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Reason      string          `json:"reason" db:"reason"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty" db:"published_at"`
}
