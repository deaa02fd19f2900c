// Package policy computes booking money movements. It performs no I/O; the
// booking service applies its results to the ledger.
package policy

import (
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// RequesterRefundPercent is non-increasing as the start approaches.
func RequesterRefundPercent(lead time.Duration) decimal.Decimal {
	switch {
	case lead >= 7*day:
		return decimal.NewFromInt(100)
	case lead >= 5*day:
		return decimal.NewFromInt(50)
	case lead >= 3*day:
		return decimal.NewFromInt(30)
	default:
		return decimal.Zero
	}
}

// OwnerPenaltyPercent is non-decreasing as the start approaches.
func OwnerPenaltyPercent(lead time.Duration) decimal.Decimal {
	switch {
	case lead < day:
		return decimal.NewFromInt(50)
	case lead < 3*day:
		return decimal.NewFromInt(30)
	case lead < 7*day:
		return decimal.NewFromInt(10)
	default:
		return decimal.Zero
	}
}

type CancellationInput struct {
	TotalAmount decimal.Decimal
	StartTime   time.Time
	Now         time.Time
	CancelledBy entity.CancelledBy
}

type CancellationOutcome struct {
	LeadTime       time.Duration
	RefundPercent  decimal.Decimal
	RefundAmount   decimal.Decimal
	PenaltyPercent decimal.Decimal
	PenaltyAmount  decimal.Decimal
}

// Cancellation returns the requester refund and the owner penalty for a
// cancellation at in.Now.
func Cancellation(in CancellationInput) CancellationOutcome {
	lead := in.StartTime.Sub(in.Now)
	total := nonNegative(in.TotalAmount)

	out := CancellationOutcome{
		LeadTime:       lead,
		RefundPercent:  decimal.Zero,
		RefundAmount:   decimal.Zero,
		PenaltyPercent: decimal.Zero,
		PenaltyAmount:  decimal.Zero,
	}

	switch in.CancelledBy {
	case entity.CancelledByOwner:
		out.RefundPercent = decimal.NewFromInt(100)
		out.PenaltyPercent = OwnerPenaltyPercent(lead)
	default:
		out.RefundPercent = RequesterRefundPercent(lead)
	}

	out.RefundAmount = roundMoney(total.Mul(out.RefundPercent).Div(hundred))
	out.PenaltyAmount = roundMoney(total.Mul(out.PenaltyPercent).Div(hundred))
	return out
}
