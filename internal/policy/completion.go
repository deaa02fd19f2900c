package policy

import (
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/shopspring/decimal"
)

// DefaultPlatformFeePercent is the marketplace cut of a completed booking.
var DefaultPlatformFeePercent = decimal.NewFromInt(10)

// ExcessUsage is an overage reported by the caller at completion, e.g. extra
// kilometres and the price per kilometre.
type ExcessUsage struct {
	Units decimal.Decimal `json:"units"`
	Rate  decimal.Decimal `json:"rate"`
}

type Charge struct {
	BasePrice   decimal.Decimal `json:"base_price"`
	ExcessFee   decimal.Decimal `json:"excess_fee"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OwnerPayout decimal.Decimal `json:"owner_payout"`
}

// BasePrice is the daily rate times the rounded-up number of rental days.
func BasePrice(pricePerDay decimal.Decimal, start, end time.Time) decimal.Decimal {
	return nonNegative(pricePerDay).Mul(decimal.NewFromInt(entity.RentalDays(start, end)))
}

// ExcessFee sums the late return overtime and the reported usage overage.
// The result is not rounded.
func ExcessFee(hourlyRate decimal.Decimal, end time.Time, actualReturn time.Time, usage *ExcessUsage) decimal.Decimal {
	fee := decimal.Zero

	if late := actualReturn.Sub(end); late > 0 {
		hours := decimal.NewFromFloat(late.Hours())
		fee = fee.Add(hours.Mul(nonNegative(hourlyRate)))
	}

	if usage != nil {
		fee = fee.Add(nonNegative(usage.Units).Mul(nonNegative(usage.Rate)))
	}

	return fee
}

// Compute applies the platform fee to base + excess. Rounding happens once,
// on the returned amounts.
func Compute(base, excess, feePercent decimal.Decimal) Charge {
	base = nonNegative(base)
	excess = nonNegative(excess)

	subtotal := base.Add(excess)
	fee := subtotal.Mul(nonNegative(feePercent)).Div(hundred)
	total := roundMoney(subtotal.Add(fee))
	roundedFee := roundMoney(fee)

	return Charge{
		BasePrice:   roundMoney(base),
		ExcessFee:   roundMoney(excess),
		PlatformFee: roundedFee,
		TotalAmount: total,
		OwnerPayout: nonNegative(total.Sub(roundedFee)),
	}
}

// Quote prices a booking at creation, before any excess is known.
func Quote(pricePerDay decimal.Decimal, start, end time.Time, feePercent decimal.Decimal) Charge {
	return Compute(BasePrice(pricePerDay, start, end), decimal.Zero, feePercent)
}

// Completion prices a finished trip.
func Completion(b *entity.Booking, car *entity.Car, actualReturn time.Time, usage *ExcessUsage) Charge {
	excess := ExcessFee(car.HourlyRate(), b.EndTime, actualReturn, usage)
	return Compute(b.BasePrice, excess, b.PlatformFeePercent)
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
