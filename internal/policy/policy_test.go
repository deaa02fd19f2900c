package policy

import (
	"testing"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRequesterRefundPercent(t *testing.T) {
	tests := []struct {
		name string
		lead time.Duration
		want int64
	}{
		{"ten days", 10 * day, 100},
		{"exactly seven days", 7 * day, 100},
		{"six days", 6 * day, 50},
		{"exactly five days", 5 * day, 50},
		{"four days", 4 * day, 30},
		{"exactly three days", 3 * day, 30},
		{"two days", 2 * day, 0},
		{"already started", -time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, RequesterRefundPercent(tt.lead).Equal(decimal.NewFromInt(tt.want)))
		})
	}
}

func TestRequesterRefundMonotonic(t *testing.T) {
	prev := RequesterRefundPercent(30 * day)
	for lead := 30 * day; lead >= -day; lead -= time.Hour {
		cur := RequesterRefundPercent(lead)
		assert.True(t, cur.LessThanOrEqual(prev), "refund grew at lead %s", lead)
		prev = cur
	}
}

func TestOwnerPenaltyPercent(t *testing.T) {
	tests := []struct {
		name string
		lead time.Duration
		want int64
	}{
		{"twelve hours", 12 * time.Hour, 50},
		{"exactly one day", day, 30},
		{"two days", 2 * day, 30},
		{"exactly three days", 3 * day, 10},
		{"five days", 5 * day, 10},
		{"exactly seven days", 7 * day, 0},
		{"after start", -day, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, OwnerPenaltyPercent(tt.lead).Equal(decimal.NewFromInt(tt.want)))
		})
	}
}

func TestCancellation(t *testing.T) {
	start := time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC)
	total := decimal.NewFromInt(110)

	tests := []struct {
		name        string
		now         time.Time
		by          entity.CancelledBy
		wantRefund  string
		wantPenalty string
	}{
		{"requester ten days ahead", start.Add(-10 * day), entity.CancelledByRequester, "110.00", "0.00"},
		{"requester six days ahead", start.Add(-6 * day), entity.CancelledByRequester, "55.00", "0.00"},
		{"requester four days ahead", start.Add(-4 * day), entity.CancelledByRequester, "33.00", "0.00"},
		{"requester two days ahead", start.Add(-2 * day), entity.CancelledByRequester, "0.00", "0.00"},
		{"owner twelve hours ahead", start.Add(-12 * time.Hour), entity.CancelledByOwner, "110.00", "55.00"},
		{"owner two days ahead", start.Add(-2 * day), entity.CancelledByOwner, "110.00", "33.00"},
		{"owner five days ahead", start.Add(-5 * day), entity.CancelledByOwner, "110.00", "11.00"},
		{"owner eight days ahead", start.Add(-8 * day), entity.CancelledByOwner, "110.00", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Cancellation(CancellationInput{
				TotalAmount: total,
				StartTime:   start,
				Now:         tt.now,
				CancelledBy: tt.by,
			})
			assert.Equal(t, tt.wantRefund, out.RefundAmount.StringFixed(2))
			assert.Equal(t, tt.wantPenalty, out.PenaltyAmount.StringFixed(2))
			assert.Equal(t, start.Sub(tt.now), out.LeadTime)
		})
	}
}

func TestComputeWorkedExample(t *testing.T) {
	c := Compute(decimal.NewFromInt(100), decimal.Zero, DefaultPlatformFeePercent)

	assert.Equal(t, "100.00", c.BasePrice.StringFixed(2))
	assert.Equal(t, "0.00", c.ExcessFee.StringFixed(2))
	assert.Equal(t, "10.00", c.PlatformFee.StringFixed(2))
	assert.Equal(t, "110.00", c.TotalAmount.StringFixed(2))
	assert.Equal(t, "100.00", c.OwnerPayout.StringFixed(2))
}

func TestComputeRoundsOnlyFinalAmounts(t *testing.T) {
	// 0.05 + 10% = 0.055; rounding the fee first would give 0.05.
	c := Compute(decimal.RequireFromString("0.05"), decimal.Zero, DefaultPlatformFeePercent)

	assert.Equal(t, "0.00", c.PlatformFee.StringFixed(2))
	assert.Equal(t, "0.06", c.TotalAmount.StringFixed(2))
	assert.Equal(t, "0.06", c.OwnerPayout.StringFixed(2))
}

func TestComputeNeverNegative(t *testing.T) {
	c := Compute(decimal.NewFromInt(-5), decimal.NewFromInt(-1), decimal.NewFromInt(-10))

	for _, d := range []decimal.Decimal{c.BasePrice, c.ExcessFee, c.PlatformFee, c.TotalAmount, c.OwnerPayout} {
		assert.False(t, d.IsNegative())
	}
}

func TestCompletionWithExcess(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * day)
	car := &entity.Car{PricePerDay: decimal.NewFromInt(240)}
	b := &entity.Booking{
		StartTime:          start,
		EndTime:            end,
		BasePrice:          BasePrice(car.PricePerDay, start, end),
		PlatformFeePercent: DefaultPlatformFeePercent,
	}

	usage := &ExcessUsage{Units: decimal.NewFromInt(10), Rate: decimal.RequireFromString("1.5")}
	c := Completion(b, car, end.Add(2*time.Hour), usage)

	assert.Equal(t, "480.00", c.BasePrice.StringFixed(2))
	assert.Equal(t, "35.00", c.ExcessFee.StringFixed(2))
	assert.Equal(t, "51.50", c.PlatformFee.StringFixed(2))
	assert.Equal(t, "566.50", c.TotalAmount.StringFixed(2))
	assert.Equal(t, "515.00", c.OwnerPayout.StringFixed(2))
}

func TestCompletionOnTimeHasNoExcess(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(day)
	car := &entity.Car{PricePerDay: decimal.NewFromInt(100)}
	b := &entity.Booking{StartTime: start, EndTime: end, BasePrice: decimal.NewFromInt(100), PlatformFeePercent: DefaultPlatformFeePercent}

	c := Completion(b, car, end.Add(-time.Hour), nil)
	assert.Equal(t, "0.00", c.ExcessFee.StringFixed(2))
	assert.Equal(t, "110.00", c.TotalAmount.StringFixed(2))
}

func TestQuote(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	c := Quote(decimal.NewFromInt(50), start, start.Add(2*day), DefaultPlatformFeePercent)
	assert.Equal(t, "100.00", c.BasePrice.StringFixed(2))
	assert.Equal(t, "110.00", c.TotalAmount.StringFixed(2))
}
