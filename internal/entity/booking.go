package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "pending"
	BookingStatusApproved       BookingStatus = "approved"
	BookingStatusRejected       BookingStatus = "rejected"
	BookingStatusReadyForPickup BookingStatus = "ready_for_pickup"
	BookingStatusOngoing        BookingStatus = "ongoing"
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusExpired        BookingStatus = "expired"
)

// CommittingStatuses block the car for the booked interval.
var CommittingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusReadyForPickup,
	BookingStatusOngoing,
}

func (s BookingStatus) IsCommitting() bool {
	for _, c := range CommittingStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// CancelledBy records which party cancelled; it drives the financial policy
// and the requester cancellation limit.
type CancelledBy string

const (
	CancelledByRequester CancelledBy = "requester"
	CancelledByOwner     CancelledBy = "owner"
)

type Booking struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	CarID              uuid.UUID       `json:"car_id" db:"car_id"`
	RequesterID        uuid.UUID       `json:"requester_id" db:"requester_id"`
	StartTime          time.Time       `json:"start_time" db:"start_time"`
	EndTime            time.Time       `json:"end_time" db:"end_time"`
	Status             BookingStatus   `json:"status" db:"status"`
	BasePrice          decimal.Decimal `json:"base_price" db:"base_price"`
	ExcessFee          decimal.Decimal `json:"excess_fee" db:"excess_fee"`
	PlatformFee        decimal.Decimal `json:"platform_fee" db:"platform_fee"`
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent" db:"platform_fee_percent"`
	TotalAmount        decimal.Decimal `json:"total_amount" db:"total_amount"`
	IsPaid             bool            `json:"is_paid" db:"is_paid"`
	ApprovedAt         *time.Time      `json:"approved_at,omitempty" db:"approved_at"`
	TripStartedAt      *time.Time      `json:"trip_started_at,omitempty" db:"trip_started_at"`
	StartLatitude      *float64        `json:"start_latitude,omitempty" db:"start_latitude"`
	StartLongitude     *float64        `json:"start_longitude,omitempty" db:"start_longitude"`
	ActualReturnTime   *time.Time      `json:"actual_return_time,omitempty" db:"actual_return_time"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy        *CancelledBy    `json:"cancelled_by,omitempty" db:"cancelled_by"`
	Note               string          `json:"note" db:"note"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// Overlaps uses half-open semantics: touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func (b *Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.EndTime, start, end)
}

// RentalDays rounds a partial day up; the minimum is one day.
func RentalDays(start, end time.Time) int64 {
	d := end.Sub(start)
	days := int64(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// BookingExpiration is a lightweight row returned by the overdue sweep.
type BookingExpiration struct {
	BookingID   uuid.UUID     `json:"booking_id"`
	CarID       uuid.UUID     `json:"car_id"`
	RequesterID uuid.UUID     `json:"requester_id"`
	Status      BookingStatus `json:"status"`
	StartTime   time.Time     `json:"start_time"`
}
