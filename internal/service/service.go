package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/internal/policy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingService drives a booking through its lifecycle. Every call takes the
// acting user explicitly and runs as a single unit of work.
type BookingService interface {
	Create(ctx context.Context, actor entity.Actor, req *CreateBookingRequest) (*entity.Booking, error)
	Approve(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, approve bool) (*entity.Booking, error)
	ConfirmPayment(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error)
	MarkReadyForPickup(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error)
	StartTrip(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *StartTripRequest) (*entity.Booking, error)
	Complete(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, usage *policy.ExcessUsage) (*entity.Booking, error)
	Cancel(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, reason string) (*entity.Booking, error)

	// Expire and ExpireOverdue are system operations.
	Expire(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
	ExpireOverdue(ctx context.Context) (int, error)

	GetBooking(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error)
	ListRequesterBookings(ctx context.Context, actor entity.Actor) ([]*entity.Booking, error)
	ListCarBookings(ctx context.Context, actor entity.Actor, carID uuid.UUID) ([]*entity.Booking, error)
	GetLedger(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) ([]*entity.LedgerEntry, error)
}

// ContractService handles two-party signatures for inspection and booking
// contracts.
type ContractService interface {
	CreateInspectionContract(ctx context.Context, actor entity.Actor, scheduleID uuid.UUID) (*entity.Contract, error)
	Sign(ctx context.Context, actor entity.Actor, contractID uuid.UUID) (*entity.Contract, error)
	GetContract(ctx context.Context, actor entity.Actor, contractID uuid.UUID) (*entity.Contract, error)
	GetBookingContract(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Contract, error)
}

// FleetService registers cars and schedules their inspections.
type FleetService interface {
	RegisterCar(ctx context.Context, actor entity.Actor, req *RegisterCarRequest) (*entity.Car, error)
	GetCar(ctx context.Context, carID uuid.UUID) (*entity.Car, error)
	ScheduleInspection(ctx context.Context, actor entity.Actor, req *ScheduleInspectionRequest) (*entity.InspectionSchedule, error)
}

type CreateBookingRequest struct {
	CarID     uuid.UUID `json:"car_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

type StartTripRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type RegisterCarRequest struct {
	Brand        string          `json:"brand" binding:"required"`
	Model        string          `json:"model" binding:"required"`
	LicensePlate string          `json:"license_plate" binding:"required"`
	PricePerDay  decimal.Decimal `json:"price_per_day" binding:"required"`
	HasGPS       bool            `json:"has_gps"`
}

type ScheduleInspectionRequest struct {
	CarID          uuid.UUID `json:"car_id" binding:"required"`
	TechnicianID   uuid.UUID `json:"technician_id" binding:"required"`
	InspectionDate time.Time `json:"inspection_date" binding:"required"`
}

// Options are the booking policy knobs read from config.
type Options struct {
	PlatformFeePercent decimal.Decimal
	PaymentTimeout     time.Duration
	CancellationWindow time.Duration
	CancellationLimit  int
	Clock              Clock
}

func DefaultOptions() Options {
	return Options{
		PlatformFeePercent: policy.DefaultPlatformFeePercent,
		PaymentTimeout:     24 * time.Hour,
		CancellationWindow: 30 * 24 * time.Hour,
		CancellationLimit:  5,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PlatformFeePercent.IsNegative() {
		o.PlatformFeePercent = def.PlatformFeePercent
	}
	if o.PaymentTimeout <= 0 {
		o.PaymentTimeout = def.PaymentTimeout
	}
	if o.CancellationWindow <= 0 {
		o.CancellationWindow = def.CancellationWindow
	}
	if o.CancellationLimit <= 0 {
		o.CancellationLimit = def.CancellationLimit
	}
	if o.Clock == nil {
		o.Clock = systemClock
	}
	return o
}

// Clock is swapped in tests.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
