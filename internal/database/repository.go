package database

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
)

// Store runs units of work. Everything done through tx inside fn commits
// together or not at all; a cancelled ctx aborts the commit.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Cars() CarRepository
	Bookings() BookingRepository
	Contracts() ContractRepository
	Inspections() InspectionRepository
	Ledger() LedgerRepository
}

type CarRepository interface {
	Create(ctx context.Context, car *entity.Car) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Car, error)
	// GetForUpdate takes the car-scoped lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Car, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CarStatus) error
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// GetForUpdate locks the booking row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// Update writes booking only if its stored status still equals expected.
	Update(ctx context.Context, booking *entity.Booking, expected entity.BookingStatus) error

	FindOverlapping(ctx context.Context, carID uuid.UUID, start, end time.Time) ([]*entity.Booking, error)
	CountCancellations(ctx context.Context, requesterID uuid.UUID, by entity.CancelledBy, since time.Time) (int, error)

	GetByRequesterID(ctx context.Context, requesterID uuid.UUID) ([]*entity.Booking, error)
	GetByCarID(ctx context.Context, carID uuid.UUID) ([]*entity.Booking, error)
	GetOverdue(ctx context.Context, now, approvedBefore time.Time) ([]*entity.BookingExpiration, error)
}

type ContractRepository interface {
	Create(ctx context.Context, contract *entity.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Contract, error)
	GetByInspectionID(ctx context.Context, scheduleID uuid.UUID) (*entity.Contract, error)
	Update(ctx context.Context, contract *entity.Contract) error
}

type InspectionRepository interface {
	Create(ctx context.Context, schedule *entity.InspectionSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.InspectionSchedule, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.InspectionSchedule, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.InspectionStatus) error
}

type LedgerRepository interface {
	Append(ctx context.Context, entries ...*entity.LedgerEntry) error
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.LedgerEntry, error)
	GetUnpublished(ctx context.Context, limit int) ([]*entity.LedgerEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
