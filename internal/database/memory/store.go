// Package memory is a process-local implementation of database.Store. Units
// of work are serialized and applied to a private copy of the data, which
// replaces the shared copy only when fn succeeds and ctx is still live.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
)

type state struct {
	cars        map[uuid.UUID]entity.Car
	bookings    map[uuid.UUID]entity.Booking
	contracts   map[uuid.UUID]entity.Contract
	inspections map[uuid.UUID]entity.InspectionSchedule
	ledger      []entity.LedgerEntry
}

func newState() *state {
	return &state{
		cars:        make(map[uuid.UUID]entity.Car),
		bookings:    make(map[uuid.UUID]entity.Booking),
		contracts:   make(map[uuid.UUID]entity.Contract),
		inspections: make(map[uuid.UUID]entity.InspectionSchedule),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.cars {
		c.cars[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.inspections {
		c.inspections[k] = v
	}
	c.ledger = append([]entity.LedgerEntry(nil), s.ledger...)
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx database.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{st: s.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.st = tx.st
	return nil
}

type memTx struct {
	st *state
}

func (t *memTx) Cars() database.CarRepository               { return carRepository{t.st} }
func (t *memTx) Bookings() database.BookingRepository       { return bookingRepository{t.st} }
func (t *memTx) Contracts() database.ContractRepository     { return contractRepository{t.st} }
func (t *memTx) Inspections() database.InspectionRepository { return inspectionRepository{t.st} }
func (t *memTx) Ledger() database.LedgerRepository          { return ledgerRepository{t.st} }

type carRepository struct{ st *state }

func (r carRepository) Create(ctx context.Context, car *entity.Car) error {
	if _, ok := r.st.cars[car.ID]; ok {
		return entity.Conflict("car %s already exists", car.ID)
	}
	r.st.cars[car.ID] = *car
	return nil
}

func (r carRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Car, error) {
	car, ok := r.st.cars[id]
	if !ok {
		return nil, entity.NotFound("car %s not found", id)
	}
	return &car, nil
}

// The whole unit of work already holds the store lock.
func (r carRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Car, error) {
	return r.GetByID(ctx, id)
}

func (r carRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.CarStatus) error {
	car, ok := r.st.cars[id]
	if !ok {
		return entity.NotFound("car %s not found", id)
	}
	car.Status = status
	car.UpdatedAt = time.Now().UTC()
	r.st.cars[id] = car
	return nil
}

type bookingRepository struct{ st *state }

func (r bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if _, ok := r.st.bookings[booking.ID]; ok {
		return entity.Conflict("booking %s already exists", booking.ID)
	}
	if booking.Status.IsCommitting() {
		for _, b := range r.st.bookings {
			if b.CarID == booking.CarID && b.Status.IsCommitting() && b.Overlaps(booking.StartTime, booking.EndTime) {
				return entity.Conflict("car %s is already booked for the requested interval", booking.CarID)
			}
		}
	}
	r.st.bookings[booking.ID] = *booking
	return nil
}

func (r bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, ok := r.st.bookings[id]
	if !ok {
		return nil, entity.NotFound("booking %s not found", id)
	}
	return &b, nil
}

func (r bookingRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r bookingRepository) Update(ctx context.Context, booking *entity.Booking, expected entity.BookingStatus) error {
	current, ok := r.st.bookings[booking.ID]
	if !ok {
		return entity.NotFound("booking %s not found", booking.ID)
	}
	if current.Status != expected {
		return entity.Conflict("booking %s is %s", booking.ID, current.Status)
	}
	r.st.bookings[booking.ID] = *booking
	return nil
}

func (r bookingRepository) FindOverlapping(ctx context.Context, carID uuid.UUID, start, end time.Time) ([]*entity.Booking, error) {
	var out []*entity.Booking
	for _, b := range r.st.bookings {
		if b.CarID == carID && b.Status.IsCommitting() && b.Overlaps(start, end) {
			b := b
			out = append(out, &b)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r bookingRepository) CountCancellations(ctx context.Context, requesterID uuid.UUID, by entity.CancelledBy, since time.Time) (int, error) {
	n := 0
	for _, b := range r.st.bookings {
		if b.RequesterID != requesterID || b.Status != entity.BookingStatusCancelled {
			continue
		}
		if b.CancelledBy == nil || *b.CancelledBy != by {
			continue
		}
		if b.CancelledAt != nil && !b.CancelledAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r bookingRepository) GetByRequesterID(ctx context.Context, requesterID uuid.UUID) ([]*entity.Booking, error) {
	return r.filter(func(b *entity.Booking) bool { return b.RequesterID == requesterID }), nil
}

func (r bookingRepository) GetByCarID(ctx context.Context, carID uuid.UUID) ([]*entity.Booking, error) {
	return r.filter(func(b *entity.Booking) bool { return b.CarID == carID }), nil
}

func (r bookingRepository) GetOverdue(ctx context.Context, now, approvedBefore time.Time) ([]*entity.BookingExpiration, error) {
	overdue := r.filter(func(b *entity.Booking) bool {
		switch b.Status {
		case entity.BookingStatusPending:
			return !b.StartTime.After(now)
		case entity.BookingStatusApproved:
			return !b.IsPaid && b.ApprovedAt != nil && b.ApprovedAt.Before(approvedBefore)
		}
		return false
	})

	out := make([]*entity.BookingExpiration, 0, len(overdue))
	for _, b := range overdue {
		out = append(out, &entity.BookingExpiration{
			BookingID:   b.ID,
			CarID:       b.CarID,
			RequesterID: b.RequesterID,
			Status:      b.Status,
			StartTime:   b.StartTime,
		})
	}
	return out, nil
}

func (r bookingRepository) filter(keep func(b *entity.Booking) bool) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range r.st.bookings {
		b := b
		if keep(&b) {
			out = append(out, &b)
		}
	}
	sortByStart(out)
	return out
}

func sortByStart(bookings []*entity.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].StartTime.Equal(bookings[j].StartTime) {
			return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
		}
		return bookings[i].StartTime.Before(bookings[j].StartTime)
	})
}

type contractRepository struct{ st *state }

func (r contractRepository) Create(ctx context.Context, contract *entity.Contract) error {
	for _, c := range r.st.contracts {
		if c.ID == contract.ID {
			return entity.Conflict("contract %s already exists", contract.ID)
		}
		if contract.BookingID != nil && c.BookingID != nil && *c.BookingID == *contract.BookingID {
			return entity.Conflict("booking %s already has a contract", *contract.BookingID)
		}
		if contract.InspectionScheduleID != nil && c.InspectionScheduleID != nil && *c.InspectionScheduleID == *contract.InspectionScheduleID {
			return entity.Conflict("inspection %s already has a contract", *contract.InspectionScheduleID)
		}
	}
	r.st.contracts[contract.ID] = *contract
	return nil
}

func (r contractRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	c, ok := r.st.contracts[id]
	if !ok {
		return nil, entity.NotFound("contract %s not found", id)
	}
	return &c, nil
}

func (r contractRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.GetByID(ctx, id)
}

func (r contractRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Contract, error) {
	for _, c := range r.st.contracts {
		if c.BookingID != nil && *c.BookingID == bookingID {
			return &c, nil
		}
	}
	return nil, entity.NotFound("contract for booking %s not found", bookingID)
}

func (r contractRepository) GetByInspectionID(ctx context.Context, scheduleID uuid.UUID) (*entity.Contract, error) {
	for _, c := range r.st.contracts {
		if c.InspectionScheduleID != nil && *c.InspectionScheduleID == scheduleID {
			return &c, nil
		}
	}
	return nil, entity.NotFound("contract for inspection %s not found", scheduleID)
}

func (r contractRepository) Update(ctx context.Context, contract *entity.Contract) error {
	if _, ok := r.st.contracts[contract.ID]; !ok {
		return entity.NotFound("contract %s not found", contract.ID)
	}
	r.st.contracts[contract.ID] = *contract
	return nil
}

type inspectionRepository struct{ st *state }

func (r inspectionRepository) Create(ctx context.Context, schedule *entity.InspectionSchedule) error {
	if _, ok := r.st.inspections[schedule.ID]; ok {
		return entity.Conflict("inspection %s already exists", schedule.ID)
	}
	r.st.inspections[schedule.ID] = *schedule
	return nil
}

func (r inspectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.InspectionSchedule, error) {
	s, ok := r.st.inspections[id]
	if !ok {
		return nil, entity.NotFound("inspection %s not found", id)
	}
	return &s, nil
}

func (r inspectionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.InspectionSchedule, error) {
	return r.GetByID(ctx, id)
}

func (r inspectionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.InspectionStatus) error {
	s, ok := r.st.inspections[id]
	if !ok {
		return entity.NotFound("inspection %s not found", id)
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	r.st.inspections[id] = s
	return nil
}

type ledgerRepository struct{ st *state }

func (r ledgerRepository) Append(ctx context.Context, entries ...*entity.LedgerEntry) error {
	for _, e := range entries {
		r.st.ledger = append(r.st.ledger, *e)
	}
	return nil
}

func (r ledgerRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	for _, e := range r.st.ledger {
		if e.BookingID == bookingID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r ledgerRepository) GetUnpublished(ctx context.Context, limit int) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	for _, e := range r.st.ledger {
		if limit > 0 && len(out) >= limit {
			break
		}
		if e.PublishedAt == nil {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r ledgerRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	marked := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		marked[id] = struct{}{}
	}
	for i := range r.st.ledger {
		if _, ok := marked[r.st.ledger[i].ID]; ok && r.st.ledger[i].PublishedAt == nil {
			publishedAt := at
			r.st.ledger[i].PublishedAt = &publishedAt
		}
	}
	return nil
}
