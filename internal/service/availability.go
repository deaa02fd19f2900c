package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/google/uuid"
)

// AvailabilityIndex answers whether a car is free for an interval. It must be
// called inside the unit of work that inserts the booking, after the car row
// has been locked, so that two creations for one car serialize.
type AvailabilityIndex struct{}

// HasConflict reports whether any committing booking of the car overlaps
// [start, end). Blocking is global per car: the requester's own bookings
// block them too.
func (AvailabilityIndex) HasConflict(ctx context.Context, tx database.Tx, carID, requesterID uuid.UUID, start, end time.Time) (bool, error) {
	overlapping, err := tx.Bookings().FindOverlapping(ctx, carID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to check availability of car %s: %w", carID, err)
	}

	for _, b := range overlapping {
		if b.Status.IsCommitting() && b.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

// Check is HasConflict turned into a Conflict error.
func (a AvailabilityIndex) Check(ctx context.Context, tx database.Tx, carID, requesterID uuid.UUID, start, end time.Time) error {
	conflict, err := a.HasConflict(ctx, tx, carID, requesterID, start, end)
	if err != nil {
		return err
	}
	if conflict {
		return entity.Conflict("car %s is already booked between %s and %s",
			carID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}
