package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/database"
	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/internal/policy"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const notifyTimeout = 5 * time.Second

type bookingService struct {
	store        database.Store
	availability AvailabilityIndex
	notifier     Notifier
	expiry       ExpiryScheduler
	metrics      *metrics.Metrics
	opts         Options
}

// NewBookingService accepts nil notifier, expiry and metrics; notifications
// then go to the log only.
func NewBookingService(
	store database.Store,
	notifier Notifier,
	expiry ExpiryScheduler,
	m *metrics.Metrics,
	opts Options,
) BookingService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if expiry == nil {
		expiry = LogNotifier{}
	}

	return &bookingService{
		store:    store,
		notifier: notifier,
		expiry:   expiry,
		metrics:  m,
		opts:     opts.withDefaults(),
	}
}

func (s *bookingService) Create(ctx context.Context, actor entity.Actor, req *CreateBookingRequest) (booking *entity.Booking, err error) {
	defer s.track("create", time.Now(), &err)

	now := s.opts.Clock()
	start, end := req.StartTime.UTC(), req.EndTime.UTC()

	if !start.Before(end) {
		return nil, entity.Validation("start time must be before end time")
	}
	if start.Before(now) {
		return nil, entity.Validation("start time is in the past")
	}
	if !actor.IsDriver() {
		return nil, entity.Forbidden("only drivers can request bookings")
	}

	var car *entity.Car
	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		var err error
		car, err = tx.Cars().GetForUpdate(ctx, req.CarID)
		if err != nil {
			return err
		}
		if car.Status != entity.CarStatusAvailable && car.Status != entity.CarStatusRented {
			return entity.Conflict("car %s is %s and cannot be booked", car.ID, car.Status)
		}

		if err := s.availability.Check(ctx, tx, car.ID, actor.ID, start, end); err != nil {
			return err
		}

		quote := policy.Quote(car.PricePerDay, start, end, s.opts.PlatformFeePercent)
		b := &entity.Booking{
			ID:                 uuid.New(),
			CarID:              car.ID,
			RequesterID:        actor.ID,
			StartTime:          start,
			EndTime:            end,
			Status:             entity.BookingStatusPending,
			BasePrice:          quote.BasePrice,
			ExcessFee:          decimal.Zero,
			PlatformFee:        quote.PlatformFee,
			PlatformFeePercent: s.opts.PlatformFeePercent,
			TotalAmount:        quote.TotalAmount,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"car_id":       booking.CarID,
		"requester_id": booking.RequesterID,
		"total":        booking.TotalAmount.StringFixed(2),
	}).Info("Booking created")

	s.notify(ctx, Notification{Template: "booking_created", Recipient: car.OwnerID, Data: bookingData(booking)})
	return booking, nil
}

func (s *bookingService) Approve(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, approve bool) (booking *entity.Booking, err error) {
	defer s.track("approve", time.Now(), &err)

	action := entity.ActionReject
	if approve {
		action = entity.ActionApprove
	}

	now := s.opts.Clock()
	var from entity.BookingStatus

	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		b, car, err := s.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if !car.IsOwnedBy(actor.ID) {
			return entity.Forbidden("only the owner of car %s can decide on its bookings", car.ID)
		}

		next, err := entity.NextStatus(b.Status, action)
		if err != nil {
			return err
		}

		from = b.Status
		b.Status = next
		b.UpdatedAt = now

		if approve {
			b.ApprovedAt = timePtr(now)
			contract := &entity.Contract{
				ID:             uuid.New(),
				Kind:           entity.ContractKindBooking,
				CarID:          car.ID,
				BookingID:      &b.ID,
				OwnerID:        car.OwnerID,
				CounterpartyID: b.RequesterID,
				Status:         entity.ContractStatusPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := tx.Contracts().Create(ctx, contract); err != nil {
				return err
			}
		}

		if err := tx.Bookings().Update(ctx, b, from); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(booking, from, actor)

	template := "booking_rejected"
	if approve {
		template = "booking_approved"
		at := booking.ApprovedAt.Add(s.opts.PaymentTimeout)
		if err := s.expiry.ScheduleExpiry(detach(ctx), booking.ID, at); err != nil {
			logrus.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to schedule booking expiry")
		}
	}
	s.notify(ctx, Notification{Template: template, Recipient: booking.RequesterID, Data: bookingData(booking)})
	return booking, nil
}

func (s *bookingService) ConfirmPayment(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (booking *entity.Booking, err error) {
	defer s.track("confirm_payment", time.Now(), &err)

	now := s.opts.Clock()
	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.RequesterID != actor.ID {
			return entity.Forbidden("only the requester can pay for booking %s", b.ID)
		}
		if b.Status != entity.BookingStatusApproved {
			return entity.Conflict("cannot pay for booking in status %s", b.Status)
		}
		if b.IsPaid {
			return entity.Conflict("booking %s is already paid", b.ID)
		}

		b.IsPaid = true
		b.UpdatedAt = now
		if err := tx.Bookings().Update(ctx, b, entity.BookingStatusApproved); err != nil {
			return err
		}

		var ledger entries
		ledger.debit(b.ID, b.RequesterID, b.TotalAmount, entity.LedgerReasonPayment, now)
		if err := tx.Ledger().Append(ctx, ledger...); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"amount":     booking.TotalAmount.StringFixed(2),
	}).Info("Booking paid")
	return booking, nil
}

func (s *bookingService) MarkReadyForPickup(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (booking *entity.Booking, err error) {
	defer s.track("ready_for_pickup", time.Now(), &err)

	now := s.opts.Clock()
	var from entity.BookingStatus

	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		car, err := tx.Cars().GetForUpdate(ctx, b.CarID)
		if err != nil {
			return err
		}
		if !car.IsOwnedBy(actor.ID) {
			return entity.Forbidden("only the owner of car %s can hand it over", car.ID)
		}

		next, err := entity.NextStatus(b.Status, entity.ActionReady)
		if err != nil {
			return err
		}
		if !b.IsPaid {
			return entity.Conflict("booking %s is not paid", b.ID)
		}
		if !car.HasGPS {
			return entity.Conflict("car %s has no GPS tracker", car.ID)
		}

		contract, err := tx.Contracts().GetByBookingID(ctx, b.ID)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				return entity.Conflict("booking %s has no contract", b.ID)
			}
			return err
		}
		if !contract.IsSigned() {
			return entity.Conflict("contract for booking %s is %s", b.ID, contract.Status)
		}

		from = b.Status
		b.Status = next
		b.UpdatedAt = now
		if err := tx.Bookings().Update(ctx, b, from); err != nil {
			return err
		}
		if err := tx.Cars().UpdateStatus(ctx, car.ID, entity.CarStatusRented); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(booking, from, actor)
	return booking, nil
}

func (s *bookingService) StartTrip(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, req *StartTripRequest) (booking *entity.Booking, err error) {
	defer s.track("start_trip", time.Now(), &err)

	if req == nil {
		return nil, entity.Validation("start location is required")
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return nil, entity.Validation("invalid start location %f,%f", req.Latitude, req.Longitude)
	}

	now := s.opts.Clock()
	var (
		from entity.BookingStatus
		car  *entity.Car
	)

	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		b, c, err := s.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.RequesterID != actor.ID {
			return entity.Forbidden("only the requester can start the trip for booking %s", b.ID)
		}

		next, err := entity.NextStatus(b.Status, entity.ActionStart)
		if err != nil {
			return err
		}

		lat, lon := req.Latitude, req.Longitude
		from = b.Status
		b.Status = next
		b.TripStartedAt = timePtr(now)
		b.StartLatitude = &lat
		b.StartLongitude = &lon
		b.UpdatedAt = now

		if err := tx.Bookings().Update(ctx, b, from); err != nil {
			return err
		}
		booking, car = b, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(booking, from, actor)
	s.notify(ctx, Notification{Template: "trip_started", Recipient: car.OwnerID, Data: bookingData(booking)})
	return booking, nil
}

// Complete settles the trip: the requester is charged whatever the final
// total exceeds what was paid, the owner is credited the payout and the
// platform its fee.
func (s *bookingService) Complete(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, usage *policy.ExcessUsage) (booking *entity.Booking, err error) {
	defer s.track("complete", time.Now(), &err)

	if usage != nil && (usage.Units.IsNegative() || usage.Rate.IsNegative()) {
		return nil, entity.Validation("excess usage must not be negative")
	}

	now := s.opts.Clock()
	var (
		from entity.BookingStatus
		car  *entity.Car
	)

	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.RequesterID != actor.ID {
			return entity.Forbidden("only the requester can complete booking %s", b.ID)
		}
		c, err := tx.Cars().GetForUpdate(ctx, b.CarID)
		if err != nil {
			return err
		}

		next, err := entity.NextStatus(b.Status, entity.ActionComplete)
		if err != nil {
			return err
		}

		charge := policy.Completion(b, c, now, usage)

		paid := decimal.Zero
		if b.IsPaid {
			paid = b.TotalAmount
		}

		var ledger entries
		ledger.debit(b.ID, b.RequesterID, charge.TotalAmount.Sub(paid), entity.LedgerReasonExcessPayment, now)
		ledger.credit(b.ID, c.OwnerID, charge.OwnerPayout, entity.LedgerReasonOwnerPayout, now)
		ledger.credit(b.ID, entity.PlatformAccountID, charge.PlatformFee, entity.LedgerReasonPlatformFee, now)

		from = b.Status
		b.Status = next
		b.ExcessFee = charge.ExcessFee
		b.PlatformFee = charge.PlatformFee
		b.TotalAmount = charge.TotalAmount
		b.IsPaid = true
		b.ActualReturnTime = timePtr(now)
		b.UpdatedAt = now

		if err := tx.Bookings().Update(ctx, b, from); err != nil {
			return err
		}
		if err := tx.Ledger().Append(ctx, ledger...); err != nil {
			return err
		}
		if err := tx.Cars().UpdateStatus(ctx, c.ID, entity.CarStatusAvailable); err != nil {
			return err
		}

		booking, car = b, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(booking, from, actor)

	data := bookingData(booking)
	data["excess_fee"] = booking.ExcessFee.StringFixed(2)
	s.notify(ctx,
		Notification{Template: "booking_completed", Recipient: booking.RequesterID, Data: data},
		Notification{Template: "booking_completed", Recipient: car.OwnerID, Data: data},
	)
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor entity.Actor, bookingID uuid.UUID, reason string) (booking *entity.Booking, err error) {
	defer s.track("cancel", time.Now(), &err)

	now := s.opts.Clock()
	var (
		from    entity.BookingStatus
		car     *entity.Car
		outcome policy.CancellationOutcome
	)

	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		b, c, err := s.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		var by entity.CancelledBy
		switch {
		case b.RequesterID == actor.ID:
			by = entity.CancelledByRequester
		case c.IsOwnedBy(actor.ID):
			by = entity.CancelledByOwner
		default:
			return entity.Forbidden("only the requester or the car owner can cancel booking %s", b.ID)
		}

		next, err := entity.NextStatus(b.Status, entity.ActionCancel)
		if err != nil {
			return err
		}

		if by == entity.CancelledByRequester {
			since := now.Add(-s.opts.CancellationWindow)
			count, err := tx.Bookings().CountCancellations(ctx, b.RequesterID, entity.CancelledByRequester, since)
			if err != nil {
				return err
			}
			if count >= s.opts.CancellationLimit {
				return entity.PolicyViolation("cancellation limit reached: %d cancellations since %s",
					count, since.Format(time.RFC3339))
			}
		}

		outcome = policy.Cancellation(policy.CancellationInput{
			TotalAmount: b.TotalAmount,
			StartTime:   b.StartTime,
			Now:         now,
			CancelledBy: by,
		})

		var ledger entries
		if b.IsPaid {
			ledger.credit(b.ID, b.RequesterID, outcome.RefundAmount, entity.LedgerReasonRefund, now)
		}
		ledger.debit(b.ID, c.OwnerID, outcome.PenaltyAmount, entity.LedgerReasonOwnerPenalty, now)

		from = b.Status
		b.Status = next
		b.CancelledAt = timePtr(now)
		b.CancelledBy = &by
		b.Note = reason
		b.UpdatedAt = now

		if err := tx.Bookings().Update(ctx, b, from); err != nil {
			return err
		}
		if err := tx.Ledger().Append(ctx, ledger...); err != nil {
			return err
		}

		booking, car = b, c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(booking, from, actor)

	data := bookingData(booking)
	data["cancelled_by"] = string(*booking.CancelledBy)
	data["refund_percent"] = outcome.RefundPercent.String()
	data["penalty_percent"] = outcome.PenaltyPercent.String()
	if reason != "" {
		data["reason"] = reason
	}
	s.notify(ctx,
		Notification{Template: "booking_cancelled", Recipient: booking.RequesterID, Data: data},
		Notification{Template: "booking_cancelled", Recipient: car.OwnerID, Data: data},
	)
	return booking, nil
}

// Expire moves an overdue Pending or Approved booking to Expired. A booking
// that is no longer overdue, e.g. because it was paid, is a Conflict.
func (s *bookingService) Expire(ctx context.Context, bookingID uuid.UUID) (booking *entity.Booking, err error) {
	defer s.track("expire", time.Now(), &err)

	now := s.opts.Clock()
	var from entity.BookingStatus

	err = s.store.WithinTx(ctx, func(tx database.Tx) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}

		next, err := entity.NextStatus(b.Status, entity.ActionExpire)
		if err != nil {
			return err
		}
		if !s.overdue(b, now) {
			return entity.Conflict("booking %s is not overdue", b.ID)
		}

		from = b.Status
		b.Status = next
		b.UpdatedAt = now
		if err := tx.Bookings().Update(ctx, b, from); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(booking, from, entity.SystemActor)
	s.notify(ctx, Notification{Template: "booking_expired", Recipient: booking.RequesterID, Data: bookingData(booking)})
	return booking, nil
}

func (s *bookingService) overdue(b *entity.Booking, now time.Time) bool {
	switch b.Status {
	case entity.BookingStatusPending:
		return !b.StartTime.After(now)
	case entity.BookingStatusApproved:
		return !b.IsPaid && b.ApprovedAt != nil && !b.ApprovedAt.Add(s.opts.PaymentTimeout).After(now)
	}
	return false
}

// ExpireOverdue expires every overdue booking, each in its own unit of work.
// It returns how many were expired and the first infrastructure error.
func (s *bookingService) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.opts.Clock()

	var candidates []*entity.BookingExpiration
	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		var err error
		candidates, err = tx.Bookings().GetOverdue(ctx, now, now.Add(-s.opts.PaymentTimeout))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get overdue bookings: %w", err)
	}

	var (
		expired  int
		firstErr error
	)
	for _, c := range candidates {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}

		_, err := s.Expire(ctx, c.BookingID)
		switch {
		case err == nil:
			expired++
		case entity.IsBusiness(err):
			logrus.WithError(err).WithField("booking_id", c.BookingID).Debug("Skipped overdue booking")
		default:
			logrus.WithError(err).WithField("booking_id", c.BookingID).Error("Failed to expire booking")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if expired > 0 {
		logrus.WithField("count", expired).Info("Expired overdue bookings")
	}
	return expired, firstErr
}

func (s *bookingService) GetBooking(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error) {
	var booking *entity.Booking
	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		b, err := s.visibleBooking(ctx, tx, actor, bookingID)
		booking = b
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) GetLedger(ctx context.Context, actor entity.Actor, bookingID uuid.UUID) ([]*entity.LedgerEntry, error) {
	var ledger []*entity.LedgerEntry
	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		if _, err := s.visibleBooking(ctx, tx, actor, bookingID); err != nil {
			return err
		}
		var err error
		ledger, err = tx.Ledger().GetByBookingID(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

func (s *bookingService) ListRequesterBookings(ctx context.Context, actor entity.Actor) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		var err error
		bookings, err = tx.Bookings().GetByRequesterID(ctx, actor.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *bookingService) ListCarBookings(ctx context.Context, actor entity.Actor, carID uuid.UUID) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	err := s.store.WithinTx(ctx, func(tx database.Tx) error {
		car, err := tx.Cars().GetByID(ctx, carID)
		if err != nil {
			return err
		}
		if !car.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
			return entity.Forbidden("bookings of car %s are visible to its owner only", carID)
		}
		bookings, err = tx.Bookings().GetByCarID(ctx, carID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *bookingService) visibleBooking(ctx context.Context, tx database.Tx, actor entity.Actor, bookingID uuid.UUID) (*entity.Booking, error) {
	b, err := tx.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RequesterID == actor.ID || actor.IsAdmin() {
		return b, nil
	}

	car, err := tx.Cars().GetByID(ctx, b.CarID)
	if err != nil {
		return nil, err
	}
	if !car.IsOwnedBy(actor.ID) {
		return nil, entity.Forbidden("booking %s is not visible to user %s", b.ID, actor.ID)
	}
	return b, nil
}

// lockBooking locks the booking row and loads its car.
func (s *bookingService) lockBooking(ctx context.Context, tx database.Tx, bookingID uuid.UUID) (*entity.Booking, *entity.Car, error) {
	b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	car, err := tx.Cars().GetByID(ctx, b.CarID)
	if err != nil {
		return nil, nil, err
	}
	return b, car, nil
}

func (s *bookingService) transitioned(b *entity.Booking, from entity.BookingStatus, actor entity.Actor) {
	s.metrics.Transition(string(from), string(b.Status))
	logrus.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"from":       from,
		"to":         b.Status,
		"actor":      actor.ID,
	}).Info("Booking status changed")
}

func (s *bookingService) track(operation string, started time.Time, err *error) {
	s.metrics.Observe(operation, started)
	if *err != nil && entity.IsBusiness(*err) {
		s.metrics.Rejected(operation, entity.KindOf(*err))
	}
}

// notify runs after commit. Failures are logged and counted only.
func (s *bookingService) notify(ctx context.Context, notes ...Notification) {
	ctx, cancel := context.WithTimeout(detach(ctx), notifyTimeout)
	defer cancel()

	for _, n := range notes {
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.metrics.NotificationFailed(n.Template)
			logrus.WithError(err).WithFields(logrus.Fields{
				"template":  n.Template,
				"recipient": n.Recipient,
			}).Warn("Failed to send notification")
		}
	}
}

// detach keeps request values but not the request deadline, so a client
// disconnect after commit does not drop the notification.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func bookingData(b *entity.Booking) map[string]string {
	return map[string]string{
		"booking_id":   b.ID.String(),
		"car_id":       b.CarID.String(),
		"start_time":   b.StartTime.Format(time.RFC3339),
		"end_time":     b.EndTime.Format(time.RFC3339),
		"status":       string(b.Status),
		"total_amount": b.TotalAmount.StringFixed(2),
	}
}
