package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// OverdueExpirer is the part of the booking service the sweep needs.
type OverdueExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpiryWorker expires overdue bookings whose delayed task was lost or never
// scheduled, e.g. Pending bookings whose start time has passed.
type ExpiryWorker struct {
	bookings OverdueExpirer
	interval time.Duration
}

func NewExpiryWorker(bookings OverdueExpirer, interval time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		bookings: bookings,
		interval: interval,
	}
}

func (w *ExpiryWorker) Name() string { return "booking_expiry" }

func (w *ExpiryWorker) Interval() time.Duration { return w.interval }

func (w *ExpiryWorker) Run(ctx context.Context) error {
	started := time.Now()

	expired, err := w.bookings.ExpireOverdue(ctx)
	if err != nil {
		return fmt.Errorf("expiry sweep stopped after %d bookings: %w", expired, err)
	}

	logrus.WithFields(logrus.Fields{
		"expired":  expired,
		"duration": time.Since(started),
	}).Debug("Expiry sweep completed")
	return nil
}
