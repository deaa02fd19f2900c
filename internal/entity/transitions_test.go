package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name   string
		from   BookingStatus
		action BookingAction
		want   BookingStatus
	}{
		{"approve pending", BookingStatusPending, ActionApprove, BookingStatusApproved},
		{"reject pending", BookingStatusPending, ActionReject, BookingStatusRejected},
		{"cancel pending", BookingStatusPending, ActionCancel, BookingStatusCancelled},
		{"expire pending", BookingStatusPending, ActionExpire, BookingStatusExpired},
		{"ready approved", BookingStatusApproved, ActionReady, BookingStatusReadyForPickup},
		{"cancel approved", BookingStatusApproved, ActionCancel, BookingStatusCancelled},
		{"expire approved", BookingStatusApproved, ActionExpire, BookingStatusExpired},
		{"start ready", BookingStatusReadyForPickup, ActionStart, BookingStatusOngoing},
		{"complete ongoing", BookingStatusOngoing, ActionComplete, BookingStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.from, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransitionClosure(t *testing.T) {
	allowed := map[BookingStatus][]BookingStatus{
		BookingStatusPending:        {BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled, BookingStatusExpired},
		BookingStatusApproved:       {BookingStatusReadyForPickup, BookingStatusCancelled, BookingStatusExpired},
		BookingStatusReadyForPickup: {BookingStatusOngoing},
		BookingStatusOngoing:        {BookingStatusCompleted},
	}
	actions := []BookingAction{ActionApprove, ActionReject, ActionReady, ActionStart, ActionComplete, ActionCancel, ActionExpire}

	for _, from := range AllBookingStatuses {
		for _, action := range actions {
			next, err := NextStatus(from, action)
			if err != nil {
				assert.True(t, errors.Is(err, ErrConflict), "%s/%s", from, action)
				assert.Contains(t, err.Error(), string(from))
				continue
			}
			assert.Contains(t, allowed[from], next, "%s/%s reached %s", from, action, next)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []BookingStatus{BookingStatusRejected, BookingStatusCancelled, BookingStatusExpired, BookingStatusCompleted} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsCommitting(), s)
	}
	for _, s := range CommittingStatuses {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical", base, base.Add(2 * day), true},
		{"inside", base.Add(time.Hour), base.Add(day), true},
		{"covering", base.Add(-day), base.Add(3 * day), true},
		{"tail overlap", base.Add(day), base.Add(3 * day), true},
		{"touching end", base.Add(2 * day), base.Add(3 * day), false},
		{"touching start", base.Add(-day), base, false},
		{"disjoint", base.Add(5 * day), base.Add(6 * day), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(base, base.Add(2*day), tt.start, tt.end))
			assert.Equal(t, tt.want, Overlaps(tt.start, tt.end, base, base.Add(2*day)))
		})
	}
}

func TestRentalDays(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(1), RentalDays(base, base.Add(time.Hour)))
	assert.Equal(t, int64(1), RentalDays(base, base.Add(24*time.Hour)))
	assert.Equal(t, int64(2), RentalDays(base, base.Add(25*time.Hour)))
	assert.Equal(t, int64(3), RentalDays(base, base.Add(72*time.Hour)))
}
