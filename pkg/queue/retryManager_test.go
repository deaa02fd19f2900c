package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	rm := NewRetryManager(3, time.Second)

	tests := []struct {
		name      string
		attempts  int
		err       error
		wantRetry bool
	}{
		{"transient first attempt", 1, errors.New("connection refused"), true},
		{"transient last attempt", 3, errors.New("connection refused"), false},
		{"conflict", 1, entity.Conflict("cannot expire booking in status completed"), false},
		{"not found", 1, entity.NotFound("booking missing"), false},
		{"nil error", 1, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{ID: "t", Type: TaskTypeExpireBooking, Attempts: tt.attempts}
			retry, delay := rm.ShouldRetry(task, tt.err)
			assert.Equal(t, tt.wantRetry, retry)
			if retry {
				assert.Greater(t, delay, time.Duration(0))
			}
		})
	}
}

func TestBackoffGrowsAndIsCapped(t *testing.T) {
	rm := NewRetryManager(10, time.Second)

	for attempt := 1; attempt <= 8; attempt++ {
		d := rm.calculateBackoff(attempt)
		assert.LessOrEqual(t, d, 16*time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(float64(time.Second)*0.75))
	}

	assert.Equal(t, 16*time.Second, rm.calculateBackoff(10))
}

func TestTaskGetters(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	task := &Task{Data: map[string]interface{}{
		"booking_id": "b-1",
		"at":         at.Format(time.RFC3339),
		"data":       map[string]interface{}{"car": "Lada", "days": 3.0},
	}}

	assert.Equal(t, "b-1", task.GetString("booking_id"))
	assert.Equal(t, "", task.GetString("missing"))
	assert.True(t, at.Equal(task.GetTime("at")))
	assert.Equal(t, map[string]string{"car": "Lada", "days": "3"}, task.GetStringMap("data"))
}
