package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCount(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.Transition("pending", "approved")
	m.Transition("pending", "approved")
	m.Rejected("approve", "conflict")
	m.NotificationFailed("booking_approved")
	m.Published(3)
	m.Observe("approve", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("pending", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts.WithLabelValues("approve", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailures.WithLabelValues("booking_approved")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LedgerPublished))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transition("a", "b")
		m.Rejected("x", "y")
		m.NotificationFailed("z")
		m.Published(1)
		m.Observe("op", time.Now())
	})
}
