package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	Transitions          *prometheus.CounterVec
	Conflicts            *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	LedgerPublished      prometheus.Counter
	OperationDuration    *prometheus.HistogramVec
}

// NewMetrics registers on reg; pass prometheus.DefaultRegisterer in production.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions applied",
		}, []string{"from", "to"}),
		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Booking operations rejected with a business error",
		}, []string{"operation", "kind"}),
		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be enqueued",
		}, []string{"template"}),
		LedgerPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_published_total",
			Help:      "Ledger entries relayed to the event stream",
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_operation_duration_seconds",
			Help:      "Time taken by booking operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Rejected(operation, kind string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) NotificationFailed(template string) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(template).Inc()
}

func (m *Metrics) Published(n int) {
	if m == nil {
		return
	}
	m.LedgerPublished.Add(float64(n))
}

func (m *Metrics) Observe(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
