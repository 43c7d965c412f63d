// Package metrics provides prometheus collectors for the restriction engine.
//
// All methods are safe to call on a nil *Metrics, which disables collection.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch results.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// Subscriber removal reasons.
const (
	ReasonUnsubscribe = "unsubscribe"
	ReasonLiveness    = "liveness"
	ReasonRelease     = "release"
)

// Metrics provides observability for restriction computation and dispatch.
type Metrics struct {
	// Per-subscriber delivery attempts by result
	DispatchTotal *prometheus.CounterVec

	// Recomputations that produced the current restrictions again
	DispatchDeduped prometheus.Counter

	RestrictionChanges prometheus.Counter
	Subscribers        prometheus.Gauge

	// Subscriber removals by reason
	SubscriberRemovals *prometheus.CounterVec

	// 1 while the engine runs on the built-in default mapping
	MappingFallback prometheus.Gauge

	// Duration of delivering one snapshot to the whole subscriber set
	DispatchDuration prometheus.Histogram
}

// New creates a Metrics instance registered with reg.
// A nil reg registers with the default prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		DispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uxr_dispatch_total",
			Help: "Total snapshot deliveries to subscribers by result",
		}, []string{"result"}),

		DispatchDeduped: factory.NewCounter(prometheus.CounterOpts{
			Name: "uxr_dispatch_deduped_total",
			Help: "Total recomputations suppressed because restrictions did not change",
		}),

		RestrictionChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "uxr_restriction_changes_total",
			Help: "Total changes of the current restriction snapshot",
		}),

		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uxr_subscribers",
			Help: "Current number of registered subscribers",
		}),

		SubscriberRemovals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "uxr_subscriber_removals_total",
			Help: "Total subscriber removals by reason",
		}, []string{"reason"}),

		MappingFallback: factory.NewGauge(prometheus.GaugeOpts{
			Name: "uxr_mapping_fallback",
			Help: "Whether the engine is using the built-in fallback mapping (1) or the loaded table (0)",
		}),

		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "uxr_dispatch_duration_seconds",
			Help:    "Duration of delivering one snapshot to all subscribers",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5},
		}),
	}
}

// IncrementDispatch records one delivery attempt with the given result.
func (m *Metrics) IncrementDispatch(result string) {
	if m != nil {
		m.DispatchTotal.WithLabelValues(result).Inc()
	}
}

// IncrementDeduped records a suppressed recomputation.
func (m *Metrics) IncrementDeduped() {
	if m != nil {
		m.DispatchDeduped.Inc()
	}
}

// IncrementRestrictionChanges records a snapshot change.
func (m *Metrics) IncrementRestrictionChanges() {
	if m != nil {
		m.RestrictionChanges.Inc()
	}
}

// SetSubscribers sets the current subscriber count.
func (m *Metrics) SetSubscribers(count int) {
	if m != nil {
		m.Subscribers.Set(float64(count))
	}
}

// IncrementRemoval records a subscriber removal.
func (m *Metrics) IncrementRemoval(reason string) {
	if m != nil {
		m.SubscriberRemovals.WithLabelValues(reason).Inc()
	}
}

// SetFallback records whether the fallback mapping is in use.
func (m *Metrics) SetFallback(fallback bool) {
	if m != nil {
		v := 0.0
		if fallback {
			v = 1
		}
		m.MappingFallback.Set(v)
	}
}

// ObserveDispatch records the duration of one fan-out.
func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m != nil {
		m.DispatchDuration.Observe(d.Seconds())
	}
}
