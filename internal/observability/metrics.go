package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	backendRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "octofit_dashboard",
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the OctoFit REST backend.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"method", "resource", "outcome"})

	coercedPayloadCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "octofit_dashboard",
		Subsystem: "backend",
		Name:      "coerced_payloads_total",
		Help:      "List responses whose shape was not a list or results envelope and were treated as empty.",
	}, []string{"resource"})

	membershipChangeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "octofit_dashboard",
		Subsystem: "membership",
		Name:      "changes_total",
		Help:      "Team membership changes issued by the synchronizer, labeled by action and outcome.",
	}, []string{"action", "outcome"})

	openSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "octofit_dashboard",
		Subsystem: "editor",
		Name:      "open_sessions",
		Help:      "Number of edit sessions currently in the editing state.",
	})

	lastSubmitGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "octofit_dashboard",
		Subsystem: "editor",
		Name:      "last_successful_submit_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful user edit.",
	})
)

func init() {
	prometheus.MustRegister(backendRequestDuration, coercedPayloadCounter, membershipChangeCounter, openSessionsGauge, lastSubmitGauge)
}

// ObserveBackendRequest records the latency of a backend call.
func ObserveBackendRequest(method, resource string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	backendRequestDuration.WithLabelValues(method, resource, outcome).Observe(elapsed.Seconds())
}

// RecordCoercedPayload counts a list payload degraded to an empty list.
func RecordCoercedPayload(resource string) {
	coercedPayloadCounter.WithLabelValues(resource).Inc()
}

// RecordMembershipChange counts a synchronizer write.
func RecordMembershipChange(action string, err error) {
	outcome := "applied"
	if err != nil {
		outcome = "failed"
	}
	membershipChangeCounter.WithLabelValues(action, outcome).Inc()
}

// SetOpenSessions publishes the live edit session count.
func SetOpenSessions(n int) {
	openSessionsGauge.Set(float64(n))
}

// RecordSubmit updates the successful submit watermark.
func RecordSubmit(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSubmitGauge.Set(float64(ts.Unix()))
}

// CoercedPayloadCounter exposes the counter for tests.
func CoercedPayloadCounter(resource string) prometheus.Counter {
	return coercedPayloadCounter.WithLabelValues(resource)
}

// MembershipChangeCounter exposes the counter for tests.
func MembershipChangeCounter(action, outcome string) prometheus.Counter {
	return membershipChangeCounter.WithLabelValues(action, outcome)
}
