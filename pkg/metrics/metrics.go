// Package metrics exposes Prometheus counters and a histogram for session
// churn, per-direction throughput, and handshake failures.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionRestarts counts every time the supervisor re-enters its
	// bring-up loop, labeled by the reason the prior session ended.
	SessionRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aawg_session_restarts_total",
		Help: "The total number of session restarts, by ending cause",
	}, []string{"reason"})

	// BytesTotal accumulates proxied bytes per direction.
	BytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aawg_bytes_total",
		Help: "The total number of bytes proxied, by direction",
	}, []string{"direction"})

	// HandshakeFailures counts Bluetooth handshake failures by class.
	HandshakeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aawg_handshake_failures_total",
		Help: "The total number of handshake failures, by error class",
	}, []string{"reason"})

	// SessionDuration observes how long each session ran before ending.
	SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aawg_session_duration_seconds",
		Help:    "Session duration from bring-up to teardown",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Direction label values for BytesTotal.
const (
	DirectionPhoneToCar = "phone_to_car"
	DirectionCarToPhone = "car_to_phone"
)

// AddBytes increments BytesTotal for direction by n.
func AddBytes(direction string, n uint64) {
	BytesTotal.WithLabelValues(direction).Add(float64(n))
}

// IncSessionRestart increments SessionRestarts for reason.
func IncSessionRestart(reason string) {
	SessionRestarts.WithLabelValues(reason).Inc()
}

// IncHandshakeFailure increments HandshakeFailures for reason.
func IncHandshakeFailure(reason string) {
	HandshakeFailures.WithLabelValues(reason).Inc()
}

// ObserveSessionDuration records one session's lifetime in seconds.
func ObserveSessionDuration(seconds float64) {
	SessionDuration.Observe(seconds)
}
