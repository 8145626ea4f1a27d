// Package metrics exposes Prometheus metrics for the auth flow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthMetrics tracks auth attempts and session state. A nil *AuthMetrics is
// valid and records nothing.
type AuthMetrics struct {
	Attempts      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	Authenticated prometheus.Gauge
	Clients       prometheus.Gauge
	Detections    *prometheus.CounterVec
}

// New registers the auth metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *AuthMetrics {
	f := promauto.With(reg)
	return &AuthMetrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finlog_auth_attempts_total",
			Help: "Auth operations by operation and outcome",
		}, []string{"op", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finlog_auth_duration_seconds",
			Help:    "Duration of auth operations that reach the remote API",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		Authenticated: f.NewGauge(prometheus.GaugeOpts{
			Name: "finlog_sessions_authenticated",
			Help: "Browser sessions currently signed in",
		}),
		Clients: f.NewGauge(prometheus.GaugeOpts{
			Name: "finlog_clients_active",
			Help: "Browser clients held in memory",
		}),
		Detections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finlog_telegram_detections_total",
			Help: "Telegram host detections by first matching check",
		}, []string{"check"}),
	}
}

// RecordAttempt counts one settled operation.
func (m *AuthMetrics) RecordAttempt(op, outcome string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(op, outcome).Inc()
}

// ObserveDuration records the duration of op.
// Call with time.Now() at the start of the operation.
func (m *AuthMetrics) ObserveDuration(op string, start time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SessionSignedIn counts one more signed-in session.
func (m *AuthMetrics) SessionSignedIn() {
	if m == nil {
		return
	}
	m.Authenticated.Inc()
}

// SessionSignedOut counts one fewer signed-in session.
func (m *AuthMetrics) SessionSignedOut() {
	if m == nil {
		return
	}
	m.Authenticated.Dec()
}

// SetClients reports how many browser clients are held.
func (m *AuthMetrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.Clients.Set(float64(n))
}

// RecordDetection counts a detection by its matching check, "none" when no
// check matched.
func (m *AuthMetrics) RecordDetection(check string) {
	if m == nil {
		return
	}
	if check == "" {
		check = "none"
	}
	m.Detections.WithLabelValues(check).Inc()
}
