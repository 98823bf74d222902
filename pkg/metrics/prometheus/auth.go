package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittoauth/pkg/metrics"
)

func init() {
	metrics.RegisterAuthMetricsConstructor(func() metrics.AuthMetrics { return NewAuthMetrics() })
	metrics.RegisterTimestampMetricsConstructor(func() metrics.TimestampMetrics { return NewTimestampMetrics() })
}

// authMetrics is the Prometheus implementation of metrics.AuthMetrics.
type authMetrics struct {
	verifications *prometheus.CounterVec
	tries         prometheus.Histogram
	duration      *prometheus.HistogramVec
	badPasswords  prometheus.Counter
	interrupted   prometheus.Counter
	phases        *prometheus.CounterVec
}

// NewAuthMetrics creates a new Prometheus-backed AuthMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAuthMetrics() *authMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &authMetrics{
		verifications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoauth_verifications_total",
				Help: "Total number of completed verifications by result and deciding method",
			},
			[]string{"result", "method"},
		),
		tries: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittoauth_verification_tries",
				Help:    "Number of password tries used per verification",
				Buckets: []float64{1, 2, 3, 5, 10},
			},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittoauth_verification_duration_seconds",
				Help: "Wall time of a verification including user think time",
				Buckets: []float64{
					0.05, // cached or non-interactive
					0.25,
					1,
					5, // typical typed password
					15,
					60,
					300, // left at the prompt
				},
			},
			[]string{"result"},
		),
		badPasswords: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittoauth_bad_password_verifications_total",
				Help: "Total number of verifications that saw at least one wrong password",
			},
		),
		interrupted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittoauth_interrupted_verifications_total",
				Help: "Total number of verifications cancelled by the user",
			},
		),
		phases: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoauth_phase_results_total",
				Help: "Aggregate results of approval, session and cleanup phases",
			},
			[]string{"phase", "result"},
		),
	}
}

// RecordVerify records one completed verification.
func (m *authMetrics) RecordVerify(result, method string, tries uint32, badPassword, interrupted bool, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "none"
	}
	m.verifications.WithLabelValues(result, method).Inc()
	m.tries.Observe(float64(tries))
	m.duration.WithLabelValues(result).Observe(duration.Seconds())
	if badPassword {
		m.badPasswords.Inc()
	}
	if interrupted {
		m.interrupted.Inc()
	}
}

// RecordPhase records a phase aggregate result.
func (m *authMetrics) RecordPhase(phase, result string) {
	if m == nil {
		return
	}
	m.phases.WithLabelValues(phase, result).Inc()
}

// timestampMetrics is the Prometheus implementation of metrics.TimestampMetrics.
type timestampMetrics struct {
	lookups  *prometheus.CounterVec
	lockWait prometheus.Histogram
}

// NewTimestampMetrics creates a new Prometheus-backed TimestampMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewTimestampMetrics() *timestampMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &timestampMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittoauth_timestamp_lookups_total",
				Help: "Total number of timestamp cache lookups by outcome",
			},
			[]string{"hit"}, // "true", "false"
		),
		lockWait: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittoauth_timestamp_lock_wait_seconds",
				Help:    "Time spent waiting for the per-user timestamp lock",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}
}

// RecordLookup records a timestamp cache hit or miss.
func (m *timestampMetrics) RecordLookup(hit bool) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(strconv.FormatBool(hit)).Inc()
}

// RecordLockWait records how long the timestamp lock blocked.
func (m *timestampMetrics) RecordLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}
