package metrics

import "time"

// AuthMetrics records authentication outcomes.
type AuthMetrics interface {
	// RecordVerify records one completed verification.
	RecordVerify(result, method string, tries uint32, badPassword, interrupted bool, duration time.Duration)

	// RecordPhase records the aggregate result of a post-verification phase
	// ("approve", "begin_session", "end_session", "cleanup").
	RecordPhase(phase, result string)
}

// TimestampMetrics records timestamp cache lookups.
type TimestampMetrics interface {
	RecordLookup(hit bool)
	RecordLockWait(duration time.Duration)
}

// newPrometheusAuthMetrics and newPrometheusTimestampMetrics are set by
// pkg/metrics/prometheus during package initialization. The indirection
// keeps this package free of implementation imports.
var (
	newPrometheusAuthMetrics      func() AuthMetrics
	newPrometheusTimestampMetrics func() TimestampMetrics
)

// RegisterAuthMetricsConstructor registers the Prometheus auth metrics constructor.
func RegisterAuthMetricsConstructor(constructor func() AuthMetrics) {
	newPrometheusAuthMetrics = constructor
}

// RegisterTimestampMetricsConstructor registers the Prometheus timestamp
// metrics constructor.
func RegisterTimestampMetricsConstructor(constructor func() TimestampMetrics) {
	newPrometheusTimestampMetrics = constructor
}

// NewAuthMetrics returns the Prometheus-backed AuthMetrics, or nil when
// metrics are disabled or no implementation is linked in.
//
// Example usage:
//
//	metrics.InitRegistry()
//	m := metrics.NewAuthMetrics()
//	sink := audit.NewMetricsSink(m)
func NewAuthMetrics() AuthMetrics {
	if !IsEnabled() || newPrometheusAuthMetrics == nil {
		return nil
	}
	return newPrometheusAuthMetrics()
}

// NewTimestampMetrics returns the Prometheus-backed TimestampMetrics, or nil
// when metrics are disabled or no implementation is linked in.
func NewTimestampMetrics() TimestampMetrics {
	if !IsEnabled() || newPrometheusTimestampMetrics == nil {
		return nil
	}
	return newPrometheusTimestampMetrics()
}

// RecordVerify records a verification on m if it is non-nil.
func RecordVerify(m AuthMetrics, result, method string, tries uint32, badPassword, interrupted bool, duration time.Duration) {
	if m != nil {
		m.RecordVerify(result, method, tries, badPassword, interrupted, duration)
	}
}

// RecordPhase records a phase result on m if it is non-nil.
func RecordPhase(m AuthMetrics, phase, result string) {
	if m != nil {
		m.RecordPhase(phase, result)
	}
}

// RecordLookup records a timestamp lookup on m if it is non-nil.
func RecordLookup(m TimestampMetrics, hit bool) {
	if m != nil {
		m.RecordLookup(hit)
	}
}

// RecordLockWait records how long taking the timestamp lock blocked.
func RecordLockWait(m TimestampMetrics, d time.Duration) {
	if m != nil {
		m.RecordLockWait(d)
	}
}
