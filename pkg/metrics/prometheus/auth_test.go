package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoauth/pkg/metrics"
)

func TestAuthMetricsDisabled(t *testing.T) {
	metrics.Reset()
	assert.Nil(t, NewAuthMetrics())
	assert.Nil(t, NewTimestampMetrics())

	var m *authMetrics
	assert.NotPanics(t, func() {
		m.RecordVerify("success", "passwd", 1, false, false, time.Second)
		m.RecordPhase("approve", "success")
	})
}

func TestAuthMetricsRecordVerify(t *testing.T) {
	metrics.Reset()
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := NewAuthMetrics()
	require.NotNil(t, m)

	m.RecordVerify("success", "passwd", 3, true, false, 2*time.Second)
	m.RecordVerify("failure", "", 1, false, true, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("success", "passwd")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("failure", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.badPasswords))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interrupted))

	m.RecordPhase("cleanup", "error")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phases.WithLabelValues("cleanup", "error")))
}

func TestConstructorsRegistered(t *testing.T) {
	metrics.Reset()
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	assert.NotNil(t, metrics.NewAuthMetrics())

	tm := metrics.NewTimestampMetrics()
	require.NotNil(t, tm)
	tm.RecordLookup(true)
	tm.RecordLookup(false)
	tm.RecordLockWait(5 * time.Millisecond)

	impl := tm.(*timestampMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.lookups.WithLabelValues("true")))
}
