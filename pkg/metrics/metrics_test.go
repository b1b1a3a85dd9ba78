package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersUpdateCollectors(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordUpload(OutcomeSuccess)
	m.RecordUpload(OutcomeSuccess)
	m.RecordUpload(OutcomeRejected)
	m.RecordDetections(map[string]int{"bee": 3, "wasp": 1})
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)
	m.ObserveInference("http", 120*time.Millisecond)
	m.ObserveAnnotation(5 * time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Uploads.WithLabelValues(OutcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Uploads.WithLabelValues(OutcomeRejected)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.Detections.WithLabelValues("bee")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheLookups.WithLabelValues(CacheHit)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheLookups.WithLabelValues(CacheMiss)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.InferenceDuration))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpload(OutcomeError)
		m.RecordDetections(map[string]int{"bee": 1})
		m.RecordCacheLookup(true)
		m.ObserveInference("ws", time.Second)
		m.ObserveAnnotation(time.Second)
	})
	assert.Nil(t, m.Registry())
}
