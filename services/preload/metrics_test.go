package preload

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsTrackQueueActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.recordStart(PriorityHigh)
	m.recordStart(PriorityLow)
	m.recordFinish(PriorityLow, nil)
	m.recordFinish(PriorityHigh, errors.New("boom"))
	m.recordCacheHit()
	m.observe(2, 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsStarted.WithLabelValues("high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("low", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("high", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loading))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.queued))
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewMetrics(reg)
	second := NewMetrics(reg)

	first.recordCacheHit()
	second.recordCacheHit()
	assert.Equal(t, 2.0, testutil.ToFloat64(second.cacheHits))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.recordStart(PriorityHigh)
	m.recordFinish(PriorityLow, nil)
	m.recordCacheHit()
	m.observe(1, 1)
}

func TestQueueReportsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	loader := newFakeLoader(false)
	q := NewQueue(loader, Config{}, m)
	t.Cleanup(q.Close)

	require.NoError(t, waitFuture(t, q.Submit("a", Options{})).Err)
	waitFuture(t, q.Submit("a", Options{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsStarted.WithLabelValues("low")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("low", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.loading))
}
