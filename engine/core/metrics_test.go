package core

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetricsRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.LoadSubmitted("Texture2D")
	m.LoadSubmitted("Texture2D")
	m.LoadCompleted("Texture2D", true)
	m.LoadCompleted("Texture2D", false)
	m.ObserveDecode("Texture2D", 3*time.Millisecond)
	m.SetQueueDepth(4)
	m.SetCached(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submitted.WithLabelValues("Texture2D")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completed.WithLabelValues("Texture2D", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completed.WithLabelValues("Texture2D", "failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cached))

	n, err := testutil.GatherAndCount(reg, "anima_asset_decode_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilPipelineMetricsIsNoop(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.LoadSubmitted("Mesh")
		m.LoadCompleted("Mesh", true)
		m.ObserveDecode("Mesh", time.Second)
		m.SetQueueDepth(1)
		m.SetCached(1)
	})
}
