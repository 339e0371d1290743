package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the asset load pipeline. A nil *PipelineMetrics is
// valid and records nothing.
type PipelineMetrics struct {
	submitted  *prometheus.CounterVec
	completed  *prometheus.CounterVec
	decodeTime *prometheus.HistogramVec
	queueDepth prometheus.Gauge
	cached     prometheus.Gauge
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anima",
			Subsystem: "asset",
			Name:      "loads_submitted_total",
			Help:      "Load tasks handed to the worker pool.",
		}, []string{"type"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anima",
			Subsystem: "asset",
			Name:      "loads_completed_total",
			Help:      "Load results published by the owner thread.",
		}, []string{"type", "result"}),
		decodeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "anima",
			Subsystem: "asset",
			Name:      "decode_seconds",
			Help:      "Time spent inside decoders on worker goroutines.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"type"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anima",
			Subsystem: "asset",
			Name:      "queue_depth",
			Help:      "Load tasks waiting for a worker.",
		}),
		cached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "anima",
			Subsystem: "asset",
			Name:      "cached",
			Help:      "Assets currently held by the loaded-asset cache.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.submitted, m.completed, m.decodeTime, m.queueDepth, m.cached)
	}
	return m
}

func (m *PipelineMetrics) LoadSubmitted(assetType string) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(assetType).Inc()
}

func (m *PipelineMetrics) LoadCompleted(assetType string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.completed.WithLabelValues(assetType, result).Inc()
}

func (m *PipelineMetrics) ObserveDecode(assetType string, d time.Duration) {
	if m == nil {
		return
	}
	m.decodeTime.WithLabelValues(assetType).Observe(d.Seconds())
}

func (m *PipelineMetrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *PipelineMetrics) SetCached(n int) {
	if m == nil {
		return
	}
	m.cached.Set(float64(n))
}
