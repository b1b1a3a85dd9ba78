// Package metrics holds the Prometheus collectors for the detection pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics groups every collector the service exports. All methods are safe
// to call on a nil receiver so components can run without metrics.
type Metrics struct {
	Uploads            *prometheus.CounterVec
	InferenceDuration  *prometheus.HistogramVec
	Detections         *prometheus.CounterVec
	AnnotationDuration prometheus.Histogram
	CacheLookups       *prometheus.CounterVec
	registry           *prometheus.Registry
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register detection metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Total number of upload requests by outcome.",
	}, []string{"outcome"})

	m.InferenceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "detector_inference_duration_seconds",
		Help:    "Time spent waiting for the detector.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"backend"})

	m.Detections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detections_total",
		Help: "Total number of detections by class.",
	}, []string{"class"})

	m.AnnotationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "annotation_duration_seconds",
		Help:    "Time spent drawing and encoding annotated images.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	m.CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detection_cache_total",
		Help: "Detection cache lookups by result.",
	}, []string{"result"})
}

// Registry returns the registry the collectors were registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordUpload(outcome string) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInference(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) RecordDetections(classCounts map[string]int) {
	if m == nil {
		return
	}
	for class, n := range classCounts {
		m.Detections.WithLabelValues(class).Add(float64(n))
	}
}

func (m *Metrics) ObserveAnnotation(d time.Duration) {
	if m == nil {
		return
	}
	m.AnnotationDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Uploads.Describe(ch)
	m.InferenceDuration.Describe(ch)
	m.Detections.Describe(ch)
	m.AnnotationDuration.Describe(ch)
	m.CacheLookups.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Uploads.Collect(ch)
	m.InferenceDuration.Collect(ch)
	m.Detections.Collect(ch)
	m.AnnotationDuration.Collect(ch)
	m.CacheLookups.Collect(ch)
}
