// Package metrics exposes Prometheus metrics for this module's
// transform, buffer pool, and key manager operations, grounded on the
// teacher's internal/metrics/metrics.go (promauto.With(registry) for
// test isolation, OTel exemplars tied to the active trace span) but
// re-scoped away from S3/bucket concepts entirely.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds every metric this module records.
type Metrics struct {
	transformOps      *prometheus.CounterVec
	transformDuration *prometheus.HistogramVec
	transformErrors   *prometheus.CounterVec
	transformBytes    *prometheus.CounterVec

	bufferPoolHits   *prometheus.CounterVec
	bufferPoolMisses *prometheus.CounterVec

	hardwareAccelEnabled *prometheus.GaugeVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered against the process's
// default Prometheus registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against reg,
// which tests use to avoid collisions with the default registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transformOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockcipher_transform_operations_total",
				Help: "Total number of transform Execute operations, by algorithm and direction.",
			},
			[]string{"algorithm", "direction"},
		),
		transformDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blockcipher_transform_duration_seconds",
				Help:    "Duration of a complete transform operation (Initialize through Finalize).",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"algorithm", "direction"},
		),
		transformErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockcipher_transform_errors_total",
				Help: "Total number of transform errors, by algorithm, direction, and error kind.",
			},
			[]string{"algorithm", "direction", "kind"},
		),
		transformBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockcipher_transform_bytes_total",
				Help: "Total plaintext bytes processed, by algorithm and direction.",
			},
			[]string{"algorithm", "direction"},
		),
		bufferPoolHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buffer_pool_hits_total",
				Help: "Total number of buffer pool hits, by size class.",
			},
			[]string{"size_class"},
		),
		bufferPoolMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "buffer_pool_misses_total",
				Help: "Total number of buffer pool misses, by size class.",
			},
			[]string{"size_class"},
		),
		hardwareAccelEnabled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hardware_acceleration_enabled",
				Help: "Whether AES hardware acceleration is detected and enabled (1) or not (0), by type.",
			},
			[]string{"type"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests handled by the driver demo.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

// RecordTransform records one completed transform operation.
func (m *Metrics) RecordTransform(ctx context.Context, algorithm, direction string, duration time.Duration, bytesProcessed int64) {
	labels := prometheus.Labels{"algorithm": algorithm, "direction": direction}
	if exemplar := spanExemplar(ctx); exemplar != nil {
		if adder, ok := m.transformOps.With(labels).(prometheus.ExemplarAdder); ok {
			adder.AddWithExemplar(1, exemplar)
		} else {
			m.transformOps.With(labels).Inc()
		}
		if observer, ok := m.transformDuration.With(labels).(prometheus.ExemplarObserver); ok {
			observer.ObserveWithExemplar(duration.Seconds(), exemplar)
		} else {
			m.transformDuration.With(labels).Observe(duration.Seconds())
		}
	} else {
		m.transformOps.With(labels).Inc()
		m.transformDuration.With(labels).Observe(duration.Seconds())
	}
	m.transformBytes.WithLabelValues(algorithm, direction).Add(float64(bytesProcessed))
}

// RecordTransformError records a failed transform operation.
func (m *Metrics) RecordTransformError(algorithm, direction, kind string) {
	m.transformErrors.WithLabelValues(algorithm, direction, kind).Inc()
}

// RecordBufferPoolHit records a buffer pool hit for sizeClass.
func (m *Metrics) RecordBufferPoolHit(sizeClass string) {
	m.bufferPoolHits.WithLabelValues(sizeClass).Inc()
}

// RecordBufferPoolMiss records a buffer pool miss for sizeClass.
func (m *Metrics) RecordBufferPoolMiss(sizeClass string) {
	m.bufferPoolMisses.WithLabelValues(sizeClass).Inc()
}

// SetHardwareAcceleration sets the hardware acceleration gauge for accelType.
func (m *Metrics) SetHardwareAcceleration(accelType string, enabled bool) {
	val := 0.0
	if enabled {
		val = 1.0
	}
	m.hardwareAccelEnabled.WithLabelValues(accelType).Set(val)
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": http.StatusText(status)}
	m.httpRequestsTotal.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// Handler returns the HTTP handler serving this process's metrics in
// the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// spanExemplar extracts a trace ID from ctx for exemplar attachment, if
// a valid span is present.
func spanExemplar(ctx context.Context) prometheus.Labels {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		return prometheus.Labels{"trace_id": sc.TraceID().String()}
	}
	return nil
}
