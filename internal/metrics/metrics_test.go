package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 8)
	c.Collect(ch)
	close(ch)
	var total float64
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		total += pb.Counter.GetValue()
	}
	return total
}

func TestNewWithRegistryPopulatesEveryMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	require.NotNil(t, m)
	assert.NotNil(t, m.transformOps)
	assert.NotNil(t, m.transformDuration)
	assert.NotNil(t, m.transformErrors)
	assert.NotNil(t, m.transformBytes)
	assert.NotNil(t, m.bufferPoolHits)
	assert.NotNil(t, m.bufferPoolMisses)
	assert.NotNil(t, m.hardwareAccelEnabled)
	assert.NotNil(t, m.httpRequestsTotal)
	assert.NotNil(t, m.httpRequestDuration)
}

func TestRecordTransformIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.RecordTransform(context.Background(), "aes128-cbc", "encrypt", 5*time.Millisecond, 1024)

	assert.Equal(t, float64(1), counterValue(t, m.transformOps.WithLabelValues("aes128-cbc", "encrypt")))
	assert.Equal(t, float64(1024), counterValue(t, m.transformBytes.WithLabelValues("aes128-cbc", "encrypt")))
}

func TestRecordTransformErrorIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.RecordTransformError("aes256-cbc", "decrypt", "InvalidData")
	assert.Equal(t, float64(1), counterValue(t, m.transformErrors.WithLabelValues("aes256-cbc", "decrypt", "InvalidData")))
}

func TestBufferPoolMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.RecordBufferPoolHit("chunk")
	m.RecordBufferPoolHit("chunk")
	m.RecordBufferPoolMiss("chunk")

	assert.Equal(t, float64(2), counterValue(t, m.bufferPoolHits.WithLabelValues("chunk")))
	assert.Equal(t, float64(1), counterValue(t, m.bufferPoolMisses.WithLabelValues("chunk")))
}

func TestSetHardwareAcceleration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.SetHardwareAcceleration("aes-ni", true)

	ch := make(chan prometheus.Metric, 1)
	m.hardwareAccelEnabled.WithLabelValues("aes-ni").Collect(ch)
	close(ch)
	var pb dto.Metric
	require.NoError(t, (<-ch).Write(&pb))
	assert.Equal(t, float64(1), pb.Gauge.GetValue())
}

func TestHandlerServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.RecordTransform(context.Background(), "aes128-cbc", "encrypt", time.Millisecond, 16)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blockcipher_transform_operations_total")
}

func TestTwoRegistriesDoNotCollide(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	assert.NotPanics(t, func() {
		NewWithRegistry(reg1)
		NewWithRegistry(reg2)
	})
}
