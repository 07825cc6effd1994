package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func useTestTracer(t *testing.T) {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
}

func TestMiddlewareRecordsRouteAndStatus(t *testing.T) {
	useTestTracer(t)
	m, reader := newTestMetrics(t)

	router := mux.NewRouter()
	router.Use(Middleware(m))
	router.HandleFunc("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, CorrelationID(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items/42", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Len(t, w.Header().Get("X-Correlation-ID"), 32)

	got := findMetric(collect(t, reader), "chordscribe.http.request.duration")
	require.NotNil(t, got)
	hist, ok := got.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)

	attrs := hist.DataPoints[0].Attributes
	path, _ := attrs.Value(attribute.Key("path"))
	status, _ := attrs.Value(attribute.Key("status"))
	assert.Equal(t, "/api/items/{id}", path.AsString())
	assert.Equal(t, "418", status.AsString())
}

func TestMiddlewareContinuesIncomingTrace(t *testing.T) {
	useTestTracer(t)
	m, _ := newTestMetrics(t)

	var seen string
	router := mux.NewRouter()
	router.Use(Middleware(m))
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen)
}

func TestCorrelationIDWithoutSpan(t *testing.T) {
	assert.Equal(t, "", CorrelationID(context.Background()))
	assert.NotNil(t, Logger(context.Background()))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "": "INFO", "WARN": "WARN", "error": "ERROR"} {
		lvl, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, lvl.String(), in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
