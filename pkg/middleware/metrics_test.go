package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric returns the sample of c whose labels match, or nil.
func collectMetric(t *testing.T, c prometheus.Collector, labels map[string]string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		require.NoError(t, m.Write(d))

		got := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-test"))
	r.Get("/api/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/books/"+id, nil))
	}

	m := collectMetric(t, httpRequestsTotal, map[string]string{
		"service": "metrics-test",
		"method":  http.MethodGet,
		"path":    "/api/books/{id}",
		"status":  "404",
	})
	require.NotNil(t, m)
	assert.Equal(t, 3.0, m.GetCounter().GetValue())

	h := collectMetric(t, httpRequestDuration, map[string]string{
		"service": "metrics-test",
		"path":    "/api/books/{id}",
	})
	require.NotNil(t, h)
	assert.Equal(t, uint64(3), h.GetHistogram().GetSampleCount())

	inFlight := collectMetric(t, httpRequestsInFlight, map[string]string{"service": "metrics-test"})
	require.NotNil(t, inFlight)
	assert.Zero(t, inFlight.GetGauge().GetValue())
}
