package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := gin.New()
	r.Use(NewMetrics(reg).Handler())
	r.GET("/v1/admin/users/:username", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/admin/users/john", nil))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	requests := findFamily(t, reg, "identity_http_requests_total")
	counts := map[string]float64{}
	for _, m := range requests.GetMetric() {
		l := labels(m)
		counts[l["route"]+" "+l["code"]] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"/v1/admin/users/:username 404": 2,
		"unmatched 404":                 1,
	}, counts)

	duration := findFamily(t, reg, "identity_http_request_duration_seconds")
	assert.Len(t, duration.GetMetric(), 2)
}
