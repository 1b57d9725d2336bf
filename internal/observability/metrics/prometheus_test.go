package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PatientsCreated.Inc()
	m.BundlesGenerated.WithLabelValues("adhoc").Add(2)
	m.CircuitBreakerState.WithLabelValues("publisher").Set(1)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "ayush_patients_created_total 1")
	assert.Contains(t, body, `ayush_fhir_bundles_generated_total{source="adhoc"} 2`)
	assert.Contains(t, body, `circuit_breaker_state{name="publisher"} 1`)
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
