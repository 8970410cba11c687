package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwatkins/billtrack/internal/platform/metrics"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := metrics.New()

	m.AssignmentOutcomes.WithLabelValues("ASSIGNED").Inc()
	m.AssignmentOutcomes.WithLabelValues("ASSIGNED").Inc()
	m.AssignmentOutcomes.WithLabelValues("USER_BILL_LIMIT_EXCEEDED").Inc()
	m.AssignmentRetries.Inc()
	m.CacheLookups.WithLabelValues("hit").Inc()
	m.CacheLookups.WithLabelValues("miss").Inc()

	assert.Equal(t, 2.0,
		testutil.ToFloat64(m.AssignmentOutcomes.WithLabelValues("ASSIGNED")))
	assert.Equal(t, 1.0,
		testutil.ToFloat64(m.AssignmentOutcomes.WithLabelValues("USER_BILL_LIMIT_EXCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssignmentRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	t.Parallel()

	first := metrics.New()
	second := metrics.New()

	first.AssignmentRetries.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(first.AssignmentRetries))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.AssignmentRetries))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.AssignmentOutcomes.WithLabelValues("ASSIGNED").Inc()
	m.AssignmentDuration.Observe(0.042)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "billtrack_assignment_outcomes_total")
	assert.Contains(t, body, "billtrack_assignment_duration_seconds")
}
