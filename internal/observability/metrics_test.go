package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePathCollapsesReportIDs(t *testing.T) {
	cases := map[string]string{
		"/reports/9f2c1b7a/status":           "/reports/:id/status",
		"/reports/report-12/assign-external": "/reports/:id/assign-external",
		"/reports/me":                        "/reports/me",
		"/reports/categories":                "/reports/categories",
		"/reports/assigned/me":               "/reports/assigned/me",
		"/reports":                           "/reports",
		"/departments":                       "/departments",
	}
	for path, want := range cases {
		assert.Equal(t, want, NormalizePath(path), path)
	}
}

func TestRecordRequestAggregatesByRoute(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordRequest("/reports/report-1/status", "PUT", 200, 5*time.Millisecond)
	metrics.RecordRequest("/reports/report-2/status", "PUT", 200, 5*time.Millisecond)
	metrics.RecordRequest("/reports/report-3/status", "PUT", 409, 5*time.Millisecond)

	assert.EqualValues(t, 2, metrics.RequestCount("/reports/:id/status", "PUT", 200))
	assert.EqualValues(t, 1, metrics.RequestCount("/reports/:id/status", "PUT", 409))
}

func TestRecordErrorAggregatesByCode(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordError("/reports/report-1/status", "PUT", "INVALID_TRANSITION")
	metrics.RecordError("/reports/report-9/status", "PUT", "INVALID_TRANSITION")

	assert.EqualValues(t, 2, metrics.ErrorCount("/reports/:id/status", "PUT", "INVALID_TRANSITION"))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var metrics *Metrics
	metrics.RecordRequest("/reports", "GET", 200, time.Millisecond)
	metrics.RecordError("/reports", "GET", "INTERNAL_ERROR")
}
