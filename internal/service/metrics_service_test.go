package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/config"
)

func TestObserveHTTPRequestCountsByLabels(t *testing.T) {
	metrics := NewMetricsService()

	metrics.ObserveHTTPRequest("GET", "/api/v1/students", 200, 5*time.Millisecond)
	metrics.ObserveHTTPRequest("GET", "/api/v1/students", 200, 7*time.Millisecond)

	counter, err := metrics.requestTotal.GetMetricWithLabelValues("GET", "/api/v1/students", "200")
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(counter))
}

func TestRecordCacheOperation(t *testing.T) {
	metrics := NewMetricsService()

	metrics.RecordCacheOperation(true, 0)
	metrics.RecordCacheOperation(false, 0)
	metrics.RecordCacheOperation(false, 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.cacheMisses))
}

func TestReportQueriesFeedDBHistogram(t *testing.T) {
	metrics := NewMetricsService()
	att := []models.AttendanceRecord{
		attRec("A", "2024-03-04", models.AttendancePresent),
		attRec("B", "2024-03-04", models.AttendanceAbsent),
	}
	svc := NewReportService(
		&attendanceReaderStub{records: att},
		&marksReaderStub{},
		&classCounterStub{counts: map[string]int{"5": 2}},
		nil, metrics, config.ReportsConfig{PassMark: 45}, nil)

	_, err := svc.AttendanceReport(context.Background(), "5", "2024-03-04", "2024-03-05")
	require.NoError(t, err)

	// One series per query label: the class count and the attendance fetch.
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.dbQueryDuration))

	_, err = svc.MarksReport(context.Background(), "5", "midterm")
	require.NoError(t, err)

	assert.Equal(t, 3, testutil.CollectAndCount(metrics.dbQueryDuration))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var metrics *MetricsService

	metrics.ObserveHTTPRequest("GET", "/x", 200, time.Millisecond)
	metrics.RecordCacheOperation(true, 0)
	metrics.ObserveCacheWrite(time.Millisecond)
	metrics.ObserveDBQuery("report_attendance", time.Millisecond)
	assert.NotNil(t, metrics.Handler())
}
