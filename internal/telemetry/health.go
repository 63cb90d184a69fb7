package telemetry

import (
	"encoding/json"
	"fmt"
	"time"
)

// HealthStatus represents the health status of the gateway
type HealthStatus string

const (
	// StatusHealthy indicates every call succeeded or failed with a caller error
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded indicates some calls failed for reasons other than a
	// missing record or a malformed locator
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy indicates every call failed unexpectedly
	StatusUnhealthy HealthStatus = "unhealthy"
)

// OperationStats summarizes the calls of one operation.
type OperationStats struct {
	Calls          int64   `json:"calls"`
	Failures       int64   `json:"failures"`
	NotFound       int64   `json:"not_found"`
	AvgResponseMS  float64 `json:"avg_response_ms"`
	P95ResponseMS  float64 `json:"p95_response_ms"`
	LastCallAgoSec float64 `json:"last_call_ago_sec,omitempty"`
}

// HealthReport contains information about the current health of the gateway
type HealthReport struct {
	Status        HealthStatus              `json:"status"`
	Timestamp     time.Time                 `json:"timestamp"`
	Version       string                    `json:"version"`
	Collections   int64                     `json:"collections"`
	TotalRequests int64                     `json:"total_requests"`
	SuccessRate   float64                   `json:"success_rate"`
	Operations    map[string]OperationStats `json:"operations"`
}

// CreateHealthReport generates a health report from the metrics of the
// given operations.
func CreateHealthReport(m *MetricsCollector, version string, operations ...string) (*HealthReport, error) {
	if m == nil {
		return nil, fmt.Errorf("metrics collector is nil")
	}

	report := &HealthReport{
		Status:      StatusHealthy,
		Timestamp:   time.Now(),
		Version:     version,
		Collections: int64(m.GetGauge(MetricCollections)),
		Operations:  make(map[string]OperationStats, len(operations)),
	}

	var failures, unexpected int64
	for _, op := range operations {
		stats := OperationStats{
			Calls:         m.GetCounter(OperationMetric(MetricCalls, op)),
			Failures:      m.GetCounter(OperationMetric(MetricFailures, op)),
			NotFound:      m.GetCounter(OperationMetric(MetricNotFound, op)),
			AvgResponseMS: millis(m.GetTimerAverage(OperationMetric(MetricResponseTime, op))),
			P95ResponseMS: millis(m.GetTimerP95(OperationMetric(MetricResponseTime, op))),
		}
		if stats.Calls > 0 {
			stats.LastCallAgoSec = m.GetTimeSince(OperationMetric(MetricLastCall, op)).Seconds()
		}
		report.Operations[op] = stats

		report.TotalRequests += stats.Calls
		failures += stats.Failures
		unexpected += stats.Failures - stats.NotFound - m.GetCounter(OperationMetric(MetricInvalidURI, op))
	}

	if report.TotalRequests > 0 {
		report.SuccessRate = float64(report.TotalRequests-failures) / float64(report.TotalRequests) * 100.0
	}

	switch {
	case unexpected <= 0:
	case unexpected >= report.TotalRequests:
		report.Status = StatusUnhealthy
	default:
		report.Status = StatusDegraded
	}

	return report, nil
}

// CreateHealthReportJSON generates an indented JSON health report
func CreateHealthReportJSON(m *MetricsCollector, version string, operations ...string) (string, error) {
	report, err := CreateHealthReport(m, version, operations...)
	if err != nil {
		return "", err
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal health report: %w", err)
	}

	return string(reportJSON), nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
