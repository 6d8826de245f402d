package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/wordloop/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of engine metrics.
type MetricsOverviewResponse struct {
	TotalRequests int64                                       `json:"totalRequests"`
	SuccessRate   float64                                     `json:"successRate"`
	AvgLatencyMs  int64                                       `json:"avgLatencyMs"`
	P50LatencyMs  int64                                       `json:"p50LatencyMs"`
	P95LatencyMs  int64                                       `json:"p95LatencyMs"`
	ErrorCount    int64                                       `json:"errorCount"`
	ItemsFailed   int64                                       `json:"itemsFailed"`
	Operations    map[string]*observability.OperationSnapshot `json:"operations"`
}

// GetMetricsOverview returns the engine metrics collected since startup.
// Overall latencies are the slowest operation's values.
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()

	response := MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		ErrorCount:    snapshot.RequestFailed,
		ItemsFailed:   snapshot.ItemsFailed,
		Operations:    snapshot.Operations,
	}

	var totalDuration int64
	for _, op := range snapshot.Operations {
		totalDuration += op.TotalDuration
		response.P50LatencyMs = max(response.P50LatencyMs, op.P50Duration)
		response.P95LatencyMs = max(response.P95LatencyMs, op.P95Duration)
	}
	if snapshot.RequestTotal > 0 {
		response.AvgLatencyMs = totalDuration / snapshot.RequestTotal
	}
	return c.JSON(http.StatusOK, response)
}
