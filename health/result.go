package health

import (
	"time"

	"github.com/agentfleet/controlplane/types"
)

// Details carries the non-essential facts a probe observed, kept around
// for diagnostics but not consulted by the classification algorithm.
type Details struct {
	HTTPStatus   int            `json:"http_status,omitempty"`
	ResponseSize int64          `json:"response_size,omitempty"`
	Body         map[string]any `json:"body,omitempty"`
}

// Result is the outcome of a single probe attempt sequence against one
// agent.
type Result struct {
	AgentID      types.AgentID      `json:"agent_id"`
	Status       types.HealthStatus `json:"status"`
	ResponseTime time.Duration      `json:"response_time"`
	Timestamp    time.Time          `json:"timestamp"`
	Details      Details            `json:"details"`
	Error        string             `json:"error,omitempty"`
}

// resourceUsageFromBody extracts the optional resourceUsage block from a
// parsed probe response body.
func resourceUsageFromBody(body map[string]any) types.ResourceUsage {
	raw, ok := body["resourceUsage"].(map[string]any)
	if !ok {
		return types.ResourceUsage{}
	}
	return types.ResourceUsage{
		CPUPercent:     floatField(raw, "cpu"),
		MemoryPercent:  floatField(raw, "memory"),
		DiskPercent:    floatField(raw, "disk"),
		NetworkPercent: floatField(raw, "network"),
	}
}

func floatField(m map[string]any, key string) float64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return f
}

func customMetricsFromBody(body map[string]any) map[string]any {
	raw, ok := body["customMetrics"].(map[string]any)
	if !ok {
		return nil
	}
	return raw
}

func statusFromBody(body map[string]any) (types.HealthStatus, bool) {
	raw, ok := body["status"].(string)
	if !ok {
		return "", false
	}
	switch types.HealthStatus(raw) {
	case types.HealthHealthy, types.HealthDegraded, types.HealthUnhealthy:
		return types.HealthStatus(raw), true
	default:
		return "", false
	}
}

// classifyByLatency applies the fallback response-time thresholds used
// when a probe response carries no explicit status field.
func classifyByLatency(d time.Duration) types.HealthStatus {
	switch {
	case d < 1000*time.Millisecond:
		return types.HealthHealthy
	case d < 5000*time.Millisecond:
		return types.HealthDegraded
	default:
		return types.HealthUnhealthy
	}
}
