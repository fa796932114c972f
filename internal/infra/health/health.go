// Package health provides provider health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the system or a provider.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ProviderHealth contains health details for a single provider.
type ProviderHealth struct {
	Name                string       `json:"name"`
	Status              SystemStatus `json:"status"`
	Reachable           bool         `json:"reachable"`
	CircuitOpen         bool         `json:"circuit_open"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	SuccessRate         float64      `json:"success_rate"`
	LastUsed            time.Time    `json:"last_used"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus              `json:"system_status"`
	CheckedAt    time.Time                 `json:"checked_at"`
	Providers    map[string]ProviderHealth `json:"providers"`
}

// Aggregate derives the system status from per-provider statuses.
// No providers, or every provider critical, is critical.
func Aggregate(providers map[string]ProviderHealth) SystemStatus {
	if len(providers) == 0 {
		return StatusCritical
	}

	critical := 0
	status := StatusHealthy
	for _, p := range providers {
		switch p.Status {
		case StatusCritical:
			critical++
			status = StatusDegraded
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	if critical == len(providers) {
		return StatusCritical
	}
	return status
}
