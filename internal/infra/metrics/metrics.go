package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderAttempts tracks provider invocations
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskrelay_provider_attempts_total",
			Help: "Total number of provider invocations",
		},
		[]string{"provider"},
	)

	// ProviderFailures tracks failed provider invocations by failure type
	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskrelay_provider_failures_total",
			Help: "Total number of failed provider invocations",
		},
		[]string{"provider", "type"},
	)

	// ProviderLatency tracks how long a provider invocation took
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskrelay_provider_latency_seconds",
			Help:    "Provider invocation latency in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"provider", "outcome"},
	)

	// ExecutionsTotal tracks task executions per entry point
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskrelay_executions_total",
			Help: "Total number of task executions",
		},
		[]string{"mode", "outcome"},
	)

	// CircuitExcluded tracks providers skipped because their circuit is open
	CircuitExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskrelay_circuit_excluded_total",
			Help: "Times a provider was excluded by the circuit breaker",
		},
		[]string{"provider"},
	)

	// AdviceRequests tracks advisory lookups by result (hit, miss, error, fallback)
	AdviceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskrelay_advice_requests_total",
			Help: "Total number of provider advice lookups",
		},
		[]string{"result"},
	)

	// RecoveryAttempts tracks recovery runs by strategy and outcome
	RecoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskrelay_recovery_attempts_total",
			Help: "Total number of recovery attempts",
		},
		[]string{"strategy", "outcome"},
	)

	// ProviderHealthy reports the last health probe result (1 healthy, 0 not)
	ProviderHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "taskrelay_provider_healthy",
			Help: "Result of the last provider health check",
		},
		[]string{"provider"},
	)

	// DBConnectionPoolUsage tracks the percentage of used connections in the stats store pool
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskrelay_db_connection_pool_usage_percent",
			Help: "Percentage of used database connections",
		},
	)
)
