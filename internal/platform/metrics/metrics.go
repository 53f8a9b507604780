package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the client core.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	AuthAttempts      *prometheus.CounterVec
	AuthFailures      *prometheus.CounterVec
	TokenRefreshes    prometheus.Counter
	CommandExecutions *prometheus.CounterVec
	CommandDurationMs prometheus.Histogram
	PipelineOutcomes  *prometheus.CounterVec
	UnitFailures      *prometheus.CounterVec
}

// New registers and returns the client metrics collectors.
func New() *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "solver_active_sessions",
			Help: "Current number of stored sessions",
		}),
		AuthAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solver_auth_attempts_total",
			Help: "Total number of authentication attempts",
		}, []string{"provider"}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solver_auth_failures_total",
			Help: "Total number of authentication failures",
		}, []string{"provider"}),
		TokenRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solver_token_refreshes_total",
			Help: "Total number of silent credential refreshes",
		}),
		CommandExecutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solver_command_executions_total",
			Help: "Total number of command executions by outcome",
		}, []string{"command", "outcome"}),
		CommandDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "solver_command_duration_ms",
			Help:    "Duration of command executions in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		PipelineOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solver_pipeline_outcomes_total",
			Help: "Total number of middleware chain runs by handling unit",
		}, []string{"unit"}),
		UnitFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solver_middleware_unit_failures_total",
			Help: "Total number of contained middleware unit failures",
		}, []string{"unit"}),
	}
}
