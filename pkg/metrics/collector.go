package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_requests_total",
			Help: "Total number of Bot API calls labeled by method and outcome",
		},
		[]string{"method", "status"},
	)
	rpcRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpc_retries_total",
			Help: "Total number of Bot API call retries after rate limiting",
		},
		[]string{"method"},
	)
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "updates_total",
			Help: "Total number of polled updates labeled by processing result",
		},
		[]string{"result"},
	)
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	formCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_completions_total",
			Help: "Total number of finished multi-step forms",
		},
		[]string{"form"},
	)
	formSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "form_sessions_active",
			Help: "Current number of in-progress form sessions",
		},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
)

// RecordRPCRequest counts a Bot API call attempt outcome.
func RecordRPCRequest(method, status string) {
	if method == "" {
		method = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	rpcRequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordRPCRetry counts a retry scheduled after a rate-limit response.
func RecordRPCRetry(method string) {
	if method == "" {
		method = "unknown"
	}

	rpcRetriesTotal.WithLabelValues(method).Inc()
}

// RecordUpdate counts a polled update by its processing result.
func RecordUpdate(result string) {
	if result == "" {
		result = "unknown"
	}

	updatesTotal.WithLabelValues(result).Inc()
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordFormCompletion counts a form that ran to its final step.
func RecordFormCompletion(form string) {
	if form == "" {
		form = "unknown"
	}

	formCompletionsTotal.WithLabelValues(form).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// SessionCounter reports how many form sessions are currently open.
type SessionCounter interface {
	ActiveSessions(ctx context.Context) int
}

// FormCollector periodically samples the form engine and emits the active
// session gauge.
type FormCollector struct {
	counter SessionCounter
}

// NewFormCollector builds a metrics collector bound to the form engine.
func NewFormCollector(counter SessionCounter) *FormCollector {
	return &FormCollector{counter: counter}
}

// Run samples every 10 seconds until ctx is cancelled.
func (c *FormCollector) Run(ctx context.Context) {
	if c == nil || c.counter == nil {
		return
	}

	for {
		formSessionsActive.Set(float64(c.counter.ActiveSessions(ctx)))

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}
