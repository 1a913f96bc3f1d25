package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Proton-105/hermes-bot/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes implements HealthChecker on top of the component health checker.
// Liveness passes while the process runs; readiness requires every
// registered dependency to answer.
type Probes struct {
	checker *health.Checker
	log     *slog.Logger
}

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Liveness reports success while the process is able to respond.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness fails when any registered dependency check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.checker == nil {
		return nil
	}

	if !p.checker.Healthy(ctx) {
		p.log.Warn("readiness probe failed")
		return errors.New("one or more dependencies are unhealthy")
	}

	return nil
}

// LivenessHandler serves the liveness probe over HTTP.
func (p *Probes) LivenessHandler() http.Handler {
	return probeHandler(p.Liveness)
}

// ReadinessHandler serves the readiness probe over HTTP.
func (p *Probes) ReadinessHandler() http.Handler {
	return probeHandler(p.Readiness)
}

func probeHandler(probe func(ctx context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := probe(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
