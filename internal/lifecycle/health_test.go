package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/hermes-bot/internal/health"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticCheck struct {
	err error
}

func (c staticCheck) HealthCheck(context.Context) error {
	return c.err
}

func TestProbes_LivenessAlwaysPasses(t *testing.T) {
	checker := health.NewChecker(testLogger())
	checker.AddCheck("broken", staticCheck{err: errors.New("down")})

	probes := NewProbes(checker, testLogger())
	require.NoError(t, probes.Liveness(context.Background()))

	rec := httptest.NewRecorder()
	probes.LivenessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, 200, rec.Code)
}

func TestProbes_ReadinessTracksDependencies(t *testing.T) {
	checker := health.NewChecker(testLogger())
	checker.AddCheck("ok", staticCheck{})

	probes := NewProbes(checker, testLogger())

	rec := httptest.NewRecorder()
	probes.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	require.Equal(t, 200, rec.Code)

	checker.AddCheck("broken", staticCheck{err: errors.New("down")})

	rec = httptest.NewRecorder()
	probes.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 503, rec.Code)
	require.Error(t, probes.Readiness(context.Background()))
}
