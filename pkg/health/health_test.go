package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, fn http.HandlerFunc) (int, probeResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp probeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()

	code, resp := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Checks, "_readiness")
}

func TestReadyEndpoint_ReadyAfterSet(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, resp := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestLiveEndpoint_HealthyWithoutChecks(t *testing.T) {
	h := New()

	code, resp := probe(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestCheck_UnhealthyAfterConsecutiveFailures(t *testing.T) {
	c := &check{
		name:    "flaky",
		timeout: time.Second,
		fn: func(context.Context) error {
			return errors.New("down")
		},
	}

	ctx := context.Background()
	for i := 0; i < failureThreshold-1; i++ {
		c.run(ctx)
		_, bad := c.failure()
		assert.False(t, bad, "below threshold after %d failures", i+1)
	}

	c.run(ctx)
	msg, bad := c.failure()
	assert.True(t, bad)
	assert.Equal(t, "down", msg)
}

func TestCheck_RecoversOnSuccess(t *testing.T) {
	var fail bool
	c := &check{
		name:    "db",
		timeout: time.Second,
		fn: func(context.Context) error {
			if fail {
				return errors.New("down")
			}
			return nil
		},
	}

	ctx := context.Background()
	fail = true
	for i := 0; i < failureThreshold; i++ {
		c.run(ctx)
	}
	_, bad := c.failure()
	require.True(t, bad)

	fail = false
	c.run(ctx)
	_, bad = c.failure()
	assert.False(t, bad, "single success resets the check")
}

func TestReadyEndpoint_ReportsFailingCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("postgres", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	// Drive the check past its threshold directly instead of waiting on the
	// background ticker.
	for _, c := range h.readiness {
		for i := 0; i < failureThreshold; i++ {
			c.run(context.Background())
		}
	}

	code, resp := probe(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "connection refused", resp.Checks["postgres"])
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

func TestStartStop(t *testing.T) {
	h := New()
	ran := make(chan struct{}, 1)
	h.AddLivenessCheck("ping", time.Second, func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	h.Start(context.Background(), time.Hour)
	defer h.Stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("check did not run on start")
	}
}
