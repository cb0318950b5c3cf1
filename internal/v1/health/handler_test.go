package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performProbe(t *testing.T, path string, probe func(*gin.Context)) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", path, nil)
	probe(c)
	return w
}

func TestLiveness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("should return 200 with status ok", func(t *testing.T) {
		handler := NewHandler()

		w := performProbe(t, "/health/live", handler.Liveness)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp LivenessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)

		_, err := time.Parse(time.RFC3339, resp.Timestamp)
		assert.NoError(t, err, "timestamp should be RFC3339")
	})

	t.Run("should ignore readiness checks entirely", func(t *testing.T) {
		handler := NewHandler(Check{
			Name: "broken",
			Probe: func(ctx context.Context) error {
				return errors.New("down")
			},
		})

		w := performProbe(t, "/health", handler.Liveness)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "ok")
	})
}

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)

	healthy := func(ctx context.Context) error { return nil }
	unhealthy := func(ctx context.Context) error { return errors.New("connection refused") }

	t.Run("should return ready with no checks registered", func(t *testing.T) {
		handler := NewHandler()

		w := performProbe(t, "/health/ready", handler.Readiness)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Empty(t, resp.Checks)
	})

	t.Run("should return ready when every check passes", func(t *testing.T) {
		handler := NewHandler(
			Check{Name: "word_bank", Probe: healthy},
			Check{Name: "hub", Probe: healthy},
		)

		w := performProbe(t, "/health/ready", handler.Readiness)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, map[string]string{
			"word_bank": "healthy",
			"hub":       "healthy",
		}, resp.Checks)

		_, err := time.Parse(time.RFC3339, resp.Timestamp)
		assert.NoError(t, err)
	})

	t.Run("should return 503 when any check fails", func(t *testing.T) {
		handler := NewHandler(
			Check{Name: "word_bank", Probe: healthy},
			Check{Name: "hub", Probe: unhealthy},
		)

		w := performProbe(t, "/health/ready", handler.Readiness)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["word_bank"])
		assert.Equal(t, "unhealthy", resp.Checks["hub"])
	})

	t.Run("should pass a deadline to probes", func(t *testing.T) {
		handler := NewHandler(Check{
			Name: "slow",
			Probe: func(ctx context.Context) error {
				deadline, ok := ctx.Deadline()
				assert.True(t, ok, "probe context should carry a deadline")
				assert.WithinDuration(t, time.Now().Add(3*time.Second), deadline, time.Second)
				return nil
			},
		})

		w := performProbe(t, "/health/ready", handler.Readiness)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
