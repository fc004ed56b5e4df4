package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := serveHealth(NewHealthHandler("1.2.3"), "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestReadiness_NoCheckers(t *testing.T) {
	w := serveHealth(NewHealthHandler("dev"), "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
}

func TestReadiness_AllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	w := serveHealth(NewHealthHandler("dev",
		CheckFunc{Component: "postgres", Fn: ok},
		CheckFunc{Component: "redis", Fn: ok},
	), "/readyz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Len(t, resp.Components, 2)
	assert.Equal(t, "healthy", resp.Components["redis"].Status)
}

func TestReadiness_OneDown(t *testing.T) {
	w := serveHealth(NewHealthHandler("dev",
		CheckFunc{Component: "postgres", Fn: func(context.Context) error { return nil }},
		CheckFunc{Component: "oracle", Fn: func(context.Context) error { return fmt.Errorf("connection refused") }},
	), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["oracle"].Status)
	assert.Equal(t, "connection refused", resp.Components["oracle"].Error)
	assert.Equal(t, "healthy", resp.Components["postgres"].Status)
}
