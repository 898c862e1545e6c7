package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	dbErr := error(nil)
	h := NewHealthHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return dbErr },
		"redis":    func(context.Context) error { return nil },
	}).WithStats(func() (any, error) {
		return map[string]int{"open_connections": 3}, nil
	})
	r := newTestEngine()
	r.GET("/health", h.Ready)
	r.GET("/health/live", h.Live)

	w := serve(r, http.MethodGet, "/health?detail=true", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"open_connections":3`)

	dbErr = errors.New("connection refused")
	w = serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"error"`)
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)
	assert.NotContains(t, w.Body.String(), "pool")

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health/live", "").Code)
}
