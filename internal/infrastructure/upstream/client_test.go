package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL + "/api"
	if cfg.Provider == "" {
		cfg.Provider = "testcarrier"
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestClient_DoJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/rates", r.URL.Path)
		assert.Equal(t, "express", r.URL.Query().Get("service"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, float64(25), in["weight"])

		_ = json.NewEncoder(w).Encode(map[string]any{"price": "189.00"})
	}, Config{Headers: map[string]string{"X-API-Key": "secret"}})

	var out struct {
		Price string `json:"price"`
	}
	err := c.Do(context.Background(), Request{
		Op:     "GetQuote",
		Method: http.MethodPost,
		Path:   "/rates",
		Query:  url.Values{"service": {"express"}},
		JSON:   map[string]any{"weight": 25},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "189.00", out.Price)
}

func TestClient_DoForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		w.WriteHeader(http.StatusNoContent)
	}, Config{})

	err := c.Do(context.Background(), Request{
		Op:     "Refresh",
		Method: http.MethodPost,
		Path:   "token",
		Form:   url.Values{"grant_type": {"refresh_token"}},
	}, nil)
	assert.NoError(t, err)
}

func TestClient_NonSuccessIsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}, Config{})

	err := c.Do(context.Background(), Request{Op: "Track", Path: "/track/1"}, nil)
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindUpstream))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Contains(t, err.Error(), "testcarrier")
}

func TestClient_InvalidJSONIsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}, Config{})

	var out map[string]any
	err := c.Do(context.Background(), Request{Op: "Track", Path: "/"}, &out)
	assert.True(t, shared.IsKind(err, shared.KindUpstream))
}

func TestClient_TimeoutIsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Config{Timeout: 50 * time.Millisecond})

	err := c.Do(context.Background(), Request{Op: "GetQuote", Path: "/slow"}, nil)
	assert.True(t, shared.IsKind(err, shared.KindUpstream))
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, Config{RequestsPerMinute: 1})

	require.NoError(t, c.Do(context.Background(), Request{Op: "A", Path: "/"}, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Do(ctx, Request{Op: "B", Path: "/"}, nil)
	assert.True(t, shared.IsKind(err, shared.KindUpstream))
}
