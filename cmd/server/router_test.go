package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemet/relay-server-go/internal/config"
	"github.com/wemet/relay-server-go/internal/handler"
	"github.com/wemet/relay-server-go/internal/hub"
	"github.com/wemet/relay-server-go/internal/metrics"
	"github.com/wemet/relay-server-go/internal/middleware"
	"github.com/wemet/relay-server-go/internal/repository"
	"github.com/wemet/relay-server-go/internal/service"
)

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	m := metrics.New()
	h := hub.NewHub(m)
	svc := service.NewMatchService(
		repository.NewConnectionRepository(),
		repository.NewWaitingPoolRepository(),
		h,
		nil,
		m,
		cfg.InitialCoinBalance,
		cfg.WaitingTimeout(),
	)
	m.RegisterSnapshot(svc.Snapshot)
	signaling := handler.NewSignalingHandler(svc, h, cfg.AllowedOrigins, cfg.MaxMessageBytes, cfg.MaxMessagesPerSecond)
	return newRouter(cfg, svc, signaling, m, middleware.NewRateLimiter(time.Minute))
}

func baseConfig() *config.Config {
	return &config.Config{
		Port:                   3000,
		WaitingTimeoutSeconds:  60,
		SweepIntervalSeconds:   30,
		InitialCoinBalance:     100,
		MaxMessageBytes:        65536,
		MaxMessagesPerSecond:   50,
		ConnectRateLimitPerMin: 1,
		ICEServers:             []string{"stun:stun.l.google.com:19302"},
	}
}

func get(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	t.Run("health reports counts", func(t *testing.T) {
		r := newTestRouter(t, baseConfig())

		rec := get(t, r, "/health", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `0`, mustField(t, rec.Body.Bytes(), "connections"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("ice servers allow cross-origin reads", func(t *testing.T) {
		r := newTestRouter(t, baseConfig())

		rec := get(t, r, "/ice-servers", http.Header{"Origin": []string{"https://wemet.app"}})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Body.String(), "stun:stun.l.google.com:19302")
	})

	t.Run("metrics exposes pool gauges", func(t *testing.T) {
		r := newTestRouter(t, baseConfig())

		rec := get(t, r, "/metrics", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "wemet_relay_waiting")
		assert.Contains(t, string(body), "wemet_relay_connections")
	})

	t.Run("ws endpoint is rate limited per ip", func(t *testing.T) {
		r := newTestRouter(t, baseConfig())

		first := get(t, r, "/ws", nil)
		second := get(t, r, "/ws", nil)

		assert.NotEqual(t, http.StatusTooManyRequests, first.Code)
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})

	t.Run("unknown paths 404 without a web client", func(t *testing.T) {
		r := newTestRouter(t, baseConfig())
		assert.Equal(t, http.StatusNotFound, get(t, r, "/room/1", nil).Code)
	})

	t.Run("unknown paths serve the web client when configured", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>wemet</html>"), 0o644))
		cfg := baseConfig()
		cfg.StaticDir = dir

		rec := get(t, newTestRouter(t, cfg), "/room/1", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "wemet")
	})
}

func mustField(t *testing.T, body []byte, key string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	v, ok := fields[key]
	require.True(t, ok, "missing %s", key)
	return string(v)
}
