package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithServiceAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "auth-service",
		Version: "test",
		Env:     "test",
		Level:   "debug",
		Output:  &buf,
	})

	logger.Debug("hello", "user_id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["msg"])
	require.Equal(t, "auth-service", line["service"])
	require.EqualValues(t, 7, line["user_id"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Level: "warn", Format: "text", Output: &buf})

	logger.Info("dropped")
	require.Empty(t, buf.String())

	logger.Warn("kept")
	require.Contains(t, buf.String(), "kept")
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	require.NotNil(t, slogx.FromContext(context.Background()))
}

func TestHTTPMiddlewareRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slogx.New(slogx.Config{Output: &buf})

	var seen bool
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = slogx.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

		require.True(t, seen)
		require.Equal(t, http.StatusTeapot, rec.Code)
		require.NotEmpty(t, rec.Header().Get(slogx.RequestIDHeader))
		require.Contains(t, buf.String(), `"status":418`)
	})

	t.Run("echoes inbound id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		req.Header.Set(slogx.RequestIDHeader, "req-123")
		h.ServeHTTP(rec, req)

		require.Equal(t, "req-123", rec.Header().Get(slogx.RequestIDHeader))
	})
}
