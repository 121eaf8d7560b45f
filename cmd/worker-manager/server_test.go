package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServerMux_Health(t *testing.T) {
	mux := newServerMux(nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServerMux_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	rec := httptest.NewRecorder()
	newServerMux([]readinessCheck{{"zeebe", ok}, {"redis", ok}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	newServerMux([]readinessCheck{{"zeebe", ok}, {"postgres", down}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status   string            `json:"status"`
		Failures map[string]string `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, map[string]string{"postgres": "connection refused"}, body.Failures)
}

func TestRetryWithBackoff(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, 0, zapNop(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	err = retryWithBackoff(func() error { return errors.New("down") }, 2, 0, zapNop(), "always")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "always failed after 2 attempts")
}

func zapNop() *zap.Logger { return zap.NewNop() }
