package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkghttp "github.com/ecotrajet/ecotrajet/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedHandler(config RateLimitConfig) http.Handler {
	return RateLimitByIP(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitByIP_EnforcesLimit(t *testing.T) {
	handler := limitedHandler(RateLimitConfig{Requests: 5, Window: time.Minute})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/auth/token", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	req := httptest.NewRequest("POST", "/auth/token", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
}

func TestRateLimitByIP_SeparateClients(t *testing.T) {
	handler := limitedHandler(RateLimitConfig{Requests: 1, Window: time.Minute})

	for _, addr := range []string{"192.0.2.1:1234", "192.0.2.2:1234"} {
		req := httptest.NewRequest("POST", "/auth/register", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, addr)
	}
}

func TestDefaultAuthRateLimits(t *testing.T) {
	limits := DefaultAuthRateLimits()

	assert.Equal(t, RateLimitConfig{Requests: 5, Window: time.Minute}, limits.Login)
	assert.Equal(t, RateLimitConfig{Requests: 10, Window: time.Hour}, limits.Register)
}
