package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shoplite/catalog-search/pkg/logger"
)

func rateLimitedHandler(rps, burst int) http.Handler {
	log := logger.NewWithWriter("catalog-search-test", "error", io.Discard)
	return RateLimit(rps, burst, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func fire(handler http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	handler := rateLimitedHandler(1, 3)

	for i := range 3 {
		assert.Equal(t, http.StatusOK, fire(handler, "10.0.0.1:1234"), "request %d", i)
	}
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	handler := rateLimitedHandler(1, 2)

	fire(handler, "10.0.0.1:1234")
	fire(handler, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, fire(handler, "10.0.0.1:1234"))
}

func TestRateLimitIsolatesClients(t *testing.T) {
	handler := rateLimitedHandler(1, 1)

	assert.Equal(t, http.StatusOK, fire(handler, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, fire(handler, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, fire(handler, "10.0.0.2:1234"), "other clients keep their own bucket")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", clientIP(req))
}
