package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/pkg/errors"
	"github.com/shoplite/catalog-search/pkg/httpclient"
)

func newTestClient(baseURL string) *CategoryClient {
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = 2 * time.Second
	return NewCategoryClient(httpclient.New(cfg), baseURL)
}

func TestCategoryClientList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/categories", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []domain.Category{
				{ID: "c1", Name: "Apparel", Slug: "apparel", Active: true},
				{ID: "c2", Name: "Retired", Slug: "retired", Active: false},
				{ID: "c3", Name: "Home", Slug: "home", Active: true},
			},
		})
	}))
	defer srv.Close()

	categories, err := newTestClient(srv.URL).List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2, "inactive categories are filtered out")
	assert.Equal(t, "Apparel", categories[0].Name)
	assert.Equal(t, "Home", categories[1].Name)
}

func TestCategoryClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnavailable)
}

func TestCategoryClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnavailable)
}

func TestCategoryClientThroughCircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cbCfg := httpclient.DefaultCircuitBreakerConfig("categories-test")
	cbCfg.MinRequests = 3
	breaker := httpclient.NewCircuitBreakerClient(httpclient.New(cfg), cbCfg, slog.Default())
	cl := NewCategoryClient(breaker, srv.URL)

	for range 5 {
		_, err := cl.List(context.Background())
		require.Error(t, err)
	}

	// The breaker opens after enough failures and stops hitting upstream.
	upstream := calls.Load()
	_, err := cl.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, upstream, calls.Load(), "open breaker short-circuits the request")
}
