// Package cache defines the search result cache contract and the key
// scheme shared by all implementations.
package cache

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/shoplite/catalog-search/internal/domain"
)

// Key namespaces. The result and suggest prefixes are swept on catalog
// writes; the named aggregates are dropped selectively based on
// invalidation hints. Analytics keys live under their own prefixes and are
// never touched by invalidation.
const (
	ResultPrefix  = "search:result:"
	SuggestPrefix = "search:suggest:"

	KeyBestsellers = "catalog:bestsellers"
	KeyFeatured    = "catalog:featured"
	KeyCategories  = "catalog:categories"
)

// Store caches search responses, suggestion lists and the category
// aggregate. A miss is reported as pkg/errors.ErrNotFound; any other error
// means the cache itself failed and callers should fall through to the
// source of truth.
type Store interface {
	GetResult(ctx context.Context, key string) (*domain.SearchResponse, error)
	SetResult(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error

	GetSuggestions(ctx context.Context, key string) ([]domain.Suggestion, error)
	SetSuggestions(ctx context.Context, key string, suggestions []domain.Suggestion, ttl time.Duration) error

	GetCategories(ctx context.Context) ([]domain.Category, error)
	SetCategories(ctx context.Context, categories []domain.Category, ttl time.Duration) error

	// Invalidate sweeps the result and suggest namespaces and drops the
	// aggregates the hints implicate.
	Invalidate(ctx context.Context, hints domain.InvalidationHints) error
}

// ResultKey derives the cache key for a search invocation. Two requests
// share a key exactly when mode, normalized query, filters and paging all
// agree.
func ResultKey(mode domain.SearchMode, query string, f domain.SearchFilters, page, perPage int) string {
	return ResultPrefix + hashKey(fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d|%d",
		mode, query, f.CategoryID, priceBound(f.PriceMin), priceBound(f.PriceMax),
		f.Sort, page, perPage))
}

// SuggestKey derives the cache key for an autocomplete invocation.
func SuggestKey(query string, limit int) string {
	return SuggestPrefix + hashKey(fmt.Sprintf("%s|%d", query, limit))
}

func hashKey(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum64())
}

func priceBound(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
