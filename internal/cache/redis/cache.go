// Package redis implements the search result cache on Redis. Values are
// JSON blobs with per-namespace TTLs; invalidation is a SCAN+DEL sweep over
// the result and suggestion prefixes rather than record-precise tracking,
// with TTLs bounding staleness.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/shoplite/catalog-search/internal/cache"
	"github.com/shoplite/catalog-search/internal/domain"
	"github.com/shoplite/catalog-search/pkg/errors"
)

// scanBatch is how many keys one SCAN page requests during a sweep.
const scanBatch = 100

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_hits_total",
			Help: "Number of cache hits by namespace",
		},
		[]string{"namespace"},
	)
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_misses_total",
			Help: "Number of cache misses by namespace",
		},
		[]string{"namespace"},
	)
	invalidationSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_invalidation_sweeps_total",
			Help: "Number of catalog invalidation sweeps executed",
		},
	)
	invalidatedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_invalidated_keys_total",
			Help: "Number of cache keys deleted by invalidation sweeps",
		},
	)
)

// Cache is the Redis-backed cache.Store implementation.
type Cache struct {
	client *redis.Client
}

// NewCache creates a Redis-backed result cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// GetResult fetches a cached search response. A miss is ErrNotFound.
func (c *Cache) GetResult(ctx context.Context, key string) (*domain.SearchResponse, error) {
	var resp domain.SearchResponse
	if err := c.get(ctx, key, "result", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetResult stores a search response under key for ttl.
func (c *Cache) SetResult(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error {
	return c.set(ctx, key, resp, ttl)
}

// GetSuggestions fetches a cached autocomplete list. A miss is ErrNotFound.
func (c *Cache) GetSuggestions(ctx context.Context, key string) ([]domain.Suggestion, error) {
	var suggestions []domain.Suggestion
	if err := c.get(ctx, key, "suggest", &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// SetSuggestions stores an autocomplete list under key for ttl.
func (c *Cache) SetSuggestions(ctx context.Context, key string, suggestions []domain.Suggestion, ttl time.Duration) error {
	return c.set(ctx, key, suggestions, ttl)
}

// GetCategories fetches the cached category aggregate. A miss is ErrNotFound.
func (c *Cache) GetCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.get(ctx, cache.KeyCategories, "categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// SetCategories stores the category aggregate for ttl.
func (c *Cache) SetCategories(ctx context.Context, categories []domain.Category, ttl time.Duration) error {
	return c.set(ctx, cache.KeyCategories, categories, ttl)
}

// Invalidate sweeps every cached result and suggestion list and drops the
// catalog aggregates the hints implicate. Only the two cache namespaces are
// swept; analytics counters and recent-search lists share the Redis
// instance and must outlive catalog writes.
func (c *Cache) Invalidate(ctx context.Context, hints domain.InvalidationHints) error {
	invalidationSweeps.Inc()

	if err := c.sweep(ctx, cache.ResultPrefix+"*"); err != nil {
		return fmt.Errorf("sweep result namespace: %w", err)
	}
	if err := c.sweep(ctx, cache.SuggestPrefix+"*"); err != nil {
		return fmt.Errorf("sweep suggest namespace: %w", err)
	}

	var aggregates []string
	if hints.Featured {
		aggregates = append(aggregates, cache.KeyFeatured)
	}
	if hints.HighSeller {
		aggregates = append(aggregates, cache.KeyBestsellers)
	}
	if hints.StatusChanged || hints.CategoryChange {
		aggregates = append(aggregates, cache.KeyCategories)
	}
	if len(aggregates) > 0 {
		deleted, err := c.client.Del(ctx, aggregates...).Result()
		if err != nil {
			return fmt.Errorf("delete aggregates: %w", err)
		}
		invalidatedKeys.Add(float64(deleted))
	}

	return nil
}

func (c *Cache) sweep(ctx context.Context, pattern string) error {
	var (
		cursor uint64
		batch  []string
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %q: %w", pattern, err)
		}
		batch = append(batch, keys...)

		if len(batch) >= scanBatch {
			if err := c.del(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(batch) > 0 {
		return c.del(ctx, batch)
	}
	return nil
}

func (c *Cache) del(ctx context.Context, keys []string) error {
	deleted, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	invalidatedKeys.Add(float64(deleted))
	return nil
}

func (c *Cache) get(ctx context.Context, key, namespace string, target any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.WithLabelValues(namespace).Inc()
			return errors.ErrNotFound
		}
		return fmt.Errorf("get %q: %w", key, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal cached value %q: %w", key, err)
	}
	cacheHits.WithLabelValues(namespace).Inc()
	return nil
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %q: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}
