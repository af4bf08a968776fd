// Package redis implements the analytics recorder on Redis counters and
// lists.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	termKeyPrefix   = "search:stats:term:"
	recentKeyPrefix = "search:recent:"

	// termWindow is the rolling window of the per-term counter. The TTL is
	// set when the counter is created, so the window starts at the first
	// search of a term and is not extended by later ones.
	termWindow = 24 * time.Hour

	// recentListMax is the number of entries kept per user.
	recentListMax = 10
)

// Recorder writes search analytics to Redis.
type Recorder struct {
	client    *redis.Client
	recentTTL time.Duration
}

// NewRecorder creates a Redis-backed analytics recorder. recentTTL bounds
// how long an idle user's recent-search list survives.
func NewRecorder(client *redis.Client, recentTTL time.Duration) *Recorder {
	return &Recorder{client: client, recentTTL: recentTTL}
}

// RecordQuery increments the rolling 24h counter for term.
func (r *Recorder) RecordQuery(ctx context.Context, term string) error {
	key := termKeyPrefix + term

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("incr term counter: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, termWindow).Err(); err != nil {
			return fmt.Errorf("expire term counter: %w", err)
		}
	}
	return nil
}

// RecordRecent puts term at the head of the user's recent-search list,
// removing any earlier occurrence and trimming to the newest ten.
func (r *Recorder) RecordRecent(ctx context.Context, userID, term string) error {
	key := recentKeyPrefix + userID

	pipe := r.client.TxPipeline()
	pipe.LRem(ctx, key, 0, term)
	pipe.LPush(ctx, key, term)
	pipe.LTrim(ctx, key, 0, recentListMax-1)
	pipe.Expire(ctx, key, r.recentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record recent search: %w", err)
	}
	return nil
}

// TermCount reads the current counter for a term. Missing counters read as
// zero.
func (r *Recorder) TermCount(ctx context.Context, term string) (int64, error) {
	count, err := r.client.Get(ctx, termKeyPrefix+term).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("get term counter: %w", err)
	}
	return count, nil
}

// RecentSearches reads the user's recent-search list, newest first.
func (r *Recorder) RecentSearches(ctx context.Context, userID string) ([]string, error) {
	terms, err := r.client.LRange(ctx, recentKeyPrefix+userID, 0, recentListMax-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent searches: %w", err)
	}
	return terms, nil
}
