// Package analytics defines the search analytics contract: rolling term
// counters and per-user recent searches. Recording is best effort; the
// service never lets an analytics failure affect a search.
package analytics

import "context"

// Recorder collects search analytics.
type Recorder interface {
	// RecordQuery bumps the 24h rolling counter for a normalized term.
	RecordQuery(ctx context.Context, term string) error

	// RecordRecent pushes a term onto the user's recent-search list,
	// de-duplicated and capped at the ten most recent entries.
	RecordRecent(ctx context.Context, userID, term string) error
}

// Noop is a Recorder that discards everything. Used when analytics is
// disabled by config.
type Noop struct{}

func (Noop) RecordQuery(context.Context, string) error          { return nil }
func (Noop) RecordRecent(context.Context, string, string) error { return nil }
