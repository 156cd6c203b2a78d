// Package interfaces defines the contract every block cache backend fulfils.
package interfaces

import (
	"context"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

// Backend stores rendered block responses keyed by a cache element.
type Backend interface {
	// Name identifies the backend in logs and invalidation reports.
	Name() string
	Has(ctx context.Context, el rendering.CacheElement) (bool, error)
	// Get returns the stored response, or nil on a miss.
	Get(ctx context.Context, el rendering.CacheElement) (*rendering.Response, error)
	// Set stores el.Value() under el.Key() for el.TTL().
	Set(ctx context.Context, el rendering.CacheElement) error
	// PrepareResponseShell returns the response a block service renders into.
	PrepareResponseShell(ctx context.Context, el rendering.CacheElement) *rendering.Response
	// Invalidate evicts every entry whose keys are a superset of el's keys and
	// returns how many were evicted.
	Invalidate(ctx context.Context, el rendering.CacheElement) (int, error)
}

// StatsReporter is implemented by backends that can describe their contents.
type StatsReporter interface {
	Stats() map[string]any
}

// Purger is implemented by backends holding entries that must be swept.
type Purger interface {
	PurgeExpired() int
}

// PatternInvalidator is implemented by backends that can evict by raw cache
// key. A pattern ending in "*" matches keys with that prefix; "*" alone
// matches everything.
type PatternInvalidator interface {
	InvalidatePattern(ctx context.Context, pattern string) (int, error)
}
