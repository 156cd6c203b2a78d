// Package types holds the data structures kept by the cache stores.
package types

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

// HTMLChunk is one rendered block stored under its cache element key.
type HTMLChunk struct {
	Key       string
	Response  *rendering.Response
	Tags      map[string]string
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the chunk is past its expiry at now. A zero
// ExpiresAt never expires.
func (c *HTMLChunk) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// HTMLChunkCache holds chunks plus a tag index mapping "name=value" to the
// chunk keys carrying that tag.
type HTMLChunkCache struct {
	Chunks map[string]*HTMLChunk
	Deps   map[string][]string
	Mu     sync.RWMutex
}

// NewHTMLChunkCache returns an empty chunk cache.
func NewHTMLChunkCache() *HTMLChunkCache {
	return &HTMLChunkCache{
		Chunks: make(map[string]*HTMLChunk),
		Deps:   make(map[string][]string),
	}
}
