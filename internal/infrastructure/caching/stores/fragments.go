// Package stores provides concrete cache store implementations
package stores

import (
	"strings"
	"time"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/types"
)

// DefaultFragmentTTL applies to chunks stored without a TTL of their own.
const DefaultFragmentTTL = time.Hour

// FragmentsStore caches rendered block HTML with a tag index used for
// subset invalidation.
type FragmentsStore struct {
	cache      *types.HTMLChunkCache
	defaultTTL time.Duration
	now        func() time.Time
}

// NewFragmentsStore creates a new fragments cache store
func NewFragmentsStore(defaultTTL time.Duration) *FragmentsStore {
	// Fall back to the package default when no TTL is configured
	if defaultTTL <= 0 {
		defaultTTL = DefaultFragmentTTL
	}
	return &FragmentsStore{
		cache:      types.NewHTMLChunkCache(),
		defaultTTL: defaultTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store's time source.
func (fs *FragmentsStore) SetClock(now func() time.Time) {
	fs.now = now
}

// =============================================================================
// HTML Chunk Operations
// =============================================================================

// GetHTMLChunk returns the chunk stored under key unless it has expired.
func (fs *FragmentsStore) GetHTMLChunk(key string) (*types.HTMLChunk, bool) {
	fs.cache.Mu.RLock()
	defer fs.cache.Mu.RUnlock()

	chunk, exists := fs.cache.Chunks[key]
	if !exists || chunk.Expired(fs.now()) {
		return nil, false
	}
	return chunk, true
}

// SetHTMLChunk stores resp under key, indexed by every name=value tag.
func (fs *FragmentsStore) SetHTMLChunk(key string, resp *rendering.Response, tags map[string]string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = fs.defaultTTL
	}
	now := fs.now()

	fs.cache.Mu.Lock()
	defer fs.cache.Mu.Unlock()

	// Drop the previous chunk's tag entries before overwriting it
	if old, exists := fs.cache.Chunks[key]; exists {
		fs.unindex(old)
	}

	chunk := &types.HTMLChunk{
		Key:       key,
		Response:  resp,
		Tags:      copyTags(tags),
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	fs.cache.Chunks[key] = chunk
	fs.updateDependencies(key, chunk.Tags)
}

// updateDependencies records chunkKey under each name=value tag.
// Caller holds the write lock.
func (fs *FragmentsStore) updateDependencies(chunkKey string, tags map[string]string) {
	for name, value := range tags {
		dep := name + "=" + value
		found := false
		for _, existing := range fs.cache.Deps[dep] {
			if existing == chunkKey {
				found = true
				break
			}
		}
		if !found {
			fs.cache.Deps[dep] = append(fs.cache.Deps[dep], chunkKey)
		}
	}
}

// =============================================================================
// Invalidation Operations
// =============================================================================

// InvalidateByTags removes every chunk whose tags contain all of the given
// name=value pairs and returns the number removed. No tags removes nothing.
func (fs *FragmentsStore) InvalidateByTags(tags map[string]string) int {
	if len(tags) == 0 {
		return 0
	}

	fs.cache.Mu.Lock()
	defer fs.cache.Mu.Unlock()

	// the smallest dependency list bounds the candidates
	var candidates []string
	first := true
	for name, value := range tags {
		keys := fs.cache.Deps[name+"="+value]
		if len(keys) == 0 {
			return 0
		}
		if first || len(keys) < len(candidates) {
			candidates = keys
			first = false
		}
	}

	// Confirm every candidate carries all of the requested tags
	matched := make([]string, 0, len(candidates))
	for _, key := range candidates {
		chunk, exists := fs.cache.Chunks[key]
		if !exists {
			continue
		}
		if tagsContain(chunk.Tags, tags) {
			matched = append(matched, key)
		}
	}

	// Remove matched chunks and their index entries
	for _, key := range matched {
		fs.unindex(fs.cache.Chunks[key])
		delete(fs.cache.Chunks, key)
	}
	return len(matched)
}

// InvalidateByPattern removes chunks whose key equals pattern, or starts
// with its prefix when pattern ends in "*". Returns the number removed.
func (fs *FragmentsStore) InvalidateByPattern(pattern string) int {
	if pattern == "*" {
		return fs.Clear()
	}

	fs.cache.Mu.Lock()
	defer fs.cache.Mu.Unlock()

	removed := 0
	for key, chunk := range fs.cache.Chunks {
		if matchesPattern(key, pattern) {
			fs.unindex(chunk)
			delete(fs.cache.Chunks, key)
			removed++
		}
	}
	return removed
}

// matchesPattern reports whether chunkKey equals pattern or, for a
// trailing "*", starts with the text before it.
func matchesPattern(chunkKey, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(chunkKey, prefix)
	}
	return chunkKey == pattern
}

// unindex drops chunk from the tag index. Caller holds the write lock.
func (fs *FragmentsStore) unindex(chunk *types.HTMLChunk) {
	for name, value := range chunk.Tags {
		dep := name + "=" + value
		keys := fs.cache.Deps[dep]
		filtered := keys[:0]
		for _, k := range keys {
			if k != chunk.Key {
				filtered = append(filtered, k)
			}
		}
		if len(filtered) == 0 {
			delete(fs.cache.Deps, dep)
		} else {
			fs.cache.Deps[dep] = filtered
		}
	}
}

// =============================================================================
// Cache Management Operations
// =============================================================================

// Clear drops every chunk and the tag index and returns how many chunks
// were held.
func (fs *FragmentsStore) Clear() int {
	fs.cache.Mu.Lock()
	defer fs.cache.Mu.Unlock()

	removed := len(fs.cache.Chunks)
	fs.cache.Chunks = make(map[string]*types.HTMLChunk)
	fs.cache.Deps = make(map[string][]string)
	return removed
}

// PurgeExpiredChunks removes expired chunks and returns how many went.
func (fs *FragmentsStore) PurgeExpiredChunks() int {
	now := fs.now()

	fs.cache.Mu.Lock()
	defer fs.cache.Mu.Unlock()

	// Expired chunks are never served, so eviction only reclaims memory
	removed := 0
	for key, chunk := range fs.cache.Chunks {
		if chunk.Expired(now) {
			fs.unindex(chunk)
			delete(fs.cache.Chunks, key)
			removed++
		}
	}
	return removed
}

// GetHTMLChunkSummary returns cache status summary for debugging
func (fs *FragmentsStore) GetHTMLChunkSummary() map[string]any {
	now := fs.now()

	fs.cache.Mu.RLock()
	defer fs.cache.Mu.RUnlock()

	active, expired := 0, 0
	for _, chunk := range fs.cache.Chunks {
		if chunk.Expired(now) {
			expired++
		} else {
			active++
		}
	}

	return map[string]any{
		"totalChunks":   len(fs.cache.Chunks),
		"activeChunks":  active,
		"expiredChunks": expired,
		"dependencies":  len(fs.cache.Deps),
		"currentTime":   now,
	}
}

// tagsContain reports whether have includes every pair in want.
func tagsContain(have, want map[string]string) bool {
	for k, v := range want {
		if hv, ok := have[k]; !ok || hv != v {
			return false
		}
	}
	return true
}

// copyTags detaches the stored tags from the caller's map.
func copyTags(tags map[string]string) map[string]string {
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		cp[k] = v
	}
	return cp
}
