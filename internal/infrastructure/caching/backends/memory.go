package backends

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

type memoryEntry struct {
	resp *rendering.Response
	keys map[string]string
}

// Memory keeps block responses in a go-cache instance with per-element TTLs.
type Memory struct {
	cache *gocache.Cache
}

// NewMemory creates a memory backend. Elements without a TTL use
// defaultTTL; cleanup sets the expired-item sweep interval.
func NewMemory(defaultTTL, cleanup time.Duration) *Memory {
	return &Memory{cache: gocache.New(defaultTTL, cleanup)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Has(_ context.Context, el rendering.CacheElement) (bool, error) {
	_, ok := m.cache.Get(el.Key())
	return ok, nil
}

func (m *Memory) Get(_ context.Context, el rendering.CacheElement) (*rendering.Response, error) {
	v, ok := m.cache.Get(el.Key())
	if !ok {
		return nil, nil
	}
	return v.(memoryEntry).resp.Clone(), nil
}

func (m *Memory) Set(_ context.Context, el rendering.CacheElement) error {
	if el.Value() == nil {
		return nil
	}
	ttl := el.TTL()
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(el.Key(), memoryEntry{resp: el.Value().Clone(), keys: el.Keys()}, ttl)
	return nil
}

func (m *Memory) PrepareResponseShell(_ context.Context, el rendering.CacheElement) *rendering.Response {
	return shell(el)
}

func (m *Memory) Invalidate(_ context.Context, el rendering.CacheElement) (int, error) {
	removed := 0
	for key, item := range m.cache.Items() {
		entry, ok := item.Object.(memoryEntry)
		if ok && el.Matches(entry.keys) {
			m.cache.Delete(key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) PurgeExpired() int {
	before := m.cache.ItemCount()
	m.cache.DeleteExpired()
	return before - m.cache.ItemCount()
}

func (m *Memory) Stats() map[string]any {
	return map[string]any{"items": m.cache.ItemCount()}
}
