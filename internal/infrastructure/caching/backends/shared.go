package backends

import (
	"context"
	"fmt"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

// SharedConfig sizes the sturdyc client behind the shared backend.
type SharedConfig struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultSharedConfig returns the sizing used when nothing is configured.
func DefaultSharedConfig() SharedConfig {
	return SharedConfig{
		Capacity:           10000,
		NumShards:          64,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}
}

// Validate checks the sizing parameters.
func (c SharedConfig) Validate() error {
	switch {
	case c.Capacity <= 0:
		return fmt.Errorf("shared cache capacity must be greater than 0")
	case c.NumShards <= 0:
		return fmt.Errorf("shared cache shards must be greater than 0")
	case c.TTL <= 0:
		return fmt.Errorf("shared cache ttl must be greater than 0")
	case c.EvictionPercentage < 1 || c.EvictionPercentage > 100:
		return fmt.Errorf("shared cache eviction percentage must be between 1 and 100")
	}
	return nil
}

// Shared stores block responses in a sharded sturdyc cache. Entries share
// the client-wide TTL.
type Shared struct {
	client *sturdyc.Client[sharedEntry]
}

type sharedEntry struct {
	resp *rendering.Response
	keys map[string]string
}

func NewShared(cfg SharedConfig) (*Shared, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var opts []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}
	client := sturdyc.New[sharedEntry](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, opts...)
	return &Shared{client: client}, nil
}

func (s *Shared) Name() string { return "shared" }

func (s *Shared) Has(_ context.Context, el rendering.CacheElement) (bool, error) {
	_, ok := s.client.Get(el.Key())
	return ok, nil
}

func (s *Shared) Get(_ context.Context, el rendering.CacheElement) (*rendering.Response, error) {
	entry, ok := s.client.Get(el.Key())
	if !ok {
		return nil, nil
	}
	return entry.resp.Clone(), nil
}

func (s *Shared) Set(_ context.Context, el rendering.CacheElement) error {
	if el.Value() == nil {
		return nil
	}
	s.client.Set(el.Key(), sharedEntry{resp: el.Value().Clone(), keys: el.Keys()})
	return nil
}

func (s *Shared) PrepareResponseShell(_ context.Context, el rendering.CacheElement) *rendering.Response {
	return shell(el)
}

func (s *Shared) Invalidate(_ context.Context, el rendering.CacheElement) (int, error) {
	removed := 0
	for _, key := range s.client.ScanKeys() {
		entry, ok := s.client.Get(key)
		if ok && el.Matches(entry.keys) {
			s.client.Delete(key)
			removed++
		}
	}
	return removed, nil
}

func (s *Shared) Stats() map[string]any {
	return map[string]any{"items": s.client.Size()}
}
