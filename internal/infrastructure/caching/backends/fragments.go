// Package backends provides the block cache backends: the in-process fragment
// store, go-cache and sturdyc backed caches, and a backend that never hits.
package backends

import (
	"context"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/stores"
)

// Fragments serves block responses from a FragmentsStore.
type Fragments struct {
	store *stores.FragmentsStore
}

func NewFragments(store *stores.FragmentsStore) *Fragments {
	return &Fragments{store: store}
}

func (f *Fragments) Name() string { return "fragments" }

func (f *Fragments) Has(_ context.Context, el rendering.CacheElement) (bool, error) {
	_, ok := f.store.GetHTMLChunk(el.Key())
	return ok, nil
}

func (f *Fragments) Get(_ context.Context, el rendering.CacheElement) (*rendering.Response, error) {
	chunk, ok := f.store.GetHTMLChunk(el.Key())
	if !ok {
		return nil, nil
	}
	return chunk.Response.Clone(), nil
}

func (f *Fragments) Set(_ context.Context, el rendering.CacheElement) error {
	if el.Value() == nil {
		return nil
	}
	f.store.SetHTMLChunk(el.Key(), el.Value().Clone(), el.Keys(), el.TTL())
	return nil
}

func (f *Fragments) PrepareResponseShell(_ context.Context, el rendering.CacheElement) *rendering.Response {
	return shell(el)
}

func (f *Fragments) Invalidate(_ context.Context, el rendering.CacheElement) (int, error) {
	return f.store.InvalidateByTags(el.Keys()), nil
}

func (f *Fragments) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	return f.store.InvalidateByPattern(pattern), nil
}

func (f *Fragments) PurgeExpired() int { return f.store.PurgeExpiredChunks() }

func (f *Fragments) Stats() map[string]any { return f.store.GetHTMLChunkSummary() }

// shell is the empty response a block renders into, carrying the element TTL.
func shell(el rendering.CacheElement) *rendering.Response {
	resp := rendering.NewResponse()
	resp.TTL = el.TTL()
	return resp
}
