package backends

import (
	"context"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

// Noop never stores anything, so every lookup misses.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Name() string { return "noop" }

func (*Noop) Has(context.Context, rendering.CacheElement) (bool, error) { return false, nil }

func (*Noop) Get(context.Context, rendering.CacheElement) (*rendering.Response, error) {
	return nil, nil
}

func (*Noop) Set(context.Context, rendering.CacheElement) error { return nil }

func (*Noop) PrepareResponseShell(_ context.Context, el rendering.CacheElement) *rendering.Response {
	return shell(el)
}

func (*Noop) Invalidate(context.Context, rendering.CacheElement) (int, error) { return 0, nil }
