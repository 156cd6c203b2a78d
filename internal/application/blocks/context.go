package blocks

import (
	"context"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

// Renderer renders a single block, consulting the cache when useCache is set.
type Renderer interface {
	RenderBlock(ctx context.Context, block *content.Block, page *content.Page, useCache bool) (*rendering.Response, error)
}

type rendererKey struct{}

// WithRenderer makes r available to nested block services.
func WithRenderer(ctx context.Context, r Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, r)
}

// RendererFrom returns the renderer stored by WithRenderer.
func RendererFrom(ctx context.Context) (Renderer, bool) {
	r, ok := ctx.Value(rendererKey{}).(Renderer)
	return r, ok && r != nil
}
