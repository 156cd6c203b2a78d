package cms

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/blocks"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// BlockService returns the service for block.Type. Under PolicyDegrade an
// unknown type is logged at critical level and (nil, nil) is returned.
func (m *Manager) BlockService(ctx context.Context, block *content.Block) (blocks.Service, error) {
	svc, err := m.Services.Lookup(block.Type)
	if err == nil {
		return svc, nil
	}
	if m.opts.Policy == PolicyStrict {
		return nil, err
	}
	m.logFailure(ctx, block, err)
	return nil, nil
}

// RenderBlock renders one block. With useCache a hit in the block type's
// backend is returned without executing the service; a miss executes once
// and stores the result. Every failure is logged once at critical level.
// Under PolicyStrict it is returned; under PolicyDegrade it is replaced by an
// empty 200 response.
func (m *Manager) RenderBlock(ctx context.Context, block *content.Block, page *content.Page, useCache bool) (resp *rendering.Response, err error) {
	ctx, span := m.Tracer.Start(ctx, "cms.render_block", trace.WithAttributes(
		attribute.Int64("cms.block.id", block.ID),
		attribute.String("cms.block.type", block.Type),
		attribute.Bool("cms.cache.enabled", useCache),
	))
	defer span.End()

	svc, err := m.BlockService(ctx, block)
	if err != nil {
		return m.fail(ctx, span, block, err)
	}
	if svc == nil {
		return rendering.NewResponse(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			resp, err = m.fail(ctx, span, block, cmserrors.Render(nil, "block %d of type %s panicked: %v", block.ID, block.Type, r))
		}
	}()

	resp, err = m.execute(ctx, span, svc, block, page, useCache)
	if err != nil {
		return m.fail(ctx, span, block, err)
	}
	return resp, nil
}

func (m *Manager) execute(ctx context.Context, span trace.Span, svc blocks.Service, block *content.Block, page *content.Page, useCache bool) (*rendering.Response, error) {
	backend, err := m.Caches.Backend(block.Type)
	if err != nil {
		return nil, err
	}
	el := svc.CacheElement(block, page)
	span.SetAttributes(attribute.String("cms.cache.key", el.Key()), attribute.String("cms.cache.backend", backend.Name()))

	if useCache {
		start := time.Now()
		cached := m.lookup(ctx, backend.Name(), func() (*rendering.Response, error) {
			hit, err := backend.Has(ctx, el)
			if err != nil || !hit {
				return nil, err
			}
			return backend.Get(ctx, el)
		})
		if cached != nil {
			m.Monitor.RecordHit(backend.Name(), time.Since(start))
			span.SetAttributes(attribute.Bool("cms.cache.hit", true))
			return cached, nil
		}
		m.Monitor.RecordMiss(backend.Name(), time.Since(start))
	}

	shell := backend.PrepareResponseShell(ctx, el)
	resp, err := svc.Execute(blocks.WithRenderer(ctx, m), block, page, shell)
	if err != nil {
		if cmserrors.IsConfiguration(err) || cmserrors.IsRender(err) {
			return nil, err
		}
		return nil, cmserrors.Render(err, "block %d of type %s failed", block.ID, block.Type)
	}
	if resp == nil {
		resp = shell
	}

	if useCache {
		if err := backend.Set(ctx, el.WithValue(resp.Clone())); err != nil {
			m.Logger.WithContext(logging.ChannelCache, ctx).Warn("Failed to store rendered block",
				"blockId", block.ID, "backend", backend.Name(), "error", err)
		} else {
			m.Monitor.RecordStore(backend.Name())
		}
	}
	return resp, nil
}

// lookup treats backend read errors as misses.
func (m *Manager) lookup(ctx context.Context, backend string, read func() (*rendering.Response, error)) *rendering.Response {
	resp, err := read()
	if err != nil {
		m.Logger.WithContext(logging.ChannelCache, ctx).Warn("Cache read failed, rendering instead",
			"backend", backend, "error", err)
		return nil
	}
	return resp
}

func (m *Manager) fail(ctx context.Context, span trace.Span, block *content.Block, err error) (*rendering.Response, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "block render failed")
	m.logFailure(ctx, block, err)
	if m.opts.Policy == PolicyStrict {
		return nil, err
	}
	return rendering.NewResponse(), nil
}

func (m *Manager) logFailure(ctx context.Context, block *content.Block, err error) {
	m.Logger.Critical(ctx, logging.ChannelRender, "Block render failed",
		"blockId", block.ID, "blockType", block.Type, "pageId", block.PageID, "error", err)
}

// RenderContainer renders the slot container of pageRef and returns its body.
// pageRef is resolved with GetPage unless it already is a *content.Page.
func (m *Manager) RenderContainer(ctx context.Context, slot string, pageRef any, parent *content.Block) (string, error) {
	page, ok := pageRef.(*content.Page)
	if !ok || page == nil {
		var err error
		page, err = m.GetPage(ctx, pageRef)
		if err != nil {
			return "", err
		}
	}

	container, err := m.FindContainer(ctx, slot, page, parent)
	if err != nil {
		return "", fmt.Errorf("failed to resolve container %s: %w", slot, err)
	}

	resp, err := m.RenderBlock(ctx, container, page, true)
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}
