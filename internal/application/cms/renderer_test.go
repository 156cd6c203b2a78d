package cms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/blocks"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/backends"
)

func countingHarness(t *testing.T, policy ErrorPolicy) (*harness, *countingService) {
	h := newHarness(t, policy)
	svc := &countingService{}
	h.services.Register("test.counting", svc)
	h.caches.Register("test.counting", backends.NewMemory(0, 0))
	return h, svc
}

func TestRenderBlockExecutesOncePerKey(t *testing.T) {
	h, svc := countingHarness(t, PolicyDegrade)
	m := h.manager()
	ctx := context.Background()
	page := &content.Page{ID: 1}
	block := &content.Block{ID: 10, PageID: 1, Type: "test.counting", Settings: map[string]any{"content": "x"}}

	first, err := m.RenderBlock(ctx, block, page, true)
	require.NoError(t, err)
	second, err := m.RenderBlock(ctx, block, page, true)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.execs)
	assert.Equal(t, "<x:1>", first.Body)
	assert.Equal(t, first.Body, second.Body)

	// a fresh request manager shares the backend
	third, err := h.manager().RenderBlock(ctx, block, page, true)
	require.NoError(t, err)
	assert.Equal(t, "<x:1>", third.Body)
	assert.Equal(t, 1, svc.execs)

	layers := h.factory.Monitor().Layers()
	require.Len(t, layers, 1)
	assert.Equal(t, "memory", layers[0].Backend)
	assert.Equal(t, int64(2), layers[0].CacheHits)
	assert.Equal(t, int64(1), layers[0].CacheMisses)
	assert.Equal(t, int64(1), layers[0].Stores)
}

func TestRenderBlockWithoutCacheAlwaysExecutes(t *testing.T) {
	h, svc := countingHarness(t, PolicyDegrade)
	m := h.manager()
	block := &content.Block{ID: 10, PageID: 1, Type: "test.counting"}

	for i := 0; i < 3; i++ {
		_, err := m.RenderBlock(context.Background(), block, nil, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, svc.execs)
}

func TestRenderBlockReexecutesAfterInvalidation(t *testing.T) {
	h, svc := countingHarness(t, PolicyDegrade)
	m := h.manager()
	ctx := context.Background()
	block := &content.Block{ID: 10, PageID: 1, Type: "test.counting"}

	_, err := m.RenderBlock(ctx, block, nil, true)
	require.NoError(t, err)

	report := h.caches.Invalidate(ctx, svc.CacheElement(block, nil))
	assert.Equal(t, 1, report.Evicted())

	_, err = m.RenderBlock(ctx, block, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 2, svc.execs)
}

func TestRenderBlockCachedResponseIsACopy(t *testing.T) {
	h, _ := countingHarness(t, PolicyDegrade)
	m := h.manager()
	block := &content.Block{ID: 10, PageID: 1, Type: "test.counting", Settings: map[string]any{"content": "x"}}

	first, err := m.RenderBlock(context.Background(), block, nil, true)
	require.NoError(t, err)
	first.Body = "tampered"

	second, err := m.RenderBlock(context.Background(), block, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "<x:1>", second.Body)
}

func TestUnknownBlockServiceDegrades(t *testing.T) {
	h := newHarness(t, PolicyDegrade)
	block := &content.Block{ID: 5, PageID: 1, Type: "widget.unknown"}

	resp, err := h.manager().RenderBlock(context.Background(), block, nil, true)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.Equal(t, 1, h.criticalCount())
}

func TestUnknownBlockServiceStrict(t *testing.T) {
	h := newHarness(t, PolicyStrict)
	block := &content.Block{ID: 5, PageID: 1, Type: "widget.unknown"}

	_, err := h.manager().RenderBlock(context.Background(), block, nil, true)
	require.Error(t, err)
	assert.True(t, cmserrors.IsConfiguration(err))
	assert.Equal(t, 1, h.criticalCount())
}

func TestBlockServiceLookup(t *testing.T) {
	degrade := newHarness(t, PolicyDegrade)
	svc, err := degrade.manager().BlockService(context.Background(), &content.Block{Type: "widget.unknown"})
	assert.NoError(t, err)
	assert.Nil(t, svc)

	strict := newHarness(t, PolicyStrict)
	_, err = strict.manager().BlockService(context.Background(), &content.Block{Type: "widget.unknown"})
	assert.True(t, cmserrors.IsConfiguration(err))

	svc, err = strict.manager().BlockService(context.Background(), &content.Block{Type: blocks.TypeText})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestMissingCacheBackendFollowsPolicy(t *testing.T) {
	for _, policy := range []ErrorPolicy{PolicyDegrade, PolicyStrict} {
		t.Run(policy.String(), func(t *testing.T) {
			h := newHarness(t, policy)
			h.services.Register("test.nobackend", &countingService{})
			block := &content.Block{ID: 1, Type: "test.nobackend"}

			_, lookupErr := h.caches.Backend("test.nobackend")
			assert.True(t, cmserrors.IsConfiguration(lookupErr))

			resp, err := h.manager().RenderBlock(context.Background(), block, nil, true)
			if policy == PolicyStrict {
				assert.True(t, cmserrors.IsConfiguration(err))
			} else {
				require.NoError(t, err)
				assert.Empty(t, resp.Body)
			}
			assert.Equal(t, 1, h.criticalCount())
		})
	}
}

func TestExecutionFailuresAreCaught(t *testing.T) {
	cases := map[string]*countingService{
		"error": {err: errors.New("template exploded")},
		"panic": {panic: true},
	}
	for name, svc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, PolicyDegrade)
			h.services.Register("test.failing", svc)
			h.caches.Register("test.failing", backends.NewNoop())
			block := &content.Block{ID: 1, Type: "test.failing"}

			resp, err := h.manager().RenderBlock(context.Background(), block, nil, true)
			require.NoError(t, err)
			assert.Empty(t, resp.Body)
			assert.Equal(t, 1, h.criticalCount())

			strict := newHarness(t, PolicyStrict)
			strict.services.Register("test.failing", svc)
			strict.caches.Register("test.failing", backends.NewNoop())
			_, err = strict.manager().RenderBlock(context.Background(), block, nil, true)
			require.Error(t, err)
			assert.True(t, cmserrors.IsRender(err))
		})
	}
}

func TestRenderContainerRendersChildren(t *testing.T) {
	h := newHarness(t, PolicyDegrade)
	stored := h.pages.add(&content.Page{SiteID: 1, Slug: "/home", Enabled: true})
	main := h.blocks.add(&content.Block{PageID: stored.ID, Type: blocks.TypeContainer, Position: 1,
		Settings: map[string]any{"name": "main", "layout": "<section>{{ CONTENT }}</section>"}})
	h.blocks.add(&content.Block{PageID: stored.ID, ParentID: main.ID, Type: blocks.TypeText, Position: 1, Enabled: true,
		Settings: map[string]any{"content": "<p>hello</p>"}})
	h.blocks.add(&content.Block{PageID: stored.ID, ParentID: main.ID, Type: "widget.unknown", Position: 2, Enabled: true})

	m := h.manager()
	body, err := m.RenderContainer(context.Background(), "main", "/home", nil)
	require.NoError(t, err)
	assert.Equal(t, "<section><p>hello</p></section>", body)
	assert.Equal(t, 1, h.criticalCount())

	// missing slot is provisioned and renders empty
	body, err = m.RenderContainer(context.Background(), "footer", "/home", nil)
	require.NoError(t, err)
	assert.Empty(t, body)
	assert.Equal(t, 1, h.blocks.created)

	_, err = m.RenderContainer(context.Background(), "main", "/missing", nil)
	assert.True(t, cmserrors.IsNotFound(err))
}

func TestRenderBlockCacheProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h, svc := countingHarness(t, PolicyDegrade)
		m := h.manager()
		ids := rapid.SliceOfN(rapid.Int64Range(1, 5), 1, 25).Draw(rt, "ids")

		distinct := make(map[int64]bool)
		for _, id := range ids {
			block := &content.Block{ID: id, PageID: 1, Type: "test.counting"}
			if _, err := m.RenderBlock(context.Background(), block, nil, true); err != nil {
				rt.Fatalf("render failed: %v", err)
			}
			distinct[id] = true
		}
		if svc.execs != len(distinct) {
			rt.Fatalf("executed %d times for %d distinct keys", svc.execs, len(distinct))
		}
	})
}
