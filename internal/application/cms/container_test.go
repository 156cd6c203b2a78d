package cms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/blocks"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
)

func TestFindContainerCreatesOnce(t *testing.T) {
	h := newHarness(t, PolicyDegrade)
	m := h.manager()
	ctx := context.Background()

	page, err := m.GetPageByRouteName(ctx, "home", true)
	require.NoError(t, err)

	first, err := m.FindContainer(ctx, "main", page, nil)
	require.NoError(t, err)
	assert.Equal(t, blocks.TypeContainer, first.Type)
	assert.Equal(t, "main", first.Name())
	assert.Equal(t, 1, first.Position)
	assert.True(t, first.Enabled)
	assert.Equal(t, page.ID, first.PageID)

	second, err := m.FindContainer(ctx, "main", page, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, h.blocks.created)

	// a fresh request sees the persisted container
	fresh := h.manager()
	reloaded, err := fresh.GetPageByRouteName(ctx, "home", true)
	require.NoError(t, err)
	third, err := fresh.FindContainer(ctx, "main", reloaded, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, 1, h.blocks.created)
}

func TestFindContainerReturnsParent(t *testing.T) {
	h := newHarness(t, PolicyDegrade)
	parent := &content.Block{ID: 77, Type: blocks.TypeContainer}
	got, err := h.manager().FindContainer(context.Background(), "anything", &content.Page{ID: 1}, parent)
	require.NoError(t, err)
	assert.Same(t, parent, got)
	assert.Zero(t, h.blocks.created)
}

func TestFindContainerFirstRootWins(t *testing.T) {
	h := newHarness(t, PolicyDegrade)
	page := h.pages.add(&content.Page{SiteID: 1, Slug: "/p"})
	h.blocks.add(&content.Block{PageID: page.ID, Type: blocks.TypeContainer, Position: 2, Settings: map[string]any{"name": "main"}})
	early := h.blocks.add(&content.Block{PageID: page.ID, Type: blocks.TypeContainer, Position: 1, Settings: map[string]any{"name": "main"}})
	// nested blocks are not candidates
	h.blocks.add(&content.Block{PageID: page.ID, ParentID: early.ID, Type: blocks.TypeContainer, Settings: map[string]any{"name": "sidebar"}})

	m := h.manager()
	loaded, err := m.GetPageBySlug(context.Background(), "/p")
	require.NoError(t, err)

	got, err := m.FindContainer(context.Background(), "main", loaded, nil)
	require.NoError(t, err)
	assert.Equal(t, early.ID, got.ID)

	sidebar, err := m.FindContainer(context.Background(), "sidebar", loaded, nil)
	require.NoError(t, err)
	assert.Zero(t, sidebar.ParentID)
	assert.Equal(t, 1, h.blocks.created)
}

func TestFindContainerSurfacesStoreFailure(t *testing.T) {
	h := newHarness(t, PolicyDegrade)
	h.blocks.createErr = errors.New("disk full")
	page := &content.Page{ID: 1, Blocks: content.NewBlockTree(nil)}
	_, err := h.manager().FindContainer(context.Background(), "main", page, nil)
	assert.ErrorContains(t, err, "disk full")
}

func TestFindContainerIdempotentForAnySlots(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, PolicyDegrade)
		m := h.manager()
		page := &content.Page{ID: 1, Blocks: content.NewBlockTree(nil)}

		slots := rapid.SliceOfN(rapid.SampledFrom([]string{"main", "header", "footer", "aside"}), 1, 20).Draw(rt, "slots")
		ids := make(map[string]int64)
		for _, slot := range slots {
			b, err := m.FindContainer(context.Background(), slot, page, nil)
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			if id, seen := ids[slot]; seen && id != b.ID {
				rt.Fatalf("slot %s resolved to %d then %d", slot, id, b.ID)
			}
			ids[slot] = b.ID
		}
		if h.blocks.created != len(ids) {
			rt.Fatalf("created %d containers for %d slots", h.blocks.created, len(ids))
		}
	})
}
