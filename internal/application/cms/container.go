package cms

import (
	"context"
	"fmt"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/blocks"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// FindContainer returns the container for slot on page. A given parent is
// the container itself. Otherwise the first root block named slot wins, and
// when there is none a container is created and persisted. Only store
// failures are returned.
func (m *Manager) FindContainer(ctx context.Context, slot string, page *content.Page, parent *content.Block) (*content.Block, error) {
	if parent != nil {
		return parent, nil
	}

	if err := m.LoadBlocks(ctx, page); err != nil {
		return nil, err
	}

	for _, root := range page.Blocks.Roots() {
		if root.Name() == slot {
			return root, nil
		}
	}

	return m.createContainer(ctx, slot, page, parent)
}

func (m *Manager) createContainer(ctx context.Context, slot string, page *content.Page, parent *content.Block) (*content.Block, error) {
	attrs := content.ContainerAttrs{
		Type:     blocks.TypeContainer,
		PageID:   page.ID,
		Name:     slot,
		Position: 1,
		Enabled:  true,
	}
	if parent != nil {
		attrs.ParentID = parent.ID
	}

	block, err := m.Blocks.CreateContainer(ctx, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to create container %s on page %d: %w", slot, page.ID, err)
	}

	page.Blocks.Add(block)
	m.rememberBlock(block)

	m.Logger.WithContext(logging.ChannelContent, ctx).Info("Container created",
		"slot", slot, "pageId", page.ID, "blockId", block.ID)
	return block, nil
}
