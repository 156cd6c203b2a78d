package blocks

import (
	"context"
	"fmt"
	"strings"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

const (
	TypeContainer = "cms.container"
	// ContentPlaceholder marks where children go inside settings["layout"].
	ContentPlaceholder = "{{ CONTENT }}"
)

// ContainerService renders a container's enabled children in document order.
type ContainerService struct{}

func NewContainerService() *ContainerService { return &ContainerService{} }

func (s *ContainerService) CacheElement(block *content.Block, page *content.Page) rendering.CacheElement {
	return DefaultElement(block, page, nil)
}

func (s *ContainerService) Execute(ctx context.Context, block *content.Block, page *content.Page, shell *rendering.Response) (*rendering.Response, error) {
	renderer, ok := RendererFrom(ctx)
	if !ok {
		return nil, fmt.Errorf("container %d rendered without a block renderer in context", block.ID)
	}

	var body strings.Builder
	if page != nil && page.Blocks != nil {
		for _, child := range page.Blocks.Children(block.ID) {
			if !child.Enabled {
				continue
			}
			resp, err := renderer.RenderBlock(ctx, child, page, true)
			if err != nil {
				return nil, fmt.Errorf("failed to render child block %d: %w", child.ID, err)
			}
			if resp != nil {
				body.WriteString(resp.Body)
			}
		}
	}

	out := body.String()
	if layout := block.Setting("layout"); layout != "" {
		if strings.Contains(layout, ContentPlaceholder) {
			out = strings.ReplaceAll(layout, ContentPlaceholder, out)
		} else {
			out = layout + out
		}
	}

	shell.Body = out
	return shell, nil
}
