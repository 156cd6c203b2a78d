package blocks

import (
	"context"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

const TypeText = "cms.text"

// TextService emits settings["content"] verbatim. Content is editor-authored
// HTML and is trusted.
type TextService struct{}

func NewTextService() *TextService { return &TextService{} }

func (s *TextService) CacheElement(block *content.Block, page *content.Page) rendering.CacheElement {
	return DefaultElement(block, page, nil)
}

func (s *TextService) Execute(_ context.Context, block *content.Block, _ *content.Page, shell *rendering.Response) (*rendering.Response, error) {
	shell.Body = block.Setting("content")
	return shell, nil
}
