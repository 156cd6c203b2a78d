package blocks

import (
	"context"
	"fmt"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

const TypeTemplate = "cms.template"

// Templates renders a named template with params.
type Templates interface {
	Render(code string, params map[string]any) (string, error)
}

// TemplateService renders settings["template"] with the block settings
// exposed as .settings, alongside .block and .page.
type TemplateService struct {
	templates Templates
}

func NewTemplateService(templates Templates) *TemplateService {
	return &TemplateService{templates: templates}
}

func (s *TemplateService) CacheElement(block *content.Block, page *content.Page) rendering.CacheElement {
	return DefaultElement(block, page, map[string]string{KeyTemplate: block.Setting("template")})
}

func (s *TemplateService) Execute(_ context.Context, block *content.Block, page *content.Page, shell *rendering.Response) (*rendering.Response, error) {
	code := block.Setting("template")
	if code == "" {
		return nil, fmt.Errorf("block %d has no template setting", block.ID)
	}

	body, err := s.templates.Render(code, map[string]any{
		"settings": block.Settings,
		"block":    block,
		"page":     page,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render template %s for block %d: %w", code, block.ID, err)
	}
	shell.Body = body
	return shell, nil
}

// RegisterBuiltins adds the container, text and template services.
func RegisterBuiltins(r *Registry, templates Templates) {
	r.Register(TypeContainer, NewContainerService())
	r.Register(TypeText, NewTextService())
	r.Register(TypeTemplate, NewTemplateService(templates))
}
