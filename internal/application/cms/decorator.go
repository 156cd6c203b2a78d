package cms

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// Decorate wraps resp in the current page's template when the decider
// allows it and the page is hybrid with decoration enabled. resp is
// modified in place; the return value reports whether it was decorated.
func (m *Manager) Decorate(ctx context.Context, r *http.Request, kind RequestKind, resp *rendering.Response) (bool, error) {
	if !m.Decider.IsDecorable(r, kind, resp) {
		return false, nil
	}

	page := m.DefineCurrentPage(ctx, r)
	if page == nil || !page.IsHybrid || !page.Decorate {
		return false, nil
	}

	if _, err := m.RenderPage(ctx, page, map[string]any{"content": resp.Body}, resp); err != nil {
		return false, fmt.Errorf("failed to decorate route %s: %w", RouteNameFrom(r.Context()), err)
	}

	m.Logger.WithContext(logging.ChannelRender, ctx).Debug("Response decorated",
		"pageId", page.ID, "template", page.Template)
	return true, nil
}

// RenderPage renders page's template into resp, or into a new response when
// resp is nil. A nil page or a page without a template uses the default
// layout. params["content"] is embedded unescaped.
func (m *Manager) RenderPage(ctx context.Context, page *content.Page, params map[string]any, resp *rendering.Response) (*rendering.Response, error) {
	code := m.opts.DefaultLayout
	if page != nil && page.Template != "" {
		code = page.Template
	}
	if resp == nil {
		resp = rendering.NewResponse()
	}

	out, err := m.Templates.RenderIntoResponse(code, m.pageParams(ctx, page, params), resp)
	if err != nil {
		return nil, fmt.Errorf("failed to render page template %s: %w", code, err)
	}

	if page != nil {
		applyPageCaching(out, page)
	}
	return out, nil
}

func (m *Manager) pageParams(ctx context.Context, page *content.Page, params map[string]any) map[string]any {
	out := make(map[string]any, len(params)+4)
	for k, v := range params {
		out[k] = v
	}
	if body, ok := out["content"].(string); ok {
		out["content"] = template.HTML(body)
	}
	if _, ok := out["content"]; !ok {
		out["content"] = template.HTML("")
	}

	out["page"] = page
	out["site"] = m.site
	out["container"] = func(slot string) (template.HTML, error) {
		var ref any
		if page != nil {
			ref = page
		}
		body, err := m.RenderContainer(ctx, slot, ref, nil)
		return template.HTML(body), err
	}
	return out
}

func applyPageCaching(resp *rendering.Response, page *content.Page) {
	resp.TTL = page.TTL
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	switch {
	case page.LoginRequired || page.TTL <= 0:
		resp.Header.Set("Cache-Control", "private, no-cache")
	default:
		resp.Header.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int64(page.TTL.Seconds())))
	}
}
