package cms

import (
	"context"
	"net/http"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// ErrorPages maps HTTP status codes to the route names of their CMS pages.
type ErrorPages map[int]string

const (
	RouteNotFound = "_page_internal_error_not_found"
	RouteFatal    = "_page_internal_error_fatal"
)

func DefaultErrorPages() ErrorPages {
	return ErrorPages{
		http.StatusNotFound:            RouteNotFound,
		http.StatusInternalServerError: RouteFatal,
	}
}

// Routes returns the mapped route names.
func (e ErrorPages) Routes() []string {
	out := make([]string, 0, len(e))
	for _, r := range e {
		out = append(out, r)
	}
	return out
}

// RenderErrorPage replaces resp's body with the CMS page bound to its
// status, keeping the status. It reports false when no page is mapped or
// none exists for the route.
func (m *Manager) RenderErrorPage(ctx context.Context, resp *rendering.Response) (bool, error) {
	route, ok := m.opts.ErrorPages[resp.StatusCode]
	if !ok {
		return false, nil
	}

	page, err := m.GetPageByRouteName(ctx, route, false)
	if err != nil {
		if cmserrors.IsNotFound(err) {
			m.Logger.WithContext(logging.ChannelContent, ctx).Debug("No error page configured",
				"status", resp.StatusCode, "route", route)
			return false, nil
		}
		return false, err
	}

	status := resp.StatusCode
	m.SetCurrentPage(page)
	if _, err := m.RenderPage(ctx, page, map[string]any{"content": resp.Body}, resp); err != nil {
		return false, err
	}
	resp.StatusCode = status
	return true, nil
}

// RenderPageBySlug renders the enabled pure CMS page at slug. A missing or
// disabled page is a not-found error.
func (m *Manager) RenderPageBySlug(ctx context.Context, slug string) (*rendering.Response, error) {
	page, err := m.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if page == nil || !page.Enabled {
		return nil, cmserrors.NotFound("no page for slug %q", slug)
	}

	m.SetCurrentPage(page)
	return m.RenderPage(ctx, page, map[string]any{"content": ""}, nil)
}
