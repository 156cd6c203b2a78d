package cms

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// GetPage resolves ref: nil is the current page, a string is a slug, an
// integer is an id and a *content.Page is returned as is.
func (m *Manager) GetPage(ctx context.Context, ref any) (*content.Page, error) {
	switch v := ref.(type) {
	case nil:
		if m.currentPage == nil {
			return nil, cmserrors.NotFound("no current page is defined")
		}
		return m.currentPage, nil
	case *content.Page:
		if v == nil {
			return nil, cmserrors.NotFound("nil page reference")
		}
		return v, nil
	case string:
		return m.requirePage(m.GetPageBySlug(ctx, v))
	case int:
		return m.requirePage(m.GetPageByID(ctx, int64(v)))
	case int32:
		return m.requirePage(m.GetPageByID(ctx, int64(v)))
	case int64:
		return m.requirePage(m.GetPageByID(ctx, v))
	case uint:
		return m.pageByUnsignedID(ctx, uint64(v))
	case uint32:
		return m.requirePage(m.GetPageByID(ctx, int64(v)))
	case uint64:
		return m.pageByUnsignedID(ctx, v)
	default:
		return nil, cmserrors.NotFound("unsupported page reference of type %T", ref)
	}
}

// pageByUnsignedID rejects ids no stored page can carry.
func (m *Manager) pageByUnsignedID(ctx context.Context, id uint64) (*content.Page, error) {
	if id > math.MaxInt64 {
		return nil, cmserrors.NotFound("page id %d out of range", id)
	}
	return m.requirePage(m.GetPageByID(ctx, int64(id)))
}

func (m *Manager) requirePage(page *content.Page, err error) (*content.Page, error) {
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, cmserrors.NotFound("page not found")
	}
	return page, nil
}

// GetPageByRouteName returns the page bound to a route, creating a hybrid
// page with the default template when none exists and create is set.
func (m *Manager) GetPageByRouteName(ctx context.Context, name string, create bool) (*content.Page, error) {
	if page, ok := m.routePages[name]; ok {
		return page, nil
	}

	page, err := m.Pages.FindByRouteName(ctx, m.siteID(), name)
	if err != nil {
		return nil, fmt.Errorf("failed to find page for route %s: %w", name, err)
	}

	if page == nil {
		if !create {
			return nil, cmserrors.With(cmserrors.NotFound("no page for route %q", name), "route", name)
		}
		page, err = m.provisionPage(ctx, name)
		if err != nil {
			return nil, err
		}
	}

	if err := m.LoadBlocks(ctx, page); err != nil {
		return nil, err
	}
	m.routePages[name] = page
	return page, nil
}

func (m *Manager) provisionPage(ctx context.Context, name string) (*content.Page, error) {
	template := m.Pages.DefaultTemplate()
	if template == "" {
		return nil, cmserrors.Configuration("no default template configured, cannot create page for route %q", name)
	}

	page, err := m.Pages.Create(ctx, content.NewPage{
		SiteID:    m.siteID(),
		RouteName: name,
		Name:      name,
		Template:  template,
		IsHybrid:  true,
		Decorate:  true,
		Enabled:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page for route %s: %w", name, err)
	}

	m.Logger.WithContext(logging.ChannelContent, ctx).Info("Page auto-provisioned",
		"route", name, "pageId", page.ID, "template", template)
	return page, nil
}

// GetPageBySlug returns the page with slug, or nil when there is none.
func (m *Manager) GetPageBySlug(ctx context.Context, slug string) (*content.Page, error) {
	page, err := m.Pages.FindBySlug(ctx, m.siteID(), slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find page by slug %s: %w", slug, err)
	}
	if page == nil {
		return nil, nil
	}
	if err := m.LoadBlocks(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

// GetPageByID returns the page with id, or nil when there is none.
func (m *Manager) GetPageByID(ctx context.Context, id int64) (*content.Page, error) {
	page, err := m.Pages.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find page %d: %w", id, err)
	}
	if page == nil {
		return nil, nil
	}
	if err := m.LoadBlocks(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

// LoadBlocks fetches the page's block tree once; a loaded page is left alone.
func (m *Manager) LoadBlocks(ctx context.Context, page *content.Page) error {
	if page.Loaded() {
		return nil
	}

	list, err := m.Blocks.FindByPage(ctx, page.ID)
	if err != nil {
		return fmt.Errorf("failed to load blocks for page %d: %w", page.ID, err)
	}
	page.Blocks = content.NewBlockTree(list)
	for _, b := range list {
		m.rememberBlock(b)
	}
	return nil
}

// GetBlock returns a block already loaded in this request, falling back to
// the store.
func (m *Manager) GetBlock(ctx context.Context, id int64) (*content.Block, error) {
	if b, ok := m.blocks[id]; ok {
		return b, nil
	}
	b, err := m.Blocks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find block %d: %w", id, err)
	}
	if b == nil {
		return nil, cmserrors.NotFound("block %d not found", id)
	}
	m.rememberBlock(b)
	return b, nil
}

// DefineCurrentPage resolves the page for the request's route. Pure CMS
// requests and resolution failures yield nil; failures are logged.
func (m *Manager) DefineCurrentPage(ctx context.Context, r *http.Request) *content.Page {
	if m.currentPage != nil {
		return m.currentPage
	}

	name := RouteNameFrom(r.Context())
	if name == "" || name == m.opts.RouteMarker {
		return nil
	}

	page, err := m.GetPageByRouteName(ctx, name, true)
	if err != nil {
		m.Logger.WithContext(logging.ChannelContent, ctx).Warn("Unable to resolve page for route",
			"route", name, "error", err)
		return nil
	}
	m.currentPage = page
	return page
}

// SetCurrentPage overrides the current page and caches it under its route.
func (m *Manager) SetCurrentPage(page *content.Page) {
	m.currentPage = page
	if page != nil && page.RouteName != "" {
		m.routePages[page.RouteName] = page
	}
}

func (m *Manager) CurrentPage() *content.Page { return m.currentPage }

// SetRoutePages replaces the route-name cache.
func (m *Manager) SetRoutePages(pages map[string]*content.Page) {
	m.routePages = make(map[string]*content.Page, len(pages))
	for name, page := range pages {
		m.routePages[name] = page
	}
}
