// Package cms resolves pages, assembles their block trees, renders blocks
// through the cache backends and decorates framework responses with page
// templates. A Manager is request scoped; a Factory builds one per request.
package cms

import (
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/blocks"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/monitoring"
)

// DefaultRouteMarker is the route name bound to pure CMS pages.
const DefaultRouteMarker = "page_slug"

// Templating renders page and block templates by code.
type Templating interface {
	Render(code string, params map[string]any) (string, error)
	// RenderIntoResponse replaces resp's body, keeping its status and headers.
	RenderIntoResponse(code string, params map[string]any, resp *rendering.Response) (*rendering.Response, error)
}

// Dependencies are the collaborators shared by every Manager.
type Dependencies struct {
	Pages     repositories.PageRepository
	Blocks    repositories.BlockRepository
	Services  *blocks.Registry
	Caches    *manager.Manager
	Templates Templating
	Decider   *DecisionStrategy
	Tracer    trace.Tracer
	Monitor   *monitoring.CacheMonitor
	Logger    *logging.ChanneledLogger
}

// Options tune Manager behaviour.
type Options struct {
	Policy        ErrorPolicy
	RouteMarker   string
	DefaultLayout string
	ErrorPages    ErrorPages
}

// Factory holds the shared collaborators and hands out request-scoped
// Managers.
type Factory struct {
	deps Dependencies
	opts Options
}

func NewFactory(deps Dependencies, opts Options) *Factory {
	if deps.Logger == nil {
		deps.Logger = logging.NewDiscardLogger()
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("cms")
	}
	if deps.Monitor == nil {
		deps.Monitor = monitoring.NewCacheMonitor()
	}
	if deps.Decider == nil {
		deps.Decider = &DecisionStrategy{ignoreRoutes: map[string]bool{}}
	}
	if opts.RouteMarker == "" {
		opts.RouteMarker = DefaultRouteMarker
	}
	if opts.ErrorPages == nil {
		opts.ErrorPages = DefaultErrorPages()
	}
	return &Factory{deps: deps, opts: opts}
}

// NewManager returns a Manager with its own route-page cache, block map and
// current page, scoped to site.
func (f *Factory) NewManager(site *content.Site) *Manager {
	return &Manager{
		Dependencies: f.deps,
		opts:         f.opts,
		site:         site,
		routePages:   make(map[string]*content.Page),
		blocks:       make(map[int64]*content.Block),
	}
}

func (f *Factory) Decider() *DecisionStrategy { return f.deps.Decider }

func (f *Factory) Options() Options { return f.opts }

func (f *Factory) Monitor() *monitoring.CacheMonitor { return f.deps.Monitor }
