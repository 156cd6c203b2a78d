// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/blocks"
	"github.com/AtRiskMedia/tractstack-cms/internal/application/cms"
	"github.com/AtRiskMedia/tractstack-cms/internal/application/services"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/backends"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/cleanup"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/monitoring"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/tracing"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/persistence/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/templates"
	"github.com/AtRiskMedia/tractstack-cms/pkg/config"
)

// DefaultSiteHost is the host of the site seeded into an empty store.
const DefaultSiteHost = "localhost"

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	Config *config.Config
	Logger *logging.ChanneledLogger

	// Stores
	DB     *database.DB
	Sites  repositories.SiteRepository
	Pages  repositories.PageRepository
	Blocks repositories.BlockRepository

	// Rendering
	Templates *templates.Engine
	Services  *blocks.Registry
	CMS       *cms.Factory
	RouteSync *services.RouteSyncService

	// Caching and observability
	Caches      *manager.Manager
	Monitor     *monitoring.CacheMonitor
	Cleanup     *cleanup.Worker
	Tracing     *tracing.Provider
	Broadcaster *messaging.Broadcaster
}

// NewLogger builds the channeled logger described by cfg.
func NewLogger(cfg config.LoggingConfig) (*logging.ChanneledLogger, error) {
	levels := make(map[logging.Channel]slog.Level, len(cfg.ChannelLevels))
	for channel, level := range cfg.ChannelLevels {
		levels[logging.Channel(channel)] = logging.ParseLevel(level)
	}
	return logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    cfg.ToFile,
		OutputToConsole: true,
		LogDirectory:    cfg.Directory,
		JSONFormat:      cfg.JSON,
		DefaultLevel:    logging.ParseLevel(cfg.Level),
		ChannelLevels:   levels,
	})
}

// NewContainer opens the store and wires every service. The caller owns
// the returned container and must Close it.
func NewContainer(ctx context.Context, cfg *config.Config, logger *logging.ChanneledLogger) (*Container, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	c := &Container{Config: cfg, Logger: logger}

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	c.DB = db

	if err := c.wire(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(ctx context.Context) error {
	cfg := c.Config
	tc := database.NewTableCreator()
	if err := tc.CreateSchema(ctx, c.DB.DB); err != nil {
		return err
	}
	if err := tc.SeedInitialContent(ctx, c.DB.DB, DefaultSiteHost); err != nil {
		return err
	}

	engine, err := templates.NewEngine(cfg.CMS.TemplatesDir, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	c.Templates = engine

	c.Sites = content.NewSiteRepository(c.DB)
	c.Pages = content.NewPageRepository(c.DB, defaultTemplate(engine, cfg.CMS.DefaultTemplate, c.Logger))
	c.Blocks = content.NewBlockRepository(c.DB)

	c.Services = blocks.NewRegistry()
	blocks.RegisterBuiltins(c.Services, engine)

	c.Caches = manager.NewManager(c.Logger)
	if err := registerBackends(c.Caches, c.Services, cfg.Cache, c.Logger); err != nil {
		return err
	}
	c.Monitor = monitoring.NewCacheMonitor()
	c.Cleanup = cleanup.NewWorker(c.Caches, cleanup.NewConfig(cfg.Cache.PurgeSchedule, cfg.Cache.PurgeVerbose), c.Logger)

	c.Broadcaster = messaging.NewBroadcaster(c.Logger)
	c.Caches.OnInvalidate(func(report manager.InvalidationReport) {
		for _, res := range report.Results {
			c.Monitor.RecordInvalidation(res.Backend, res.Evicted)
		}
		c.Broadcaster.Publish(report)
	})

	engine.OnReload(c.evictTemplateOutput)

	c.Tracing, err = tracing.NewProvider(ctx, cfg.Tracing, os.Stdout)
	if err != nil {
		return err
	}

	decider, err := cms.NewDecisionStrategy(cms.DecoratorConfig{
		IgnoreRoutes:        cfg.CMS.Decorator.IgnoreRoutes,
		IgnoreRoutePatterns: cfg.CMS.Decorator.IgnoreRoutePatterns,
		IgnoreURIPatterns:   cfg.CMS.Decorator.IgnoreURIPatterns,
	})
	if err != nil {
		return err
	}
	errorPages, err := cfg.CMS.ErrorPageRoutes()
	if err != nil {
		return err
	}

	opts := cms.Options{
		Policy:        cms.PolicyFromDebug(cfg.CMS.Debug),
		RouteMarker:   cfg.CMS.RouteMarker,
		DefaultLayout: cfg.CMS.DefaultLayout,
		ErrorPages:    cms.ErrorPages(errorPages),
	}
	c.CMS = cms.NewFactory(cms.Dependencies{
		Pages:     c.Pages,
		Blocks:    c.Blocks,
		Services:  c.Services,
		Caches:    c.Caches,
		Templates: engine,
		Decider:   decider,
		Tracer:    c.Tracing.Tracer(),
		Monitor:   c.Monitor,
		Logger:    c.Logger,
	}, opts)
	c.RouteSync = services.NewRouteSyncService(c.Pages, decider, c.CMS.Options(), c.Logger)
	return nil
}

// evictTemplateOutput drops cached blocks rendered from templates that
// changed on disk.
func (c *Container) evictTemplateOutput(ctx context.Context, codes []string) {
	for _, code := range codes {
		report := c.Caches.Invalidate(ctx, rendering.NewCacheElement(map[string]string{blocks.KeyTemplate: code}, 0))
		c.Logger.Cache().Info("Evicted blocks for reloaded template", "template", code, "evicted", report.Evicted())
	}
}

// defaultTemplate returns the template given to provisioned pages. A
// configured template that is not loaded falls back to the built-in layout
// so new pages stay renderable.
func defaultTemplate(engine *templates.Engine, configured string, logger *logging.ChanneledLogger) string {
	if configured == "" || engine.Has(configured) {
		return configured
	}
	logger.Startup().Warn("Default template not loaded, provisioning pages with the built-in layout",
		"template", configured, "fallback", templates.DefaultLayoutCode, "dir", engine.Dir())
	return templates.DefaultLayoutCode
}

// registerBackends builds each configured backend once and binds it to its
// block types. Block services left without a binding are reported; they
// fail with a configuration error when rendered.
func registerBackends(caches *manager.Manager, svc *blocks.Registry, cfg config.CacheConfig, logger *logging.ChanneledLogger) error {
	built := make(map[string]interfaces.Backend)
	for _, binding := range cfg.Bindings {
		backend, ok := built[binding.Backend]
		if !ok {
			var err error
			backend, err = newBackend(binding.Backend, cfg)
			if err != nil {
				return err
			}
			built[binding.Backend] = backend
		}
		caches.Register(binding.BlockType, backend)
	}

	bound := make(map[string]bool)
	for _, t := range caches.Types() {
		bound[t] = true
	}
	var unbound []string
	for _, t := range svc.Types() {
		if !bound[t] {
			unbound = append(unbound, t)
		}
	}
	if len(unbound) > 0 {
		sort.Strings(unbound)
		logger.Cache().Warn("Block types without a cache backend", "types", unbound)
	}
	return nil
}

func newBackend(name string, cfg config.CacheConfig) (interfaces.Backend, error) {
	switch name {
	case "fragments":
		return backends.NewFragments(stores.NewFragmentsStore(cfg.FragmentTTL)), nil
	case "memory":
		return backends.NewMemory(cfg.Memory.DefaultTTL, cfg.Memory.CleanupInterval), nil
	case "shared":
		shared := backends.DefaultSharedConfig()
		if cfg.Shared.Capacity > 0 {
			shared.Capacity = cfg.Shared.Capacity
		}
		if cfg.Shared.NumShards > 0 {
			shared.NumShards = cfg.Shared.NumShards
		}
		if cfg.Shared.TTL > 0 {
			shared.TTL = cfg.Shared.TTL
		}
		if cfg.Shared.EvictionPercentage > 0 {
			shared.EvictionPercentage = cfg.Shared.EvictionPercentage
		}
		shared.EvictionInterval = cfg.Shared.EvictionInterval
		return backends.NewShared(shared)
	case "noop":
		return backends.NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", name)
	}
}

// Start launches the background workers: the invalidation stream, the
// purge schedule and, when enabled, the template watcher. They stop when
// ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.Broadcaster.Run(ctx)

	if err := c.Cleanup.Start(ctx); err != nil {
		return err
	}
	if c.Config.CMS.WatchTemplates {
		if err := c.Templates.Watch(ctx, templates.DefaultDebounce); err != nil {
			c.Logger.Startup().Warn("Template watcher not started", "error", err)
		}
	}
	return nil
}

// Close stops the workers and releases the store and tracer.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Cleanup != nil {
		c.Cleanup.Stop()
	}
	if c.Tracing != nil {
		if err := c.Tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down tracing: %w", err))
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
