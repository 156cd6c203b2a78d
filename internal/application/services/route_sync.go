// Package services holds application workflows that sit outside the
// per-request rendering path.
package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/cms"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// RouteManifest is the YAML file listing framework routes when no router
// is available, e.g. from the CLI.
type RouteManifest struct {
	Routes []ManifestRoute `yaml:"routes"`
}

// ManifestRoute is one named route of a manifest.
type ManifestRoute struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
}

// LoadRouteManifest reads the route names listed in a YAML manifest.
func LoadRouteManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route manifest: %w", err)
	}

	var manifest RouteManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, cmserrors.Configuration("invalid route manifest %s: %v", path, err)
	}

	names := make([]string, 0, len(manifest.Routes))
	for i, r := range manifest.Routes {
		if r.Name == "" {
			return nil, cmserrors.Configuration("route %d in %s has no name", i, path)
		}
		names = append(names, r.Name)
	}
	return names, nil
}

// SyncResult reports what a synchronization did, by route name.
type SyncResult struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
	Skipped  []string `json:"skipped"`
	Orphans  []string `json:"orphans"`
	Deleted  []string `json:"deleted"`
}

// RouteSyncService creates the hybrid pages of named routes in bulk and
// finds pages whose route no longer exists.
type RouteSyncService struct {
	pages      repositories.PageRepository
	decider    *cms.DecisionStrategy
	errorPages cms.ErrorPages
	marker     string
	logger     *logging.ChanneledLogger
}

func NewRouteSyncService(pages repositories.PageRepository, decider *cms.DecisionStrategy, opts cms.Options, logger *logging.ChanneledLogger) *RouteSyncService {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	marker := opts.RouteMarker
	if marker == "" {
		marker = cms.DefaultRouteMarker
	}
	errorPages := opts.ErrorPages
	if errorPages == nil {
		errorPages = cms.DefaultErrorPages()
	}
	return &RouteSyncService{
		pages:      pages,
		decider:    decider,
		errorPages: errorPages,
		marker:     marker,
		logger:     logger,
	}
}

// Sync makes sure every decorable route of site has a page and every error
// route has one too. The CMS marker and decorator-ignored routes are
// skipped. Hybrid pages whose route is not in routes are reported as
// orphans and, with clean, deleted.
func (s *RouteSyncService) Sync(ctx context.Context, site *content.Site, routes []string, clean bool) (*SyncResult, error) {
	start := time.Now()
	if site == nil {
		return nil, cmserrors.Configuration("route sync requires a site")
	}

	template := s.pages.DefaultTemplate()
	if template == "" {
		return nil, cmserrors.Configuration("no default template configured, cannot create route pages")
	}

	errorRoutes := make(map[int]string, len(s.errorPages))
	known := make(map[string]bool, len(routes)+len(s.errorPages))
	for status, route := range s.errorPages {
		errorRoutes[status] = route
		known[route] = true
	}

	result := &SyncResult{}
	seen := make(map[string]bool, len(routes))
	for _, name := range sorted(routes) {
		if seen[name] {
			continue
		}
		seen[name] = true
		known[name] = true

		if name == s.marker || isErrorRoute(errorRoutes, name) || (s.decider != nil && !s.decider.IsRouteDecorable(name)) {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		created, err := s.ensure(ctx, site, content.NewPage{
			SiteID:    site.ID,
			RouteName: name,
			Name:      name,
			Template:  template,
			IsHybrid:  true,
			Decorate:  true,
			Enabled:   true,
		})
		if err != nil {
			return nil, err
		}
		if created {
			result.Created = append(result.Created, name)
		} else {
			result.Existing = append(result.Existing, name)
		}
	}

	statuses := make([]int, 0, len(errorRoutes))
	for status := range errorRoutes {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	for _, status := range statuses {
		name := errorRoutes[status]
		created, err := s.ensure(ctx, site, content.NewPage{
			SiteID:    site.ID,
			RouteName: name,
			Name:      fmt.Sprintf("Error %d", status),
			Template:  template,
			IsHybrid:  true,
			Decorate:  false,
			Enabled:   true,
		})
		if err != nil {
			return nil, err
		}
		if created {
			result.Created = append(result.Created, name)
		} else {
			result.Existing = append(result.Existing, name)
		}
	}

	pages, err := s.pages.FindAll(ctx, site.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages for site %d: %w", site.ID, err)
	}
	for _, page := range pages {
		if !page.IsHybrid || page.RouteName == "" || page.RouteName == s.marker || known[page.RouteName] {
			continue
		}
		result.Orphans = append(result.Orphans, page.RouteName)
		if !clean {
			continue
		}
		if err := s.pages.Delete(ctx, page.ID); err != nil {
			return nil, fmt.Errorf("failed to delete orphan page %d: %w", page.ID, err)
		}
		result.Deleted = append(result.Deleted, page.RouteName)
	}
	sort.Strings(result.Orphans)
	sort.Strings(result.Deleted)

	s.logger.Content().Info("Route synchronization completed",
		"siteId", site.ID,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
		"orphans", len(result.Orphans),
		"deleted", len(result.Deleted),
		"duration", time.Since(start))
	return result, nil
}

func (s *RouteSyncService) ensure(ctx context.Context, site *content.Site, np content.NewPage) (bool, error) {
	existing, err := s.pages.FindByRouteName(ctx, site.ID, np.RouteName)
	if err != nil {
		return false, fmt.Errorf("failed to find page for route %s: %w", np.RouteName, err)
	}
	if existing != nil {
		return false, nil
	}
	page, err := s.pages.Create(ctx, np)
	if err != nil {
		return false, fmt.Errorf("failed to create page for route %s: %w", np.RouteName, err)
	}
	s.logger.Content().Debug("Route page created", "route", np.RouteName, "pageId", page.ID)
	return true, nil
}

func isErrorRoute(errorRoutes map[int]string, name string) bool {
	for _, r := range errorRoutes {
		if r == name {
			return true
		}
	}
	return false
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
