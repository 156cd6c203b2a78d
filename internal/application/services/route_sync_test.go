package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/cms"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	contentstore "github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/persistence/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/persistence/database"
)

type syncFixture struct {
	pages *contentstore.PageRepository
	site  *content.Site
	sync  *RouteSyncService
}

func newSyncFixture(t *testing.T, defaultTemplate string) *syncFixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenMemory(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewTableCreator().SeedInitialContent(ctx, db.DB, "localhost"))

	site, err := contentstore.NewSiteRepository(db).FindDefault(ctx)
	require.NoError(t, err)
	require.NotNil(t, site)

	decider, err := cms.NewDecisionStrategy(cms.DefaultDecoratorConfig())
	require.NoError(t, err)

	pages := contentstore.NewPageRepository(db, defaultTemplate)
	return &syncFixture{
		pages: pages,
		site:  site,
		sync:  NewRouteSyncService(pages, decider, cms.Options{}, nil),
	}
}

func TestSyncCreatesPagesAndReportsOrphans(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, "default.html")

	_, err := f.pages.Create(ctx, content.NewPage{
		SiteID: f.site.ID, RouteName: "legacy", Name: "legacy", Template: "default.html",
		IsHybrid: true, Decorate: true, Enabled: true,
	})
	require.NoError(t, err)
	_, err = f.pages.Create(ctx, content.NewPage{
		SiteID: f.site.ID, Slug: "/about", Name: "About", Template: "default.html", Enabled: true,
	})
	require.NoError(t, err)

	routes := []string{"home", "blog_show", "admin_dashboard", cms.DefaultRouteMarker, "home", "_internal"}

	result, err := f.sync.Sync(ctx, f.site, routes, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"blog_show", "home", cms.RouteNotFound, cms.RouteFatal}, result.Created)
	assert.Equal(t, []string{"_internal", "admin_dashboard", cms.DefaultRouteMarker}, result.Skipped)
	assert.Equal(t, []string{"legacy"}, result.Orphans)
	assert.Empty(t, result.Deleted)

	home, err := f.pages.FindByRouteName(ctx, f.site.ID, "home")
	require.NoError(t, err)
	require.NotNil(t, home)
	assert.True(t, home.IsHybrid)
	assert.True(t, home.Decorate)
	assert.Equal(t, "default.html", home.Template)

	notFound, err := f.pages.FindByRouteName(ctx, f.site.ID, cms.RouteNotFound)
	require.NoError(t, err)
	require.NotNil(t, notFound)
	assert.False(t, notFound.Decorate)
	assert.Equal(t, "Error 404", notFound.Name)

	again, err := f.sync.Sync(ctx, f.site, routes, true)
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Equal(t, []string{"blog_show", "home", cms.RouteNotFound, cms.RouteFatal}, again.Existing)
	assert.Equal(t, []string{"legacy"}, again.Deleted)

	legacy, err := f.pages.FindByRouteName(ctx, f.site.ID, "legacy")
	require.NoError(t, err)
	assert.Nil(t, legacy)

	about, err := f.pages.FindBySlug(ctx, f.site.ID, "/about")
	require.NoError(t, err)
	assert.NotNil(t, about, "pure CMS pages are never orphans")
}

func TestSyncRequiresDefaultTemplate(t *testing.T) {
	f := newSyncFixture(t, "")

	_, err := f.sync.Sync(context.Background(), f.site, []string{"home"}, false)
	require.Error(t, err)
	assert.True(t, cmserrors.IsConfiguration(err))
}

func TestSyncRequiresSite(t *testing.T) {
	f := newSyncFixture(t, "default.html")

	_, err := f.sync.Sync(context.Background(), nil, []string{"home"}, false)
	assert.True(t, cmserrors.IsConfiguration(err))
}

func TestLoadRouteManifest(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "routes.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`routes:
  - name: home
    path: /
    method: GET
  - name: blog_show
    path: /blog/:slug
`), 0o644))

	names, err := LoadRouteManifest(good)
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "blog_show"}, names)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("routes:\n  - path: /nameless\n"), 0o644))
	_, err = LoadRouteManifest(bad)
	assert.True(t, cmserrors.IsConfiguration(err))

	_, err = LoadRouteManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
