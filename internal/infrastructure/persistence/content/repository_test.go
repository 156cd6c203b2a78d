package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/persistence/database"
)

var (
	_ repositories.PageRepository  = (*PageRepository)(nil)
	_ repositories.BlockRepository = (*BlockRepository)(nil)
	_ repositories.SiteRepository  = (*SiteRepository)(nil)
)

func openStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenMemory(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewTableCreator().SeedInitialContent(context.Background(), db.DB, "localhost"))
	return db
}

func TestSiteRepository(t *testing.T) {
	ctx := context.Background()
	sites := NewSiteRepository(openStore(t))

	def, err := sites.FindDefault(ctx)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "localhost", def.Host)
	assert.True(t, def.IsDefault)

	blog := &content.Site{Name: "blog", Host: "Blog.Example.com", Enabled: true}
	require.NoError(t, sites.Insert(ctx, blog))

	found, err := sites.FindByHost(ctx, "blog.example.com:8443")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, blog.ID, found.ID)

	missing, err := sites.FindByHost(ctx, "nope.example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPageRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	pages := NewPageRepository(openStore(t), "default.html")
	assert.Equal(t, "default.html", pages.DefaultTemplate())

	created, err := pages.Create(ctx, content.NewPage{
		SiteID: 1, RouteName: "home", Name: "home", Template: "default.html",
		TTL: 5 * time.Minute, IsHybrid: true, Decorate: true, Enabled: true,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	byRoute, err := pages.FindByRouteName(ctx, 1, "home")
	require.NoError(t, err)
	require.NotNil(t, byRoute)
	assert.Equal(t, created.ID, byRoute.ID)
	assert.Equal(t, 5*time.Minute, byRoute.TTL)
	assert.True(t, byRoute.IsHybrid)
	assert.Empty(t, byRoute.Slug)
	assert.False(t, byRoute.Loaded())

	byRoute.Slug = "/"
	byRoute.LoginRequired = true
	require.NoError(t, pages.Save(ctx, byRoute))

	bySlug, err := pages.FindBySlug(ctx, 1, "/")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.True(t, bySlug.LoginRequired)

	otherSite, err := pages.FindBySlug(ctx, 2, "/")
	require.NoError(t, err)
	assert.Nil(t, otherSite)

	_, err = pages.Create(ctx, content.NewPage{SiteID: 1, RouteName: "about", Name: "about", Template: "x"})
	require.NoError(t, err)
	all, err := pages.FindAll(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, pages.Delete(ctx, created.ID))
	gone, err := pages.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPageRouteNamesAreUniquePerSite(t *testing.T) {
	ctx := context.Background()
	pages := NewPageRepository(openStore(t), "default.html")

	_, err := pages.Create(ctx, content.NewPage{SiteID: 1, RouteName: "home", Name: "a", Template: "t"})
	require.NoError(t, err)
	_, err = pages.Create(ctx, content.NewPage{SiteID: 1, RouteName: "home", Name: "b", Template: "t"})
	assert.Error(t, err)

	// slug-less hybrid pages do not collide on NULL slugs
	_, err = pages.Create(ctx, content.NewPage{SiteID: 1, RouteName: "blog", Name: "c", Template: "t"})
	assert.NoError(t, err)
}

func TestBlockRepository(t *testing.T) {
	ctx := context.Background()
	db := openStore(t)
	pages := NewPageRepository(db, "default.html")
	blocks := NewBlockRepository(db)

	page, err := pages.Create(ctx, content.NewPage{SiteID: 1, Slug: "/about", Name: "about", Template: "t", Enabled: true})
	require.NoError(t, err)

	main, err := blocks.CreateContainer(ctx, content.ContainerAttrs{
		Type: "cms.container", PageID: page.ID, Name: "main", Position: 1, Enabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "main", main.Name())

	second := &content.Block{PageID: page.ID, ParentID: main.ID, Type: "cms.text", Position: 2, Enabled: true,
		Settings: map[string]any{"content": "<p>two</p>"}}
	first := &content.Block{PageID: page.ID, ParentID: main.ID, Type: "cms.text", Position: 1, Enabled: true,
		Settings: map[string]any{"content": "<p>one</p>", "ttl": 30}}
	require.NoError(t, blocks.Insert(ctx, second))
	require.NoError(t, blocks.Insert(ctx, first))

	list, err := blocks.FindByPage(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)

	tree := content.NewBlockTree(list)
	children := tree.Children(main.ID)
	require.Len(t, children, 2)
	assert.Equal(t, "<p>one</p>", children[0].Setting("content"))
	assert.Equal(t, float64(30), children[0].Settings["ttl"])
	assert.Len(t, tree.Roots(), 1)

	before := first.Updated
	first.Settings["content"] = "<p>uno</p>"
	time.Sleep(time.Millisecond)
	require.NoError(t, blocks.Save(ctx, first))

	reloaded, err := blocks.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, "<p>uno</p>", reloaded.Setting("content"))
	assert.True(t, reloaded.Updated.After(before))

	missing, err := blocks.FindByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, pages.Delete(ctx, page.ID))
	list, err = blocks.FindByPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
