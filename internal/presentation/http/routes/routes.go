// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/container"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/http/middleware"
)

// NamedRoute is a framework route a hybrid page can be bound to.
type NamedRoute struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Registry registers named routes on the engine and remembers them for
// route synchronization.
type Registry struct {
	engine *gin.Engine
	site   *gin.RouterGroup
	routes []NamedRoute
}

// Handle registers handlers under name. The name is what the CMS resolves
// the hybrid page by.
func (r *Registry) Handle(group gin.IRoutes, method, path, name string, handlers ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{middleware.RouteName(name)}, handlers...)
	group.Handle(method, path, chain...)
	r.routes = append(r.routes, NamedRoute{Name: name, Method: method, Path: path})
}

// GET registers a named GET route behind the site and CMS middleware.
func (r *Registry) GET(path, name string, handlers ...gin.HandlerFunc) {
	r.Handle(r.site, http.MethodGet, path, name, handlers...)
}

// POST registers a named POST route behind the site and CMS middleware.
func (r *Registry) POST(path, name string, handlers ...gin.HandlerFunc) {
	r.Handle(r.site, http.MethodPost, path, name, handlers...)
}

// Routes returns the registered routes sorted by name.
func (r *Registry) Routes() []NamedRoute {
	out := append([]NamedRoute(nil), r.routes...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the distinct registered route names, sorted.
func (r *Registry) Names() []string {
	seen := make(map[string]bool, len(r.routes))
	names := make([]string, 0, len(r.routes))
	for _, route := range r.Routes() {
		if !seen[route.Name] {
			seen[route.Name] = true
			names = append(names, route.Name)
		}
	}
	return names
}

// Engine returns the underlying gin engine.
func (r *Registry) Engine() *gin.Engine { return r.engine }

// SetupRoutes configures all HTTP routes and middleware with dependency
// injection. register adds the application's own named routes; any path
// left unmatched is served as a pure CMS page.
func SetupRoutes(c *container.Container, register ...func(*Registry)) *Registry {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(c.Logger))
	r.Use(middleware.CORSMiddleware(c.Config.Server.CORSOrigins))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Initialize handlers
	pageHandlers := handlers.NewPageHandlers(c.Logger)
	fragmentHandlers := handlers.NewFragmentHandlers(c.Logger)
	authHandlers := handlers.NewAuthHandlers(c.Config.Auth, c.Logger)
	cacheHandlers := handlers.NewCacheHandlers(c.Caches, c.Monitor, c.Broadcaster, c.Logger)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
		}

		fragments := api.Group("/fragments")
		fragments.Use(middleware.SiteMiddleware(c.Sites, c.Logger), middleware.SubRequest(), middleware.CMSMiddleware(c.CMS, c.Logger))
		{
			fragments.GET("/blocks/:id", fragmentHandlers.GetBlockFragment)
		}

		admin := api.Group("/cms/cache")
		admin.Use(middleware.AdminAuth(c.Config.Auth.JWTSecret, c.Logger))
		{
			admin.POST("/invalidate", cacheHandlers.PostInvalidate)
			admin.GET("/stats", cacheHandlers.GetStats)
			admin.GET("/events", cacheHandlers.GetEvents)
		}
	}

	site := r.Group("/")
	site.Use(middleware.SiteMiddleware(c.Sites, c.Logger), middleware.CMSMiddleware(c.CMS, c.Logger))
	registry := &Registry{engine: r, site: site}
	for _, fn := range register {
		fn(registry)
	}

	r.NoRoute(
		middleware.SiteMiddleware(c.Sites, c.Logger),
		middleware.CMSMiddleware(c.CMS, c.Logger),
		middleware.RouteName(c.CMS.Options().RouteMarker),
		pageHandlers.ServePage,
	)

	return registry
}
