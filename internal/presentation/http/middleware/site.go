package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

const siteKey = "site"

// SiteMiddleware resolves the site for the request host, falling back to the
// default site.
func SiteMiddleware(sites repositories.SiteRepository, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		site, err := sites.FindByHost(ctx, c.Request.Host)
		if err == nil && site == nil {
			site, err = sites.FindDefault(ctx)
		}
		if err != nil {
			logger.WithContext(logging.ChannelContent, ctx).Error("Site resolution failed",
				"host", c.Request.Host, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "site resolution failed"})
			return
		}
		if site == nil {
			logger.WithContext(logging.ChannelContent, ctx).Warn("No site for host and no default site", "host", c.Request.Host)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "no site configured"})
			return
		}

		c.Set(siteKey, site)
		c.Next()
	}
}

// GetSite returns the site stored by SiteMiddleware.
func GetSite(c *gin.Context) (*content.Site, bool) {
	value, exists := c.Get(siteKey)
	if !exists {
		return nil, false
	}
	site, ok := value.(*content.Site)
	return site, ok
}
