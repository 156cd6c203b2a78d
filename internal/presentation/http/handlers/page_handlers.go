package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/http/middleware"
)

// PageHandlers serves pure CMS pages for every path no framework route
// claims.
type PageHandlers struct {
	logger *logging.ChanneledLogger
}

func NewPageHandlers(logger *logging.ChanneledLogger) *PageHandlers {
	return &PageHandlers{logger: logger}
}

// ServePage handles NoRoute: the request path is the page slug. A missing
// page answers 404, which the CMS middleware replaces with the not found
// error page when one exists.
func (h *PageHandlers) ServePage(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	h.logger.WithContext(logging.ChannelContent, ctx).Debug("Received page request", "method", c.Request.Method, "path", c.Request.URL.Path)

	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		htmlError(c, http.StatusNotFound)
		return
	}

	mgr, exists := middleware.GetManager(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cms manager not found"})
		return
	}

	resp, err := mgr.RenderPageBySlug(ctx, c.Request.URL.Path)
	if err != nil {
		if !cmserrors.IsNotFound(err) {
			h.logger.WithContext(logging.ChannelContent, ctx).Error("Page render failed",
				"path", c.Request.URL.Path, "error", err)
		}
		htmlError(c, statusFor(err))
		return
	}

	h.logger.WithContext(logging.ChannelContent, ctx).Info("Page request completed",
		"path", c.Request.URL.Path, "pageId", mgr.CurrentPage().ID, "duration", time.Since(start))
	writeResponse(c, resp)
}
