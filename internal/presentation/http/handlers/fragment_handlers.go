package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/http/middleware"
)

// FragmentHandlers renders single blocks for partial page updates.
type FragmentHandlers struct {
	logger *logging.ChanneledLogger
}

// NewFragmentHandlers creates a new fragment handlers instance
func NewFragmentHandlers(logger *logging.ChanneledLogger) *FragmentHandlers {
	return &FragmentHandlers{logger: logger}
}

// GetBlockFragment handles GET /api/v1/fragments/blocks/:id. The block
// renders through its cache backend unless nocache=1 is given.
func (h *FragmentHandlers) GetBlockFragment(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	h.logger.WithContext(logging.ChannelRender, ctx).Debug("Received get fragment request", "method", c.Request.Method, "path", c.Request.URL.Path)

	mgr, exists := middleware.GetManager(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cms manager not found"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "block id must be a positive integer"})
		return
	}

	block, err := mgr.GetBlock(ctx, id)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	site := mgr.Site()
	page, err := mgr.GetPageByID(ctx, block.PageID)
	if err == nil && (page == nil || (site != nil && page.SiteID != site.ID)) {
		err = cmserrors.NotFound("block %d not found", id)
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	useCache := c.Query("nocache") != "1"
	resp, err := mgr.RenderBlock(ctx, block, page, useCache)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.WithContext(logging.ChannelRender, ctx).Info("Get fragment request completed",
		"blockId", id, "cache", useCache, "duration", time.Since(start))
	writeResponse(c, resp)
}
