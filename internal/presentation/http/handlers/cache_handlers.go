package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/manager"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/monitoring"
)

// CacheHandlers exposes the cache registry to administrators.
type CacheHandlers struct {
	caches      *manager.Manager
	monitor     *monitoring.CacheMonitor
	broadcaster *messaging.Broadcaster
	upgrader    websocket.Upgrader
	logger      *logging.ChanneledLogger
}

func NewCacheHandlers(caches *manager.Manager, monitor *monitoring.CacheMonitor, broadcaster *messaging.Broadcaster, logger *logging.ChanneledLogger) *CacheHandlers {
	return &CacheHandlers{
		caches:      caches,
		monitor:     monitor,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the stream sits behind AdminAuth
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// InvalidateRequest names what to evict: either cache keys, removing every
// entry whose keys contain all of the given pairs, or a raw key pattern
// such as "block_id=7::*".
type InvalidateRequest struct {
	Keys    map[string]string `json:"keys"`
	Pattern string            `json:"pattern"`
}

// PostInvalidate handles POST /api/v1/cms/cache/invalidate
func (h *CacheHandlers) PostInvalidate(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	h.logger.WithContext(logging.ChannelCache, ctx).Debug("Received cache invalidate request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var req InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	var report manager.InvalidationReport
	switch {
	case len(req.Keys) > 0 && req.Pattern != "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "keys and pattern are mutually exclusive"})
		return
	case req.Pattern != "":
		report = h.caches.InvalidatePattern(ctx, req.Pattern)
	case len(req.Keys) > 0:
		report = h.caches.Invalidate(ctx, rendering.NewCacheElement(req.Keys, 0))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "keys or pattern is required"})
		return
	}

	h.logger.WithContext(logging.ChannelCache, ctx).Info("Cache invalidate request completed",
		"key", report.Key, "evicted", report.Evicted(), "failed", report.Failed, "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"report": report, "evicted": report.Evicted()})
}

// GetStats handles GET /api/v1/cms/cache/stats
func (h *CacheHandlers) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cache":         h.caches.Stats(),
		"monitor":       h.monitor.Summary(),
		"streamClients": h.broadcaster.ClientCount(),
	})
}

// GetEvents handles GET /api/v1/cms/cache/events, streaming every
// invalidation report over a websocket until the client disconnects.
func (h *CacheHandlers) GetEvents(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithContext(logging.ChannelHTTP, c.Request.Context()).Warn("Websocket upgrade failed", "error", err)
		return
	}

	h.logger.WithContext(logging.ChannelHTTP, c.Request.Context()).Info("Invalidation stream client connected", "ip", c.ClientIP())
	h.broadcaster.Serve(c.Request.Context(), messaging.NewClient(conn))
	h.logger.HTTP().Info("Invalidation stream client disconnected", "ip", c.ClientIP())
}
