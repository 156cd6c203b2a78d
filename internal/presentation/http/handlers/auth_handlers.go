package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/security"
	"github.com/AtRiskMedia/tractstack-cms/pkg/config"
)

// AdminSubject is the token subject of cache admin sessions.
const AdminSubject = "admin"

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	auth   config.AuthConfig
	logger *logging.ChanneledLogger
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(auth config.AuthConfig, logger *logging.ChanneledLogger) *AuthHandlers {
	return &AuthHandlers{auth: auth, logger: logger}
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// PostLogin handles POST /api/v1/auth/login - admin authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	start := time.Now()
	ctx := c.Request.Context()
	h.logger.WithContext(logging.ChannelAuth, ctx).Debug("Received login request", "method", c.Request.Method, "path", c.Request.URL.Path)

	if h.auth.AdminPasswordHash == "" || h.auth.JWTSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin login disabled"})
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}

	if !security.CheckPassword(h.auth.AdminPasswordHash, req.Password) {
		h.logger.WithContext(logging.ChannelAuth, ctx).Warn("Admin login failed", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, expires, err := security.GenerateAdminToken(AdminSubject, h.auth.JWTSecret, h.auth.TokenTTL)
	if err != nil {
		h.logger.WithContext(logging.ChannelAuth, ctx).Error("Admin token generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	h.logger.WithContext(logging.ChannelAuth, ctx).Info("Admin login succeeded", "ip", c.ClientIP(), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires})
}
