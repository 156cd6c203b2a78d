// Package server provides HTTP server initialization and management.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/container"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/http/routes"
)

// Server wraps the HTTP server with configuration and dependency injection
type Server struct {
	httpServer *http.Server
	container  *container.Container
	registry   *routes.Registry
}

// New creates a new HTTP server instance with dependency injection
func New(container *container.Container, register ...func(*routes.Registry)) *Server {
	registry := routes.SetupRoutes(container, register...)
	cfg := container.Config.Server

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      registry.Engine(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		container:  container,
		registry:   registry,
	}
}

// Routes returns the named routes registered on the server.
func (s *Server) Routes() *routes.Registry { return s.registry }

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.container.Logger.Startup().Info("Starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.container.Logger.Shutdown().Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
