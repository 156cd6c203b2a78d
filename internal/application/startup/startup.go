// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/tractstack-cms/internal/application/container"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/http/routes"
	"github.com/AtRiskMedia/tractstack-cms/internal/presentation/http/server"
	"github.com/AtRiskMedia/tractstack-cms/pkg/config"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
const ShutdownTimeout = 30 * time.Second

// Initialize performs the complete startup sequence and blocks until
// SIGINT or SIGTERM. register adds the application's named routes.
func Initialize(cfg *config.Config, register ...func(*routes.Registry)) error {
	setupLogging(cfg.Server.Mode)

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `

 ▄██▄▄▄▄▄▄▄▄▄▄▄▄▄▄▄▄▄▄▄▄██▄▄▄▄▄▄▄██▄▄▄▄▄▄▄▄▄▄▄▄▄▄▄ ▄▄▄
  ██  ██ ██ ▀▀ ██ ██ ▀▀ ██ ██ ▀▀ ██ ▀▀ ██ ██ ▀▀ ██ ██
  ██  ██▀█▄ ██▀██ ██ ▄▄ ██ ▀▀▀██ ██ ██▀██ ██ ▄▄ ██▀█▄
  ██  ██ ██ ██▄██ ██▄██ ██ ██▄██ ██ ██▄██ ██▄██ ██ ██
   ▀▀                   ▀▀       ▀▀             ▀▀ ▀▀▀
` + "\033[97m" + `
  cms page & block renderer
` + "\033[0m")

	// Step 1: Create the channeled logger
	log.Println("Initializing logging...")
	logger, err := container.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Logger initialized - switching to channeled logging")

	// Step 2: Open the store and wire the container
	logger.Startup().Info("Initializing dependency injection container...", "driver", cfg.Database.Driver)
	startContainerTime := time.Now()
	appContainer, err := container.NewContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	logger.Startup().Info("Container initialized",
		"templates", appContainer.Templates.Codes(),
		"cacheBindings", appContainer.Caches.Types(),
		"policy", appContainer.CMS.Options().Policy.String(),
		"tracing", appContainer.Tracing.Enabled(),
		"duration", time.Since(startContainerTime))

	// Step 3: Start background workers
	logger.Startup().Info("Starting background workers...")
	if err := appContainer.Start(ctx); err != nil {
		_ = appContainer.Close(context.Background())
		return fmt.Errorf("failed to start background workers: %w", err)
	}

	// Step 4: Build the HTTP server and its routes
	logger.Startup().Info("Initializing HTTP server...")
	httpServer := server.New(appContainer, register...)

	// Step 5: Make sure every named route has its page
	startSyncTime := time.Now()
	if site, err := appContainer.Sites.FindDefault(ctx); err != nil || site == nil {
		logger.Startup().Warn("Route synchronization skipped, no default site", "error", err)
	} else if result, err := appContainer.RouteSync.Sync(ctx, site, httpServer.Routes().Names(), false); err != nil {
		logger.Startup().Error("Route synchronization failed", "error", err)
	} else {
		logger.Startup().Info("Route synchronization completed",
			"created", len(result.Created), "orphans", result.Orphans, "duration", time.Since(startSyncTime))
	}

	// Step 6: Setup graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", cfg.Server.Port)

	// Wait for shutdown signal
	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}

	shutdownStart := time.Now()

	// Cancel background tasks
	cancelBackgroundTasks()

	// Stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Closing container...")
	if err := appContainer.Close(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures gin and the standard logger used before the
// channeled logger exists.
func setupLogging(mode string) {
	switch mode {
	case gin.ReleaseMode, gin.DebugMode, gin.TestMode:
		gin.SetMode(mode)
	default:
		if os.Getenv("GIN_MODE") == "release" {
			gin.SetMode(gin.ReleaseMode)
		}
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
