// Package cleanup runs the scheduled sweep of expired block cache entries.
package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
)

// Cache is the part of the cache registry the worker drives.
type Cache interface {
	PurgeExpired() int
	Stats() map[string]any
}

// Worker purges expired entries on a cron schedule.
type Worker struct {
	cache  Cache
	config *Config
	logger *logging.ChanneledLogger
	mu     sync.Mutex
	cron   *cron.Cron
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cache Cache, config *Config, logger *logging.ChanneledLogger) *Worker {
	if config == nil {
		config = NewConfig("", false)
	}
	return &Worker{cache: cache, config: config, logger: logger}
}

// Start schedules the purge and stops the scheduler once ctx is done.
func (w *Worker) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.config.Schedule, func() { w.RunOnce() }); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", w.config.Schedule, err)
	}
	c.Start()
	w.mu.Lock()
	w.cron = c
	w.mu.Unlock()

	w.logger.Cache().Info("Cache cleanup worker started",
		"schedule", w.config.Schedule, "verbose", w.config.VerboseReporting)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	w.logger.Cache().Info("Cache cleanup worker stopped")
}

// RunOnce performs one purge and returns how many entries were removed.
func (w *Worker) RunOnce() int {
	start := time.Now()
	removed := w.cache.PurgeExpired()

	if w.config.VerboseReporting {
		w.logger.Cache().Info("Cache cleanup report", "stats", w.cache.Stats())
	}
	if removed > 0 || w.config.VerboseReporting {
		w.logger.Cache().Info("Cache cleanup finished", "removed", removed, "duration", time.Since(start))
	}
	return removed
}
