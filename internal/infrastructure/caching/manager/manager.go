// Package manager maps block types to cache backends and fans invalidation
// out to every registered backend.
package manager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/security"
)

// BackendResult is one backend's outcome during an invalidation.
type BackendResult struct {
	Backend string `json:"backend"`
	Evicted int    `json:"evicted"`
	Error   string `json:"error,omitempty"`
}

// InvalidationReport describes one fan-out. Failures are recorded per
// backend and never abort the remaining backends.
type InvalidationReport struct {
	ID      string            `json:"id"`
	Key     string            `json:"key"`
	Keys    map[string]string `json:"keys,omitempty"`
	Pattern string            `json:"pattern,omitempty"`
	Results []BackendResult   `json:"results"`
	Failed  int               `json:"failed"`
	At      time.Time         `json:"at"`
}

// Evicted sums the entries removed across backends.
func (r InvalidationReport) Evicted() int {
	total := 0
	for _, res := range r.Results {
		total += res.Evicted
	}
	return total
}

// Observer receives every invalidation report.
type Observer func(InvalidationReport)

// Manager is the cache backend registry. It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	backends  map[string]interfaces.Backend
	observers []Observer
	logger    *logging.ChanneledLogger
}

func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Manager{
		backends: make(map[string]interfaces.Backend),
		logger:   logger,
	}
}

// Register binds backend to blockType, replacing any earlier registration.
func (m *Manager) Register(blockType string, backend interfaces.Backend) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, exists := m.backends[blockType]; exists {
		m.logger.Cache().Warn("Replacing cache backend registration",
			"blockType", blockType, "previous", prev.Name(), "backend", backend.Name())
	}
	m.backends[blockType] = backend
	m.logger.Cache().Debug("Cache backend registered", "blockType", blockType, "backend", backend.Name())
}

// Backend returns the backend registered for blockType. An unregistered type
// is always a configuration error.
func (m *Manager) Backend(blockType string) (interfaces.Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	backend, exists := m.backends[blockType]
	if !exists {
		return nil, cmserrors.Configuration("no cache backend registered for block type %q", blockType)
	}
	return backend, nil
}

// Types lists the registered block types, sorted.
func (m *Manager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	types := make([]string, 0, len(m.backends))
	for t := range m.backends {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Backends returns each distinct registered backend once, ordered by name.
func (m *Manager) Backends() []interfaces.Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[interfaces.Backend]bool, len(m.backends))
	out := make([]interfaces.Backend, 0, len(m.backends))
	for _, b := range m.backends {
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// OnInvalidate adds an observer called after every fan-out.
func (m *Manager) OnInvalidate(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Invalidate forwards el to every distinct backend in turn. A failing
// backend is logged and recorded in the report; the rest still run.
func (m *Manager) Invalidate(ctx context.Context, el rendering.CacheElement) InvalidationReport {
	report := InvalidationReport{
		ID:   security.GenerateULID(),
		Key:  el.Key(),
		Keys: el.Keys(),
		At:   time.Now().UTC(),
	}

	for _, backend := range m.Backends() {
		evicted, err := invalidateSafely(backend, func() (int, error) {
			return backend.Invalidate(ctx, el)
		})
		m.record(ctx, &report, backend, evicted, err)
	}
	return m.publish(ctx, report)
}

// InvalidatePattern evicts raw cache keys matching pattern from every
// backend implementing interfaces.PatternInvalidator. Other backends are
// left out of the report.
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) InvalidationReport {
	report := InvalidationReport{
		ID:      security.GenerateULID(),
		Key:     pattern,
		Pattern: pattern,
		At:      time.Now().UTC(),
	}

	for _, backend := range m.Backends() {
		pi, ok := backend.(interfaces.PatternInvalidator)
		if !ok {
			continue
		}
		evicted, err := invalidateSafely(backend, func() (int, error) {
			return pi.InvalidatePattern(ctx, pattern)
		})
		m.record(ctx, &report, backend, evicted, err)
	}
	return m.publish(ctx, report)
}

func (m *Manager) record(ctx context.Context, report *InvalidationReport, backend interfaces.Backend, evicted int, err error) {
	result := BackendResult{Backend: backend.Name(), Evicted: evicted}
	if err != nil {
		result.Error = err.Error()
		report.Failed++
		m.logger.WithContext(logging.ChannelCache, ctx).Error("Cache backend invalidation failed",
			"backend", backend.Name(), "key", report.Key, "error", err)
	}
	report.Results = append(report.Results, result)
}

// publish logs the finished report and hands it to every observer.
func (m *Manager) publish(ctx context.Context, report InvalidationReport) InvalidationReport {
	m.logger.WithContext(logging.ChannelCache, ctx).Info("Cache invalidated",
		"key", report.Key, "backends", len(report.Results), "evicted", report.Evicted(), "failed", report.Failed)

	m.mu.RLock()
	observers := append([]Observer(nil), m.observers...)
	m.mu.RUnlock()
	for _, fn := range observers {
		fn(report)
	}
	return report
}

func invalidateSafely(backend interfaces.Backend, invalidate func() (int, error)) (evicted int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = cmserrors.Render(nil, "backend %s panicked during invalidation: %v", backend.Name(), r)
		}
	}()
	return invalidate()
}

// PurgeExpired sweeps every backend that supports it.
func (m *Manager) PurgeExpired() int {
	total := 0
	for _, b := range m.Backends() {
		if p, ok := b.(interfaces.Purger); ok {
			total += p.PurgeExpired()
		}
	}
	return total
}

// Stats collects per-backend statistics plus the type bindings.
func (m *Manager) Stats() map[string]any {
	backends := make(map[string]any)
	for _, b := range m.Backends() {
		if s, ok := b.(interfaces.StatsReporter); ok {
			backends[b.Name()] = s.Stats()
		} else {
			backends[b.Name()] = map[string]any{}
		}
	}

	m.mu.RLock()
	bindings := make(map[string]string, len(m.backends))
	for t, b := range m.backends {
		bindings[t] = b.Name()
	}
	m.mu.RUnlock()

	return map[string]any{
		"backends": backends,
		"bindings": bindings,
	}
}
