// Package monitoring tracks block cache hit ratios and evictions per
// backend.
package monitoring

import (
	"sort"
	"sync"
	"time"
)

// LayerMetrics represents performance metrics for a single cache backend.
type LayerMetrics struct {
	Backend     string    `json:"backend"`     // Backend name as bound in the manager
	LastUpdated time.Time `json:"lastUpdated"` // Time of the most recent event

	// Hit/miss statistics
	TotalRequests int64   `json:"totalRequests"`
	CacheHits     int64   `json:"cacheHits"`
	CacheMisses   int64   `json:"cacheMisses"`
	HitRatio      float64 `json:"hitRatio"`

	// Performance metrics
	AvgHitLatency  time.Duration `json:"avgHitLatency"`
	AvgMissLatency time.Duration `json:"avgMissLatency"`

	// Write and eviction counters
	Stores          int64 `json:"stores"`          // Rendered responses written
	Invalidations   int64 `json:"invalidations"`   // Invalidation requests received
	ManualEvictions int64 `json:"manualEvictions"` // Entries removed by invalidation
}

// layerState holds a backend's metrics with the latency totals behind
// its averages.
type layerState struct {
	metrics     LayerMetrics
	hitLatency  time.Duration // Sum of hit latencies
	missLatency time.Duration // Sum of miss latencies
}

// CacheMonitor aggregates cache activity reported by the renderer and the
// invalidation fan-out. It is safe for concurrent use.
type CacheMonitor struct {
	mu      sync.RWMutex
	layers  map[string]*layerState
	started time.Time
	now     func() time.Time
}

// NewCacheMonitor creates an empty monitor whose uptime starts now.
func NewCacheMonitor() *CacheMonitor {
	return &CacheMonitor{
		layers:  make(map[string]*layerState),
		started: time.Now().UTC(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// layer returns the state for backend, creating it on first use, and
// stamps LastUpdated. Caller holds the write lock.
func (m *CacheMonitor) layer(backend string) *layerState {
	l, ok := m.layers[backend]
	if !ok {
		l = &layerState{metrics: LayerMetrics{Backend: backend}}
		m.layers[backend] = l
	}
	l.metrics.LastUpdated = m.now()
	return l
}

// RecordHit counts a cache hit served by backend.
func (m *CacheMonitor) RecordHit(backend string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.layer(backend)
	l.metrics.TotalRequests++
	l.metrics.CacheHits++
	l.hitLatency += latency
	l.refresh()
}

// RecordMiss counts a lookup that fell through to rendering.
func (m *CacheMonitor) RecordMiss(backend string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.layer(backend)
	l.metrics.TotalRequests++
	l.metrics.CacheMisses++
	l.missLatency += latency
	l.refresh()
}

// RecordStore counts a rendered response written to backend.
func (m *CacheMonitor) RecordStore(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layer(backend).metrics.Stores++
}

// RecordInvalidation counts one invalidation reaching backend and the
// entries it evicted.
func (m *CacheMonitor) RecordInvalidation(backend string, evicted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.layer(backend)
	l.metrics.Invalidations++
	l.metrics.ManualEvictions += int64(evicted)
}

// refresh recomputes the hit ratio and average latencies.
func (l *layerState) refresh() {
	mt := &l.metrics
	if mt.TotalRequests > 0 {
		mt.HitRatio = float64(mt.CacheHits) / float64(mt.TotalRequests)
	}
	if mt.CacheHits > 0 {
		mt.AvgHitLatency = l.hitLatency / time.Duration(mt.CacheHits)
	}
	if mt.CacheMisses > 0 {
		mt.AvgMissLatency = l.missLatency / time.Duration(mt.CacheMisses)
	}
}

// Layers returns a copy of every backend's metrics ordered by name.
func (m *CacheMonitor) Layers() []LayerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LayerMetrics, 0, len(m.layers))
	for _, l := range m.layers {
		out = append(out, l.metrics)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Backend < out[j].Backend })
	return out
}

// Summary aggregates all backends.
func (m *CacheMonitor) Summary() map[string]any {
	layers := m.Layers()

	// Sum counters across backends
	var requests, hits, misses, evicted int64
	for _, l := range layers {
		requests += l.TotalRequests
		hits += l.CacheHits
		misses += l.CacheMisses
		evicted += l.ManualEvictions
	}
	// Calculate overall hit ratio
	ratio := 0.0
	if requests > 0 {
		ratio = float64(hits) / float64(requests)
	}

	return map[string]any{
		"uptime":          time.Since(m.started).String(),
		"totalRequests":   requests,
		"totalHits":       hits,
		"totalMisses":     misses,
		"overallHitRatio": ratio,
		"manualEvictions": evicted,
		"backends":        layers,
	}
}
