// Package blocks holds the block service registry and the built-in block
// services. A block's Type is the registry key; unknown types are rejected.
package blocks

import (
	"context"
	"sort"
	"sync"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/cmserrors"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

// Service renders one block type.
type Service interface {
	// CacheElement identifies the block's rendered output.
	CacheElement(block *content.Block, page *content.Page) rendering.CacheElement
	// Execute renders block into shell and returns the finished response.
	Execute(ctx context.Context, block *content.Block, page *content.Page, shell *rendering.Response) (*rendering.Response, error)
}

// Registry maps block types to services. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
}

func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

// Register binds svc to blockType, replacing any earlier binding.
func (r *Registry) Register(blockType string, svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[blockType] = svc
}

// Lookup returns the service for blockType or a configuration error.
func (r *Registry) Lookup(blockType string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[blockType]
	if !ok {
		return nil, cmserrors.Configuration("no block service registered for type %q", blockType)
	}
	return svc, nil
}

// Types lists the registered block types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.services))
	for t := range r.services {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
