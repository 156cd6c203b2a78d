// Package repositories defines the store contracts the CMS core depends on.
// Implementations live under infrastructure/persistence.
package repositories

import (
	"context"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
)

// PageRepository finds and persists pages. Finders return (nil, nil) when
// nothing matches.
type PageRepository interface {
	FindBySlug(ctx context.Context, siteID int64, slug string) (*content.Page, error)
	FindByRouteName(ctx context.Context, siteID int64, routeName string) (*content.Page, error)
	FindByID(ctx context.Context, id int64) (*content.Page, error)
	FindAll(ctx context.Context, siteID int64) ([]*content.Page, error)
	Create(ctx context.Context, page content.NewPage) (*content.Page, error)
	Save(ctx context.Context, page *content.Page) error
	Delete(ctx context.Context, id int64) error
	// DefaultTemplate returns the template code given to auto-provisioned
	// pages, "" when none is configured.
	DefaultTemplate() string
}

// BlockRepository finds and persists blocks.
type BlockRepository interface {
	// FindByPage returns every block of the page ordered by position, then id.
	FindByPage(ctx context.Context, pageID int64) ([]*content.Block, error)
	FindByID(ctx context.Context, id int64) (*content.Block, error)
	CreateContainer(ctx context.Context, attrs content.ContainerAttrs) (*content.Block, error)
	Save(ctx context.Context, block *content.Block) error
}

// SiteRepository resolves sites by host.
type SiteRepository interface {
	FindByHost(ctx context.Context, host string) (*content.Site, error)
	FindDefault(ctx context.Context) (*content.Site, error)
	FindByID(ctx context.Context, id int64) (*content.Site, error)
}
