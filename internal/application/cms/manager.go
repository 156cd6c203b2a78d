package cms

import (
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
)

// Manager is the request-scoped CMS state: the route-name page cache, the
// loaded blocks and the current page. It must not be shared between
// concurrent requests.
type Manager struct {
	Dependencies
	opts Options
	site *content.Site

	routePages  map[string]*content.Page
	blocks      map[int64]*content.Block
	currentPage *content.Page
}

// Site returns the site the manager was created for, possibly nil.
func (m *Manager) Site() *content.Site { return m.site }

func (m *Manager) Policy() ErrorPolicy { return m.opts.Policy }

func (m *Manager) siteID() int64 {
	if m.site == nil {
		return 0
	}
	return m.site.ID
}

func (m *Manager) rememberBlock(b *content.Block) {
	m.blocks[b.ID] = b
}
