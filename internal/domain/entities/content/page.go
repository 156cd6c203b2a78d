package content

import "time"

// Page is a CMS page: either hybrid (wrapping a framework action) or a pure
// CMS page resolved by slug.
type Page struct {
	ID            int64         `json:"id"`
	SiteID        int64         `json:"siteId"`
	RouteName     string        `json:"routeName,omitempty"`
	Slug          string        `json:"slug,omitempty"`
	URL           string        `json:"url,omitempty"`
	Name          string        `json:"name"`
	Template      string        `json:"template"`
	TTL           time.Duration `json:"ttl"`
	IsHybrid      bool          `json:"isHybrid"`
	Decorate      bool          `json:"decorate"`
	Enabled       bool          `json:"enabled"`
	LoginRequired bool          `json:"loginRequired"`
	Created       time.Time     `json:"created"`
	Updated       time.Time     `json:"updated"`

	// Blocks is nil until the page's block tree has been loaded.
	Blocks *BlockTree `json:"-"`
}

// Loaded reports whether the block tree has been fetched.
func (p *Page) Loaded() bool {
	return p != nil && p.Blocks != nil
}

// NewPage carries the attributes of a page about to be persisted.
type NewPage struct {
	SiteID    int64
	RouteName string
	Slug      string
	URL       string
	Name      string
	Template  string
	TTL       time.Duration
	IsHybrid  bool
	Decorate  bool
	Enabled   bool
}
