package blocks

import (
	"strconv"
	"time"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/rendering"
)

// Cache key names shared by the built-in services.
const (
	KeyBlockID   = "block_id"
	KeyPageID    = "page_id"
	KeyUpdatedAt = "updated_at"
	// KeyTemplate tags output rendered from a template file.
	KeyTemplate = "template"
)

// DefaultElement builds the block_id/page_id/updated_at element used by
// every built-in service. settings["ttl"] in seconds overrides the page TTL.
func DefaultElement(block *content.Block, page *content.Page, extra map[string]string) rendering.CacheElement {
	keys := map[string]string{
		KeyBlockID:   strconv.FormatInt(block.ID, 10),
		KeyPageID:    strconv.FormatInt(block.PageID, 10),
		KeyUpdatedAt: strconv.FormatInt(block.Updated.Unix(), 10),
	}
	for k, v := range extra {
		keys[k] = v
	}
	return rendering.NewCacheElement(keys, blockTTL(block, page))
}

func blockTTL(block *content.Block, page *content.Page) time.Duration {
	switch v := block.Settings["ttl"].(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v) * time.Second
	}
	if page != nil {
		return page.TTL
	}
	return 0
}
