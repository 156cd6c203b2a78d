package content

import (
	"sort"
	"time"
)

// Block is one node of a page's block tree. ParentID is an index into the
// page's BlockTree, zero for root blocks.
type Block struct {
	ID       int64          `json:"id"`
	PageID   int64          `json:"pageId"`
	ParentID int64          `json:"parentId,omitempty"`
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
	Position int            `json:"position"`
	Enabled  bool           `json:"enabled"`
	Created  time.Time      `json:"created"`
	Updated  time.Time      `json:"updated"`
}

// Name returns the slot name stored in settings["name"], or "".
func (b *Block) Name() string {
	if b == nil || b.Settings == nil {
		return ""
	}
	name, _ := b.Settings["name"].(string)
	return name
}

// Setting returns settings[key] as a string, or "" when absent or not a string.
func (b *Block) Setting(key string) string {
	if b == nil || b.Settings == nil {
		return ""
	}
	v, _ := b.Settings[key].(string)
	return v
}

// ContainerAttrs describes a container block created on demand for a slot.
type ContainerAttrs struct {
	Type     string
	PageID   int64
	ParentID int64
	Name     string
	Position int
	Enabled  bool
}

// BlockTree is an arena of a page's blocks. Roots and children are kept as id
// lists ordered by Position, then ID.
type BlockTree struct {
	blocks   map[int64]*Block
	roots    []int64
	children map[int64][]int64
}

// NewBlockTree indexes blocks. A nil or empty slice yields an empty, loaded tree.
func NewBlockTree(blocks []*Block) *BlockTree {
	t := &BlockTree{
		blocks:   make(map[int64]*Block, len(blocks)),
		children: make(map[int64][]int64),
	}
	for _, b := range blocks {
		t.Add(b)
	}
	return t
}

// Add inserts b, keeping sibling order. Re-adding an id replaces the block.
func (t *BlockTree) Add(b *Block) {
	if b == nil {
		return
	}
	if _, exists := t.blocks[b.ID]; exists {
		t.remove(b.ID)
	}
	t.blocks[b.ID] = b
	if b.ParentID == 0 {
		t.roots = t.insert(t.roots, b)
		return
	}
	t.children[b.ParentID] = t.insert(t.children[b.ParentID], b)
}

func (t *BlockTree) insert(ids []int64, b *Block) []int64 {
	i := sort.Search(len(ids), func(i int) bool {
		other := t.blocks[ids[i]]
		if other.Position != b.Position {
			return other.Position > b.Position
		}
		return other.ID > b.ID
	})
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = b.ID
	return ids
}

func (t *BlockTree) remove(id int64) {
	old := t.blocks[id]
	drop := func(ids []int64) []int64 {
		out := ids[:0]
		for _, v := range ids {
			if v != id {
				out = append(out, v)
			}
		}
		return out
	}
	if old.ParentID == 0 {
		t.roots = drop(t.roots)
	} else {
		t.children[old.ParentID] = drop(t.children[old.ParentID])
	}
	delete(t.blocks, id)
}

// Get returns the block with the given id.
func (t *BlockTree) Get(id int64) (*Block, bool) {
	b, ok := t.blocks[id]
	return b, ok
}

// Roots returns the root blocks in document order.
func (t *BlockTree) Roots() []*Block {
	return t.resolve(t.roots)
}

// Children returns the direct children of id in document order.
func (t *BlockTree) Children(id int64) []*Block {
	return t.resolve(t.children[id])
}

// All returns every block, roots first, depth first.
func (t *BlockTree) All() []*Block {
	out := make([]*Block, 0, len(t.blocks))
	var walk func(ids []int64)
	walk = func(ids []int64) {
		for _, id := range ids {
			out = append(out, t.blocks[id])
			walk(t.children[id])
		}
	}
	walk(t.roots)
	return out
}

func (t *BlockTree) Len() int { return len(t.blocks) }

func (t *BlockTree) resolve(ids []int64) []*Block {
	out := make([]*Block, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.blocks[id])
	}
	return out
}
