package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/persistence/database"
)

const blockColumns = `id, page_id, parent_id, type, settings, position, enabled, created_at, updated_at`

type BlockRepository struct {
	db *database.DB
}

func NewBlockRepository(db *database.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// FindByPage returns the page's blocks ordered by position, then id.
func (r *BlockRepository) FindByPage(ctx context.Context, pageID int64) ([]*content.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM blocks WHERE page_id = ? ORDER BY position, id`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, pageID)
	if err != nil {
		r.db.Logger().Database().Error("Failed to query blocks", "error", err.Error(), "pageId", pageID)
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var blocks []*content.Block
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	r.db.Observe(query, start)
	return blocks, rows.Err()
}

func (r *BlockRepository) FindByID(ctx context.Context, id int64) (*content.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM blocks WHERE id = ?`

	start := time.Now()
	block, err := scanBlock(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load block: %w", err)
	}
	r.db.Observe(query, start)
	return block, nil
}

// CreateContainer persists an empty container block named attrs.Name.
func (r *BlockRepository) CreateContainer(ctx context.Context, attrs content.ContainerAttrs) (*content.Block, error) {
	block := &content.Block{
		PageID:   attrs.PageID,
		ParentID: attrs.ParentID,
		Type:     attrs.Type,
		Settings: map[string]any{"name": attrs.Name},
		Position: attrs.Position,
		Enabled:  attrs.Enabled,
	}
	if err := r.Insert(ctx, block); err != nil {
		return nil, err
	}
	return block, nil
}

// Insert persists a new block and fills in its id and timestamps.
func (r *BlockRepository) Insert(ctx context.Context, block *content.Block) error {
	query := `INSERT INTO blocks (page_id, parent_id, type, settings, position, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	settings, err := encodeSettings(block.Settings)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	start := time.Now()
	r.db.Logger().Database().Debug("Executing block insert", "pageId", block.PageID, "type", block.Type)

	res, err := r.db.ExecContext(ctx, query, block.PageID, nullID(block.ParentID), block.Type, settings,
		block.Position, block.Enabled, formatTime(now), formatTime(now))
	if err != nil {
		r.db.Logger().Database().Error("Block insert failed", "error", err.Error(), "pageId", block.PageID)
		return fmt.Errorf("failed to insert block: %w", err)
	}
	if block.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read block id: %w", err)
	}
	block.Created, block.Updated = now, now
	r.db.Observe(query, start)
	return nil
}

// Save updates an existing block and stamps Updated, which changes the
// block's cache key.
func (r *BlockRepository) Save(ctx context.Context, block *content.Block) error {
	query := `UPDATE blocks SET page_id = ?, parent_id = ?, type = ?, settings = ?, position = ?, enabled = ?, updated_at = ? WHERE id = ?`

	settings, err := encodeSettings(block.Settings)
	if err != nil {
		return err
	}

	block.Updated = time.Now().UTC()
	start := time.Now()
	res, err := r.db.ExecContext(ctx, query, block.PageID, nullID(block.ParentID), block.Type, settings,
		block.Position, block.Enabled, formatTime(block.Updated), block.ID)
	if err != nil {
		r.db.Logger().Database().Error("Block update failed", "error", err.Error(), "id", block.ID)
		return fmt.Errorf("failed to update block: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update block %d: no such block", block.ID)
	}
	r.db.Observe(query, start)
	return nil
}

func encodeSettings(settings map[string]any) (string, error) {
	if settings == nil {
		return "{}", nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("failed to encode block settings: %w", err)
	}
	return string(data), nil
}

func scanBlock(row rowScanner) (*content.Block, error) {
	var (
		block                content.Block
		parentID             sql.NullInt64
		settings             string
		createdAt, updatedAt string
	)
	if err := row.Scan(&block.ID, &block.PageID, &parentID, &block.Type, &settings, &block.Position,
		&block.Enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	block.ParentID = parentID.Int64
	if err := json.Unmarshal([]byte(settings), &block.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings of block %d: %w", block.ID, err)
	}

	var err error
	if block.Created, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if block.Updated, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &block, nil
}
