package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/persistence/database"
)

const siteColumns = `id, name, host, is_default, enabled`

type SiteRepository struct {
	db *database.DB
}

func NewSiteRepository(db *database.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// FindByHost matches the host without its port, case-insensitively.
func (r *SiteRepository) FindByHost(ctx context.Context, host string) (*content.Site, error) {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return r.findOne(ctx, `SELECT `+siteColumns+` FROM sites WHERE host = ? AND enabled = 1`, host)
}

func (r *SiteRepository) FindDefault(ctx context.Context) (*content.Site, error) {
	return r.findOne(ctx, `SELECT `+siteColumns+` FROM sites WHERE is_default = 1 ORDER BY id LIMIT 1`)
}

func (r *SiteRepository) FindByID(ctx context.Context, id int64) (*content.Site, error) {
	return r.findOne(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)
}

// Insert persists a new site and fills in its id.
func (r *SiteRepository) Insert(ctx context.Context, site *content.Site) error {
	query := `INSERT INTO sites (name, host, is_default, enabled, created_at) VALUES (?, ?, ?, ?, ?)`

	start := time.Now()
	res, err := r.db.ExecContext(ctx, query, site.Name, strings.ToLower(site.Host), site.IsDefault, site.Enabled,
		formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to insert site: %w", err)
	}
	if site.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read site id: %w", err)
	}
	r.db.Observe(query, start)
	return nil
}

func (r *SiteRepository) findOne(ctx context.Context, query string, args ...any) (*content.Site, error) {
	start := time.Now()
	var site content.Site
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&site.ID, &site.Name, &site.Host, &site.IsDefault, &site.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site: %w", err)
	}
	r.db.Observe(query, start)
	return &site, nil
}
