package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/tractstack-cms/internal/domain/entities/content"
	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/persistence/database"
)

const pageColumns = `id, site_id, route_name, slug, url, name, template, ttl_seconds, is_hybrid, decorate, enabled, login_required, created_at, updated_at`

type PageRepository struct {
	db              *database.DB
	defaultTemplate string
}

func NewPageRepository(db *database.DB, defaultTemplate string) *PageRepository {
	return &PageRepository{db: db, defaultTemplate: defaultTemplate}
}

func (r *PageRepository) DefaultTemplate() string { return r.defaultTemplate }

func (r *PageRepository) FindBySlug(ctx context.Context, siteID int64, slug string) (*content.Page, error) {
	return r.findOne(ctx, `SELECT `+pageColumns+` FROM pages WHERE site_id = ? AND slug = ?`, siteID, slug)
}

func (r *PageRepository) FindByRouteName(ctx context.Context, siteID int64, routeName string) (*content.Page, error) {
	return r.findOne(ctx, `SELECT `+pageColumns+` FROM pages WHERE site_id = ? AND route_name = ?`, siteID, routeName)
}

func (r *PageRepository) FindByID(ctx context.Context, id int64) (*content.Page, error) {
	return r.findOne(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id)
}

// FindAll returns the site's pages ordered by id.
func (r *PageRepository) FindAll(ctx context.Context, siteID int64) ([]*content.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE site_id = ? ORDER BY id`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, siteID)
	if err != nil {
		r.db.Logger().Database().Error("Failed to query pages", "error", err.Error(), "siteId", siteID)
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []*content.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	r.db.Observe(query, start)
	return pages, rows.Err()
}

func (r *PageRepository) Create(ctx context.Context, np content.NewPage) (*content.Page, error) {
	query := `INSERT INTO pages (site_id, route_name, slug, url, name, template, ttl_seconds, is_hybrid, decorate, enabled, login_required, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	now := time.Now().UTC()
	start := time.Now()
	r.db.Logger().Database().Debug("Executing page insert", "routeName", np.RouteName, "slug", np.Slug)

	res, err := r.db.ExecContext(ctx, query,
		np.SiteID, nullString(np.RouteName), nullString(np.Slug), nullString(np.URL), np.Name, np.Template,
		int64(np.TTL/time.Second), np.IsHybrid, np.Decorate, np.Enabled, formatTime(now), formatTime(now))
	if err != nil {
		r.db.Logger().Database().Error("Page insert failed", "error", err.Error(), "routeName", np.RouteName)
		return nil, fmt.Errorf("failed to insert page: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read page id: %w", err)
	}
	r.db.Observe(query, start)

	return &content.Page{
		ID: id, SiteID: np.SiteID, RouteName: np.RouteName, Slug: np.Slug, URL: np.URL, Name: np.Name,
		Template: np.Template, TTL: np.TTL, IsHybrid: np.IsHybrid, Decorate: np.Decorate, Enabled: np.Enabled,
		Created: now, Updated: now,
	}, nil
}

// Save updates every column of an existing page and stamps Updated.
func (r *PageRepository) Save(ctx context.Context, page *content.Page) error {
	query := `UPDATE pages SET site_id = ?, route_name = ?, slug = ?, url = ?, name = ?, template = ?, ttl_seconds = ?,
		is_hybrid = ?, decorate = ?, enabled = ?, login_required = ?, updated_at = ? WHERE id = ?`

	page.Updated = time.Now().UTC()
	start := time.Now()
	res, err := r.db.ExecContext(ctx, query,
		page.SiteID, nullString(page.RouteName), nullString(page.Slug), nullString(page.URL), page.Name, page.Template,
		int64(page.TTL/time.Second), page.IsHybrid, page.Decorate, page.Enabled, page.LoginRequired,
		formatTime(page.Updated), page.ID)
	if err != nil {
		r.db.Logger().Database().Error("Page update failed", "error", err.Error(), "id", page.ID)
		return fmt.Errorf("failed to update page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update page %d: no such page", page.ID)
	}
	r.db.Observe(query, start)
	return nil
}

// Delete removes the page and, through the foreign key, its blocks.
func (r *PageRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM pages WHERE id = ?`

	start := time.Now()
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		r.db.Logger().Database().Error("Page delete failed", "error", err.Error(), "id", id)
		return fmt.Errorf("failed to delete page: %w", err)
	}
	r.db.Observe(query, start)
	r.db.Logger().Database().Info("Page deleted", "id", id)
	return nil
}

func (r *PageRepository) findOne(ctx context.Context, query string, args ...any) (*content.Page, error) {
	start := time.Now()
	page, err := scanPage(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	r.db.Observe(query, start)
	return page, nil
}

func scanPage(row rowScanner) (*content.Page, error) {
	var (
		page                 content.Page
		routeName, slug, url sql.NullString
		ttlSeconds           int64
		createdAt, updatedAt string
	)
	if err := row.Scan(&page.ID, &page.SiteID, &routeName, &slug, &url, &page.Name, &page.Template, &ttlSeconds,
		&page.IsHybrid, &page.Decorate, &page.Enabled, &page.LoginRequired, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	page.RouteName = routeName.String
	page.Slug = slug.String
	page.URL = url.String
	page.TTL = time.Duration(ttlSeconds) * time.Second

	var err error
	if page.Created, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if page.Updated, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &page, nil
}
