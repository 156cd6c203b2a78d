package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TableCreator builds the site, page and block schema.
type TableCreator struct{}

func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes every table and index statement. It is idempotent.
func (tc *TableCreator) CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.ExecContext(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

// SeedInitialContent creates the default site when no site exists.
func (tc *TableCreator) SeedInitialContent(ctx context.Context, db *sql.DB, host string) error {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sites WHERE is_default = 1)").Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for default site: %w", err)
	}
	if exists {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = db.ExecContext(ctx, `INSERT INTO sites (name, host, is_default, enabled, created_at) VALUES (?, ?, 1, 1, ?)`,
		"default", host, now)
	if err != nil {
		return fmt.Errorf("failed to insert default site: %w", err)
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS sites (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, host TEXT NOT NULL UNIQUE, is_default INTEGER NOT NULL DEFAULT 0, enabled INTEGER NOT NULL DEFAULT 1, created_at TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS pages (id INTEGER PRIMARY KEY AUTOINCREMENT, site_id INTEGER NOT NULL REFERENCES sites(id), route_name TEXT, slug TEXT, url TEXT, name TEXT NOT NULL, template TEXT NOT NULL, ttl_seconds INTEGER NOT NULL DEFAULT 0, is_hybrid INTEGER NOT NULL DEFAULT 0, decorate INTEGER NOT NULL DEFAULT 1, enabled INTEGER NOT NULL DEFAULT 1, login_required INTEGER NOT NULL DEFAULT 0, created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS blocks (id INTEGER PRIMARY KEY AUTOINCREMENT, page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE, parent_id INTEGER REFERENCES blocks(id) ON DELETE CASCADE, type TEXT NOT NULL, settings TEXT NOT NULL DEFAULT '{}', position INTEGER NOT NULL DEFAULT 0, enabled INTEGER NOT NULL DEFAULT 1, created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
}

var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_site_route ON pages(site_id, route_name) WHERE route_name IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pages_site_slug ON pages(site_id, slug) WHERE slug IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_blocks_page_id ON blocks(page_id)`,
	`CREATE INDEX IF NOT EXISTS idx_blocks_parent_id ON blocks(parent_id)`,
}
