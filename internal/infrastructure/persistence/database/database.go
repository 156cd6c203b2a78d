// Package database opens the page and block store and keeps query timing.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/AtRiskMedia/tractstack-cms/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-cms/pkg/config"
)

// MemoryPath opens a private in-memory sqlite database.
const MemoryPath = ":memory:"

// DB wraps the standard SQL connection pool with slow query reporting.
type DB struct {
	*sql.DB
	driver    string
	slowQuery time.Duration
	logger    *logging.ChanneledLogger
}

// DataSource returns the driver name and DSN for cfg.
func DataSource(cfg config.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case "sqlite3":
		if cfg.Path == MemoryPath {
			return "sqlite3", "file::memory:?_foreign_keys=on", nil
		}
		return "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", cfg.Path), nil
	case "libsql":
		if cfg.AuthToken == "" {
			return "libsql", cfg.URL, nil
		}
		return "libsql", fmt.Sprintf("%s?authToken=%s", cfg.URL, cfg.AuthToken), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open establishes the connection pool described by cfg and pings it.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *logging.ChanneledLogger) (*DB, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	driver, dsn, err := DataSource(cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driver)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driver)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite3" && cfg.Path == MemoryPath {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driver)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Database().Info("Database connection established", "driverName", driver, "duration", time.Since(start))
	return &DB{DB: db, driver: driver, slowQuery: cfg.SlowQueryThreshold, logger: logger}, nil
}

// OpenMemory opens an in-memory sqlite store with the schema applied.
func OpenMemory(ctx context.Context, logger *logging.ChanneledLogger) (*DB, error) {
	db, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite3", Path: MemoryPath}, logger)
	if err != nil {
		return nil, err
	}
	if err := NewTableCreator().CreateSchema(ctx, db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Driver() string { return db.driver }

func (db *DB) Logger() *logging.ChanneledLogger { return db.logger }

// Observe logs query at debug level and reports it when it ran longer than
// the slow query threshold.
func (db *DB) Observe(query string, start time.Time) {
	duration := time.Since(start)
	db.logger.LogQuery(query)
	if db.slowQuery > 0 && duration > db.slowQuery {
		db.logger.LogSlowQuery(query, duration)
	}
}
