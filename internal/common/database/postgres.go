// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"company-intel/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the report database connection pool.
type PostgresClient struct {
	DB *sql.DB
}

// schema is applied idempotently on startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS intelligence_reports (
		run_id       UUID PRIMARY KEY,
		company      TEXT NOT NULL,
		status       TEXT NOT NULL,
		raw_data     TEXT NOT NULL DEFAULT '',
		analysis     TEXT NOT NULL DEFAULT '',
		error        TEXT NOT NULL DEFAULT '',
		sources      JSONB NOT NULL DEFAULT '[]',
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_intelligence_reports_company
		ON intelligence_reports (lower(company), finished_at DESC)`,
	`CREATE TABLE IF NOT EXISTS memory_messages (
		run_id     UUID NOT NULL REFERENCES intelligence_reports (run_id) ON DELETE CASCADE,
		position   INT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an already opened handle (sqlmock in tests).
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate creates the report tables when they are missing.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back when fn fails.
func (c *PostgresClient) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
