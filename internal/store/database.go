package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database wraps the Postgres connection holding gameweek calendars.
type Database struct {
	conn   *sql.DB
	logger log.Logger
}

// NewDatabase opens and pings a Postgres connection.
func NewDatabase(ctx context.Context, dsn string, logger log.Logger) (*Database, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		conn:   db,
		logger: log.With(logger, "component", "store"),
	}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB for queries
func (db *Database) DB() *sql.DB {
	return db.conn
}

type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "001_create_gameweek_windows",
		sql: `
			CREATE TABLE IF NOT EXISTS gameweek_windows (
				season     VARCHAR(16) NOT NULL,
				gameweek   INTEGER     NOT NULL CHECK (gameweek > 0),
				start_date DATE        NOT NULL,
				end_date   DATE        NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (season, gameweek),
				CHECK (start_date <= end_date)
			)`,
	},
	{
		version: "002_index_gameweek_windows_start",
		sql:     `CREATE INDEX IF NOT EXISTS idx_gameweek_windows_start ON gameweek_windows (season, start_date)`,
	},
}

// RunMigrations applies pending schema migrations in order.
func (db *Database) RunMigrations(ctx context.Context) error {
	level.Info(db.logger).Log("msg", "running database migrations")

	if err := db.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		if err := db.runMigration(ctx, m); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}
	}
	return nil
}

func (db *Database) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := db.conn.ExecContext(ctx, query)
	return err
}

// runMigration applies m in a transaction unless it is already recorded.
func (db *Database) runMigration(ctx context.Context, m migration) error {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.version).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		level.Debug(db.logger).Log("msg", "migration already applied", "version", m.version)
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.version); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	level.Info(db.logger).Log("msg", "applied migration", "version", m.version)
	return nil
}

// HealthCheck performs a health check on the database
func (db *Database) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return db.conn.PingContext(ctx)
}
