package db

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"site-ingest/pkg/config"
)

// PostgresClient is a thin wrapper around a sql.DB handle opened with the pgx driver.
type PostgresClient struct {
	db  *sql.DB
	cfg config.PostgresConfig
}

// NewPostgresClient constructs a client; call Connect before use.
func NewPostgresClient(cfg config.PostgresConfig) *PostgresClient {
	return &PostgresClient{cfg: cfg}
}

// Connect initializes the underlying sql.DB handle and verifies connectivity.
func (c *PostgresClient) Connect(ctx context.Context) error {
	if c.cfg.DSN == "" {
		return errors.New("postgres DSN is required")
	}

	db, err := openPool(ctx, c.cfg.DSN, &c.cfg)
	if err != nil {
		return errors.Wrap(err, "postgres")
	}
	c.db = db
	return nil
}

// Close closes the underlying sql.DB handle.
func (c *PostgresClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB exposes the underlying handle for query/exec operations.
func (c *PostgresClient) DB() *sql.DB {
	return c.db
}

// openPool opens a pgx-backed pool, applies optional tuning and pings it.
func openPool(ctx context.Context, dsn string, pool *config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}

	if pool != nil {
		if pool.MaxOpenConns > 0 {
			db.SetMaxOpenConns(pool.MaxOpenConns)
		}
		if pool.MaxIdleConns > 0 {
			db.SetMaxIdleConns(pool.MaxIdleConns)
		}
		if pool.ConnMaxLife > 0 {
			db.SetConnMaxLifetime(pool.ConnMaxLife)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping")
	}
	return db, nil
}
