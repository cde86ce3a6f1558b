package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	supabase "github.com/supabase-community/supabase-go"

	"site-ingest/pkg/config"
)

// SupabaseClient provides access to a Supabase project, either through a direct
// Postgres connection or, when only the URL and service key are known, through
// the REST API.
type SupabaseClient struct {
	db          *sql.DB
	supabaseSDK *supabase.Client
	cfg         config.SupabaseConfig
	pool        *config.PostgresConfig
}

// NewSupabaseClient constructs a Supabase client. pool may be nil.
func NewSupabaseClient(cfg config.SupabaseConfig, pool *config.PostgresConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg, pool: pool}
}

// Connect initializes the SDK client and, when a password or connection string is
// configured, the direct database connection. If the direct connection cannot be
// established but the SDK is available, the client stays in REST mode.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.URL != "" && c.cfg.Key != "" {
		sdkClient, err := supabase.NewClient(c.cfg.URL, c.cfg.Key, nil)
		if err != nil {
			return errors.Wrap(err, "initialize supabase SDK")
		}
		c.supabaseSDK = sdkClient
	}

	connStr := c.cfg.ConnectionString
	if connStr == "" && c.cfg.Password != "" {
		var err error
		connStr, err = c.buildConnectionString()
		if err != nil {
			if c.supabaseSDK != nil {
				return nil
			}
			return errors.Wrap(err, "build connection string")
		}
	}

	if connStr != "" {
		// pgbouncer in transaction mode cannot hold prepared statements.
		connStr = addConnectionParam(connStr, "statement_cache_capacity", "0")
		connStr = addConnectionParam(connStr, "default_query_exec_mode", "simple_protocol")

		db, err := openPool(ctx, connStr, c.pool)
		if err != nil {
			if c.supabaseSDK != nil {
				return nil
			}
			return errors.Wrap(err, "supabase postgres")
		}
		c.db = db
	}

	if c.db == nil && c.supabaseSDK == nil {
		return errors.New("either connection string/password or Supabase URL+key must be provided")
	}
	return nil
}

// Close closes the database connection.
func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB returns nil when only REST mode is available.
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// HasDirectDB returns true if direct database connection is available.
func (c *SupabaseClient) HasDirectDB() bool {
	return c.db != nil
}

// SDK returns the Supabase SDK client, or nil if it was not initialized.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.supabaseSDK
}

// buildConnectionString derives the direct connection string from the project URL
// (https://<project-ref>.supabase.co) and the database password.
func (c *SupabaseClient) buildConnectionString() (string, error) {
	if c.cfg.URL == "" {
		return "", errors.New("supabase URL is required when connection string is not provided")
	}
	if c.cfg.Password == "" {
		return "", errors.New("supabase password is required when connection string is not provided")
	}

	parsedURL, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", errors.Wrap(err, "parse supabase URL")
	}

	parts := strings.Split(parsedURL.Host, ".")
	if len(parts) < 2 {
		return "", errors.New("invalid supabase URL format: expected [project-ref].supabase.co")
	}
	projectRef := parts[0]

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(c.cfg.Password), projectRef), nil
}

// addConnectionParam adds a query parameter to the connection string if not already present.
func addConnectionParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}

	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return connStr + separator + key + "=" + value
}
