package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-ingest/pkg/domain"
)

func TestDefaultConfig_RequiresSupabaseSecrets(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	errs := cfg.Validate()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "SUPABASE_URL")
	assert.Contains(t, errs[1].Error(), "SUPABASE_SERVICE_ROLE_KEY")
}

func TestDefaultConfig_MemoryBackendIsValid(t *testing.T) {
	cfg := NewDefaultGlobalConfig()
	cfg.Store.Backend = BackendMemory

	assert.Empty(t, cfg.Validate())
	assert.Len(t, cfg.Sources, 4)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
}

func TestValidate_Sources(t *testing.T) {
	cfg := NewDefaultGlobalConfig()
	cfg.Store.Backend = BackendMemory
	cfg.Sources = []domain.Source{
		{URL: "https://example.edu/", Type: "homepage"},
		{URL: "https://example.edu/", Type: "news"},
		{URL: "not a url", Type: "news"},
		{URL: "https://example.edu/x", Type: ""},
	}

	errs := cfg.Validate()
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "duplicate url")
	assert.Contains(t, errs[1].Error(), "invalid url")
	assert.Contains(t, errs[2].Error(), "type is required")
}

func TestValidate_NoSources(t *testing.T) {
	cfg := NewDefaultGlobalConfig()
	cfg.Store.Backend = BackendMemory
	cfg.Sources = nil

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "at least one source")
}

func TestStoreConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr int
	}{
		{"supabase rest", StoreConfig{Backend: BackendSupabase, Supabase: &SupabaseConfig{URL: "https://x.supabase.co", Key: "k"}}, 0},
		{"supabase direct", StoreConfig{Backend: BackendSupabase, Supabase: &SupabaseConfig{ConnectionString: "postgres://x"}}, 0},
		{"supabase missing key", StoreConfig{Backend: BackendSupabase, Supabase: &SupabaseConfig{URL: "https://x.supabase.co"}}, 1},
		{"postgres missing dsn", StoreConfig{Backend: BackendPostgres, Postgres: &PostgresConfig{}}, 1},
		{"mongo ok", StoreConfig{Backend: BackendMongo, Mongo: &MongoConfig{URI: "mongodb://localhost", Database: "db"}}, 0},
		{"mongo missing database", StoreConfig{Backend: BackendMongo, Mongo: &MongoConfig{URI: "mongodb://localhost"}}, 1},
		{"unknown backend", StoreConfig{Backend: "redis"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ingest.yaml")
	content := `
store:
  backend: postgres
  postgres:
    dsn: postgres://file/db
fetch:
  timeout: 5s
  workers: 2
sources:
  - url: https://example.edu/
    type: homepage
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("INGEST_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "postgres://env/db", cfg.Store.Postgres.DSN)
	assert.Equal(t, 4, cfg.Store.Postgres.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2, cfg.Fetch.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []domain.Source{{URL: "https://example.edu/", Type: "homepage"}}, cfg.Sources)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_SourcesReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest.yaml")
	content := `
store:
  backend: memory
sources:
  - url: https://example.edu/news/
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []domain.Source{{URL: "https://example.edu/news/"}}, cfg.Sources)
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "sources[0]: type is required")
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://proj.supabase.co", cfg.Store.Supabase.URL)
	assert.Equal(t, "service-key", cfg.Store.Supabase.Key)
	assert.Equal(t, DefaultSources(), cfg.Sources)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
