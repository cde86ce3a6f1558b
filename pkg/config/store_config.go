package config

import (
	"time"

	"github.com/pkg/errors"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

type StoreConfig struct {
	Backend  string          `json:"backend" yaml:"backend"`
	Supabase *SupabaseConfig `json:"supabase" yaml:"supabase"`
	Postgres *PostgresConfig `json:"postgres" yaml:"postgres"`
	Mongo    *MongoConfig    `json:"mongo" yaml:"mongo"`
}

type SupabaseConfig struct {
	// URL is the project URL, e.g. https://<project-ref>.supabase.co
	URL string `json:"url" yaml:"url"`
	// Key is the service role key used for REST access.
	Key string `json:"key" yaml:"key"`
	// Password and ConnectionString enable a direct Postgres connection.
	Password         string `json:"password" yaml:"password"`
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
}

type PostgresConfig struct {
	DSN          string        `json:"dsn" yaml:"dsn"`
	MaxOpenConns int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLife  time.Duration `json:"conn_max_life" yaml:"conn_max_life"`
}

type MongoConfig struct {
	URI      string `json:"uri" yaml:"uri"`
	Database string `json:"database" yaml:"database"`
}

func NewDefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend:  BackendSupabase,
		Supabase: &SupabaseConfig{},
		Postgres: &PostgresConfig{MaxOpenConns: 4, MaxIdleConns: 2},
		Mongo:    &MongoConfig{Database: "site_ingest"},
	}
}

// Validate reports missing endpoints and credentials for the selected backend.
func (s *StoreConfig) Validate() []error {
	var errs []error
	switch s.Backend {
	case BackendSupabase:
		if s.Supabase == nil {
			return append(errs, errors.New("store.supabase is required"))
		}
		if s.Supabase.ConnectionString != "" {
			break
		}
		if s.Supabase.URL == "" {
			errs = append(errs, errors.New("store.supabase.url (SUPABASE_URL) is required"))
		}
		if s.Supabase.Key == "" && s.Supabase.Password == "" {
			errs = append(errs, errors.New("store.supabase.key (SUPABASE_SERVICE_ROLE_KEY) or store.supabase.password is required"))
		}
	case BackendPostgres:
		if s.Postgres == nil || s.Postgres.DSN == "" {
			errs = append(errs, errors.New("store.postgres.dsn (DATABASE_URL) is required"))
		}
	case BackendMongo:
		if s.Mongo == nil || s.Mongo.URI == "" {
			errs = append(errs, errors.New("store.mongo.uri (MONGO_URI) is required"))
		} else if s.Mongo.Database == "" {
			errs = append(errs, errors.New("store.mongo.database is required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, errors.Errorf("store.backend %q is not supported", s.Backend))
	}
	return errs
}
