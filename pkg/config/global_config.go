package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"site-ingest/pkg/domain"
)

// GlobalConfig is the root of everything the ingest binary reads at startup.
type GlobalConfig struct {
	Store   *StoreConfig    `json:"store" yaml:"store"`
	Fetch   *FetchConfig    `json:"fetch" yaml:"fetch"`
	Server  *ServerConfig   `json:"server" yaml:"server"`
	Logging *LoggingConfig  `json:"logging" yaml:"logging"`
	Sources []domain.Source `json:"sources" yaml:"sources"`
}

func (g *GlobalConfig) Validate() []error {
	var errs = make([]error, 0)
	if g.Store == nil {
		errs = append(errs, errors.New("store config is required"))
	} else {
		errs = append(errs, g.Store.Validate()...)
	}
	if g.Fetch == nil {
		errs = append(errs, errors.New("fetch config is required"))
	} else {
		errs = append(errs, g.Fetch.Validate()...)
	}
	if g.Server != nil {
		errs = append(errs, g.Server.Validate()...)
	}
	if g.Logging != nil {
		errs = append(errs, g.Logging.Validate()...)
	}
	errs = append(errs, validateSources(g.Sources)...)
	return errs
}

func validateSources(sources []domain.Source) []error {
	var errs []error
	if len(sources) == 0 {
		return append(errs, errors.New("at least one source is required"))
	}
	seen := make(map[string]bool, len(sources))
	for i, s := range sources {
		if strings.TrimSpace(s.URL) == "" {
			errs = append(errs, errors.Errorf("sources[%d]: url is required", i))
			continue
		}
		if u, err := url.Parse(s.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, errors.Errorf("sources[%d]: invalid url %q", i, s.URL))
		}
		if strings.TrimSpace(s.Type) == "" {
			errs = append(errs, errors.Errorf("sources[%d]: type is required", i))
		}
		if seen[s.URL] {
			errs = append(errs, errors.Errorf("sources[%d]: duplicate url %q", i, s.URL))
		}
		seen[s.URL] = true
	}
	return errs
}

// DefaultSources is the fixed page list of the university site.
func DefaultSources() []domain.Source {
	return []domain.Source{
		{URL: "https://shu.edu.pk/", Type: "homepage"},
		{URL: "https://shu.edu.pk/qec/contact-us/", Type: "contact"},
		{URL: "https://shu.edu.pk/programs/", Type: "programs"},
		{URL: "https://shu.edu.pk/news/", Type: "news"},
	}
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Store:   NewDefaultStoreConfig(),
		Fetch:   NewDefaultFetchConfig(),
		Server:  NewDefaultServerConfig(),
		Logging: NewDefaultLoggingConfig(),
		Sources: DefaultSources(),
	}
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string][]string{
	"store.backend":                    {"INGEST_STORE_BACKEND"},
	"store.supabase.url":               {"SUPABASE_URL"},
	"store.supabase.key":               {"SUPABASE_SERVICE_ROLE_KEY"},
	"store.supabase.password":          {"SUPABASE_DB_PASSWORD"},
	"store.supabase.connection_string": {"SUPABASE_DB_URL"},
	"store.postgres.dsn":               {"DATABASE_URL"},
	"store.mongo.uri":                  {"MONGO_URI"},
	"store.mongo.database":             {"MONGO_DATABASE"},
	"fetch.timeout":                    {"INGEST_FETCH_TIMEOUT"},
	"fetch.workers":                    {"INGEST_FETCH_WORKERS"},
	"server.listen_addr":               {"INGEST_LISTEN_ADDR"},
	"logging.level":                    {"INGEST_LOG_LEVEL"},
	"logging.format":                   {"INGEST_LOG_FORMAT"},
}

// Load reads the optional config file at configFilePath, applies environment overrides
// and returns the merged config. An empty path means defaults plus environment only.
func Load(configFilePath string) (*GlobalConfig, error) {
	v := viper.New()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, errors.Wrapf(err, "bind env for %s", key)
		}
	}

	if configFilePath != "" {
		if _, err := os.Stat(configFilePath); err != nil {
			return nil, err
		}
		dir, file := filepath.Split(configFilePath)
		fileType := filepath.Ext(file)
		v.AddConfigPath(dir)
		v.SetConfigName(strings.TrimSuffix(file, fileType))
		v.SetConfigType(strings.TrimPrefix(fileType, "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "parse config file")
		}
	}

	cfg := NewDefaultGlobalConfig()
	// A file's source list replaces the defaults instead of merging into them by index.
	if v.IsSet("sources") {
		cfg.Sources = nil
	}
	if err := v.Unmarshal(cfg, func(config *mapstructure.DecoderConfig) {
		config.TagName = "yaml"
	}); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

type FetchConfig struct {
	// Timeout bounds each page fetch; an expired fetch counts as a fetch failure.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// Workers bounds how many sources are processed at once.
	Workers int `json:"workers" yaml:"workers"`
	// ClientProfile selects the request header profile: "cloudflare" or "browser".
	ClientProfile string `json:"client_profile" yaml:"client_profile"`
}

func NewDefaultFetchConfig() *FetchConfig {
	return &FetchConfig{
		Timeout:       30 * time.Second,
		Workers:       4,
		ClientProfile: "browser",
	}
}

func (f *FetchConfig) Validate() []error {
	var errs []error
	if f.Timeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if f.Workers <= 0 {
		errs = append(errs, errors.New("fetch.workers must be positive"))
	}
	switch f.ClientProfile {
	case "", "browser", "cloudflare":
	default:
		errs = append(errs, errors.Errorf("fetch.client_profile %q is not supported", f.ClientProfile))
	}
	return errs
}

type ServerConfig struct {
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	// ContextItems is how many recent records the chat context block includes.
	ContextItems int `json:"context_items" yaml:"context_items"`
}

func NewDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ListenAddr:   ":8080",
		ContextItems: 10,
	}
}

func (s *ServerConfig) Validate() []error {
	var errs []error
	if s.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if s.ContextItems < 0 {
		errs = append(errs, errors.New("server.context_items must not be negative"))
	}
	return errs
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func NewDefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:  "info",
		Format: "json",
	}
}

func (l *LoggingConfig) Validate() []error {
	var errs []error
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, errors.Errorf("logging.level %q is not supported", l.Level))
	}
	switch l.Format {
	case "json", "console":
	default:
		errs = append(errs, errors.Errorf("logging.format %q is not supported", l.Format))
	}
	return errs
}
