package pipeline

import (
	stderrors "errors"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"site-ingest/pkg/config"
	"site-ingest/pkg/content"
	"site-ingest/pkg/db"
	"site-ingest/pkg/fetcher"
	"site-ingest/pkg/httpclient"
	"site-ingest/pkg/metrics"
	"site-ingest/pkg/reconcile"
)

// Build assembles the standard pipeline from loaded configuration:
// sources → [HTTP fetcher] → [strategy registry] → [reconciler over store].
// Invalid configuration or a missing store is reported as ErrConfiguration.
func Build(cfg *config.GlobalConfig, store db.Store, logger *zap.Logger, m *metrics.Metrics) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.Wrap(ErrConfiguration, "config is required")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Wrap(ErrConfiguration, stderrors.Join(errs...).Error())
	}
	if store == nil {
		return nil, errors.Wrap(ErrConfiguration, "content store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := httpclient.NewClient(httpclient.ParseClientType(cfg.Fetch.ClientProfile), cfg.Fetch.Timeout)

	return New(Config{
		Sources:    cfg.Sources,
		Fetcher:    fetcher.New(client, cfg.Fetch.Timeout, logger),
		Extractor:  content.NewRegistry(content.DefaultSite),
		Reconciler: reconcile.New(store, logger),
		Workers:    cfg.Fetch.Workers,
		Logger:     logger,
		Metrics:    m,
	})
}
