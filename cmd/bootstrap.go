package cmd

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"site-ingest/pkg/config"
	"site-ingest/pkg/db"
	"site-ingest/pkg/logging"
	"site-ingest/pkg/pipeline"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg        *config.GlobalConfig
	logger     *zap.Logger
	store      db.ContentStore
	closeStore db.CloseFunc
}

func (a *app) Close(ctx context.Context) {
	if a.closeStore != nil {
		if err := a.closeStore(ctx); err != nil {
			a.logger.Warn("cmd: closing store failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// loadConfig reads and validates configuration. Any problem is a configuration
// fault. The returned logger is usable even when err is not nil.
func loadConfig(path string) (*config.GlobalConfig, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		logger, _ := logging.New(config.NewDefaultLoggingConfig())
		return nil, logging.OrNop(logger), errors.Wrap(pipeline.ErrConfiguration, err.Error())
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		logger, _ = logging.New(config.NewDefaultLoggingConfig())
		return cfg, logging.OrNop(logger), errors.Wrap(pipeline.ErrConfiguration, err.Error())
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, logger, errors.Wrap(pipeline.ErrConfiguration, stderrors.Join(errs...).Error())
	}
	return cfg, logger, nil
}

// bootstrap loads configuration and connects the configured store.
func bootstrap(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, logger, err := loadConfig(opts.configFilePath)
	if err != nil {
		logger.Error("cmd: invalid configuration", zap.Error(err))
		return nil, err
	}

	store, closeStore, err := db.OpenStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("cmd: store unavailable", zap.String("backend", cfg.Store.Backend), zap.Error(err))
		return nil, errors.Wrap(pipeline.ErrConfiguration, err.Error())
	}
	logger.Debug("cmd: store connected", zap.String("backend", cfg.Store.Backend))

	return &app{cfg: cfg, logger: logger, store: store, closeStore: closeStore}, nil
}
