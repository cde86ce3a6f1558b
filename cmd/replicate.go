package cmd

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"site-ingest/pkg/config"
	"site-ingest/pkg/db"
	"site-ingest/pkg/pipeline"
	"site-ingest/pkg/replication"
)

func NewReplicateCommand(opts *rootOptions) *cobra.Command {
	var (
		targetConfigPath string
		limit            int
		batchSize        int
		workers          int
	)

	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Copy stored content from the configured store into another backend",
		Long: "Copies content records from the store in --config into the store described by --target-config. " +
			"Records already present in the target, by source url and title, are left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			target, closeTarget, err := openTargetStore(ctx, targetConfigPath)
			if err != nil {
				a.logger.Error("cmd: target store unavailable", zap.Error(err))
				return err
			}
			defer func() {
				if err := closeTarget(context.Background()); err != nil {
					a.logger.Warn("cmd: closing target store failed", zap.Error(err))
				}
			}()

			r, err := replication.NewReplicator(replication.Config{
				Source:    a.store,
				Target:    target,
				Limit:     limit,
				BatchSize: batchSize,
				Workers:   workers,
				Logger:    a.logger,
			})
			if err != nil {
				return err
			}

			result, err := r.Replicate(ctx)
			if err != nil {
				a.logger.Error("cmd: replication failed", zap.Error(err))
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&targetConfigPath, "target-config", "t", "", "config file describing the target store")
	cmd.Flags().IntVar(&limit, "limit", replication.DefaultLimit, "copy at most this many of the most recently scraped records")
	cmd.Flags().IntVar(&batchSize, "batch-size", replication.DefaultBatchSize, "records per batch")
	cmd.Flags().IntVar(&workers, "workers", replication.DefaultWorkers, "batches copied at once")
	_ = cmd.MarkFlagRequired("target-config")
	return cmd
}

// openTargetStore reads only the store section of path.
func openTargetStore(ctx context.Context, path string) (db.ContentStore, db.CloseFunc, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, errors.Wrap(pipeline.ErrConfiguration, err.Error())
	}
	if errs := cfg.Store.Validate(); len(errs) > 0 {
		return nil, nil, errors.Wrap(pipeline.ErrConfiguration, stderrors.Join(errs...).Error())
	}
	return db.OpenStore(ctx, cfg.Store)
}
