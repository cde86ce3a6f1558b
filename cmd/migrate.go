package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the content and notification tables on the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := a.store.EnsureSchema(cmd.Context()); err != nil {
				a.logger.Error("cmd: migration failed", zap.String("backend", a.cfg.Store.Backend), zap.Error(err))
				return err
			}
			a.logger.Info("cmd: schema ready", zap.String("backend", a.cfg.Store.Backend))
			return nil
		},
	}
}
