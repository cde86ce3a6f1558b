package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"site-ingest/pkg/metrics"
	"site-ingest/pkg/pipeline"
)

func NewRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one ingest pass over all configured sources",
		Long: "Fetches every configured source, extracts content records, reconciles them with the store " +
			"and prints the run summary as JSON. Exits non-zero only when the run could not start.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := runOnce(ctx, opts)
			if err != nil {
				_ = writeJSON(cmd.OutOrStdout(), map[string]string{"error": err.Error()})
				return err
			}
			return writeJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func runOnce(ctx context.Context, opts *rootOptions) (pipeline.Summary, error) {
	a, err := bootstrap(ctx, opts)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer a.Close(context.Background())

	p, err := pipeline.Build(a.cfg, a.store, a.logger, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		a.logger.Error("cmd: pipeline not built", zap.Error(err))
		return pipeline.Summary{}, err
	}
	return p.Run(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
