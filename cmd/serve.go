package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"site-ingest/pkg/chatcontext"
	"site-ingest/pkg/config"
	"site-ingest/pkg/metrics"
	"site-ingest/pkg/pipeline"
	"site-ingest/pkg/server"
)

func NewServeCommand(opts *rootOptions) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run-once endpoint for an external scheduler",
		Long: "Starts an HTTP server where POST /scrape runs one ingest pass and replies with its summary. " +
			"A configuration fault is reported by every /scrape call instead of stopping the server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			serverCfg := config.NewDefaultServerConfig()
			srvOpts := server.Options{Gatherer: reg}

			var runner server.Runner
			a, err := bootstrap(ctx, opts)
			if err != nil {
				_, logger, _ := loadConfig(opts.configFilePath)
				logger.Warn("cmd: serving without a working pipeline", zap.Error(err))
				srvOpts.Logger = logger
				runner = server.Unavailable{Err: err}
			} else {
				defer a.Close(context.Background())
				srvOpts.Logger = a.logger
				if a.cfg.Server != nil {
					serverCfg = a.cfg.Server
				}
				runner = buildRunner(a, metrics.New(reg))
				srvOpts.Context = chatcontext.NewBuilder(a.store, serverCfg.ContextItems)
			}

			if listenAddr != "" {
				serverCfg.ListenAddr = listenAddr
			}
			return server.New(serverCfg, runner, srvOpts).Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address, overrides server.listen_addr")
	return cmd
}

func buildRunner(a *app, m *metrics.Metrics) server.Runner {
	p, err := pipeline.Build(a.cfg, a.store, a.logger, m)
	if err != nil {
		a.logger.Warn("cmd: serving without a working pipeline", zap.Error(err))
		return server.Unavailable{Err: err}
	}
	return p
}
