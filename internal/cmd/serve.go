package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/waitgate/internal/server"
	"github.com/MrEthical07/waitgate/metrics/export/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the waitlist HTTP server. SIGINT or SIGTERM shuts it down gracefully:
in-flight requests finish, pending notifications are delivered and audit events are flushed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		overrides := map[string]any{}
		if cmd.Flags().Changed("port") {
			overrides["server.port"] = servePort
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Logging)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		var metrics http.Handler
		if cfg.Metrics.Enabled {
			metrics = prometheus.Handler(prometheus.NewRegistry(prometheus.NewCollector(a.gate)))
		}

		srv := server.New(server.Options{
			Addr:         cfg.Server.Addr(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			MetricsPath:  cfg.Metrics.Path,
		}, server.Deps{
			Gate:     a.gate,
			Waitlist: a.waitlist,
			Discord:  a.discord,
			Tokens:   a.tokens,
			Metrics:  metrics,
			Logger:   logger.Named("http"),
		})

		logger.Info("initializing server",
			zap.String("version", versionInfo.Version),
			zap.String("addr", cfg.Server.Addr()),
			zap.Bool("turnstile", cfg.Turnstile.Enabled()),
			zap.Bool("admin", cfg.Admin.Enabled()),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
}
