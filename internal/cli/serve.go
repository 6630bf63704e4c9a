package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ASHISH26940/formrelay/internal/config"
	"github.com/ASHISH26940/formrelay/internal/metrics"
	"github.com/ASHISH26940/formrelay/internal/relay"
	"github.com/ASHISH26940/formrelay/internal/server"
	"github.com/ASHISH26940/formrelay/internal/store"
	"github.com/ASHISH26940/formrelay/internal/supervisor"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP front end and the relay listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

// Services builds the supervised services for cfg: the relay listener, the
// HTTP front end and, when enabled, the metrics endpoint.
func Services(cfg *config.Config, logger hclog.Logger) []supervisor.Service {
	rec := metrics.New("formrelay")
	rs := store.NewStore(cfg.StorePath, logger.Named("store"))

	listener := relay.NewListener(cfg.RelayAddr(), cfg.RelayBufferSize, rs,
		relay.WithMetrics(rec),
		relay.WithLogger(logger.Named("relay")),
	)

	httpLogger := logger.Named("http")
	front := server.New(cfg, relay.NewUDPSender(cfg.RelayAddr()), rec, httpLogger)

	services := []supervisor.Service{
		listener,
		server.NewService("http", cfg.HTTPAddr(), front, httpLogger),
	}
	if cfg.MetricsPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rec.Handler())
		services = append(services,
			server.NewService("metrics", cfg.MetricsAddr(), mux, logger.Named("metrics")))
	}
	return services
}

func runServe(ctx context.Context, cfg *config.Config, logger hclog.Logger) error {
	services := Services(cfg, logger)

	logger.Named("http").Info("navigate to http://" + cfg.HTTPAddr() + " to visit your website")
	if err := supervisor.New(logger.Named("supervisor")).Run(ctx, services...); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
