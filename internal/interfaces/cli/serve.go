package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/flame-data/internal/config"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	httpapi "github.com/turtacn/flame-data/internal/interfaces/http"
)

func newServeCmd(s *settings) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cc.Config.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cc, s.bootstrap)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// serve runs the API until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, cc *CLIContext, bootstrap BootstrapFunc) error {
	log := cc.Logger
	app, err := bootstrap(ctx, cc)
	if err != nil {
		return err
	}
	defer app.Close()

	if cc.ConfigPath != "" && cc.Level != nil {
		config.Watch(cc.ConfigPath, func(next *config.Config) {
			level, err := logging.ParseLevel(next.Log.Level)
			if err != nil {
				return
			}
			cc.Level.SetLevel(level)
			log.Info("log level reloaded", logging.String("level", level.String()))
		}, func(err error) {
			log.Warn("config reload rejected", logging.Err(err))
		})
	}

	srv := httpapi.NewServer(cc.Config.Server, app.Handler, log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	log.Info("flamedata API started",
		logging.String("version", Version),
		logging.String("addr", srv.Addr()),
		logging.String("oracle", cc.Config.Oracle.Transport),
		logging.Bool("kafka", cc.Config.Kafka.Enabled),
		logging.Bool("export", cc.Config.Storage.Enabled),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error("graceful shutdown failed", logging.Err(err))
		return err
	}
	return <-errCh
}
