package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webpulse/gapctl/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregation API over local HTTP",
		Long: "Expose the same reports and aggregations as JSON endpoints,\n" +
			"with Prometheus metrics on /metrics, until interrupted.",
		RunE: runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Addr:      fmt.Sprintf("%s:%d", app.cfg.Server.Host, app.cfg.Server.Port),
		Logger:    app.logger,
		Analytics: app.analytics,
		Search:    app.search,
		Merchant:  app.merchant,
		Caches:    app.caches,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	app.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	app.logger.Info("server stopped")
	return nil
}
