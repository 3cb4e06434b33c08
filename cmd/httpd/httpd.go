// Package httpd implements the HTTP API server command.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/alvinrabock/kronobergsbil-scraper-sub002/cmd/common"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// shutdownTimeout bounds graceful server shutdown.
const shutdownTimeout = 10 * time.Second

// Cmd represents the httpd command.
var Cmd = &cobra.Command{
	Use:   "httpd",
	Short: "Start the HTTP API server",
	Long: `Serves the price-update batch endpoint, scrape run inspection, and
on-demand pipeline runs.`,
	RunE: runServer,
}

func runServer(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := cmdcommon.NewDeps(ctx)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer deps.Close()

	router := newRouter(deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		deps.Logger.Info("http server starting", logger.String("addr", srv.Addr))

		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case serveErr := <-errCh:
		return fmt.Errorf("http server: %w", serveErr)
	case <-ctx.Done():
	}

	deps.Logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("shutdown http server: %w", shutdownErr)
	}

	deps.Logger.Info("http server stopped")

	return nil
}
