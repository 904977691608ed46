package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"forgerelay/internal/bootstrap"
	"forgerelay/internal/bootstrap/logging"
	"forgerelay/internal/errs"
	"forgerelay/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay's HTTP server",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, api *httpapi.API) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		srv := &http.Server{
			Addr:    app.Config.Relay.Addr,
			Handler: api.Router(),
		}

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "relay HTTP server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
				return
			}
			serveErr <- nil
		}()

		stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case <-stopCtx.Done():
			logging.Info(ctx, "shutdown signal received")
		case err := <-serveErr:
			if err != nil {
				logging.Error(ctx, "relay HTTP server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve http")
			}
			return nil
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
