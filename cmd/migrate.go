package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"forgerelay/internal/bootstrap"
	"forgerelay/internal/bootstrap/logging"
	"forgerelay/internal/errs"
	"forgerelay/internal/httpapi"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Initialize or update the relay's database schema",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *httpapi.API) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "start migrate")

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "schema migration failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "migrate schema")
		}

		logging.Info(ctx, "migrate finished", slog.String("database_dsn", app.Config.Database.DSN))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema migrated: %s\n", app.Config.Database.DSN); err != nil {
			return errs.Wrap(err, "write migrate output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
