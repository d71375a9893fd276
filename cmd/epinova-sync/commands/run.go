package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/service"
)

func installRunCmd(app *App) {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync agent in the foreground",
		Long: `Run the sync agent in the foreground.

The agent watches network connectivity and periodically drains the local
report queue to the submission service until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runAgent()
		},
	}

	app.cmd.AddCommand(runCmd)
}

func (a *App) runAgent() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := service.New(slog.Default(), a.serviceConfig())
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	defer s.Cleanup()

	slog.Info("Sync agent started", "server", a.config.ServerURL, "db", a.config.DBPath)
	<-ctx.Done()
	slog.Info("Sync agent stopping")
	return nil
}
