package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/netmon"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/store"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/submit"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/syncer"
)

func installSyncCmd(app *App) {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync pass and exit",
		Long: `Run a single sync pass and exit.

Pending reports are delivered in queue order. Reports that cannot be
delivered stay queued for a later pass.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.syncOnce(cmd.Context())
		},
	}

	app.cmd.AddCommand(syncCmd)
}

func (a *App) syncOnce(ctx context.Context) error {
	s := store.New(slog.Default(), a.config.DBPath)
	if err := s.Init(ctx); err != nil {
		return err
	}
	defer s.Close()

	res := a.newOrchestrator(s).Sync(ctx)
	if !res.Success {
		return fmt.Errorf("sync pass did not run: %s", res.Message)
	}
	fmt.Println(res.Message)
	if res.Failed > 0 {
		fmt.Printf("%d reports left queued for a later pass\n", res.Failed)
	}
	return nil
}

// newOrchestrator wires a one-shot orchestrator around an initialized store.
// Online state is seeded from a single reachability probe.
func (a *App) newOrchestrator(s *store.Store) *syncer.Orchestrator {
	l := slog.Default()
	monitor := netmon.New(l, a.config.ProbeURL)
	client := submit.New(l, a.config.ServerURL)

	orch := syncer.New(l, s, monitor, client, a.syncConfig())
	orch.SetOnline(monitor.ProbeReachability(context.Background(), a.config.ProbeTimeout))
	return orch
}
