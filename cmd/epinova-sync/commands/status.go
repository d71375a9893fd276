package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/constants"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/identity"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/netmon"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/store"
)

// statusConfig holds the flags of the status command.
type statusConfig struct {
	Format string
}

// statusReport is the machine-readable status of the local queue.
type statusReport struct {
	Reachable   bool   `yaml:"reachable"`
	ServerURL   string `yaml:"serverUrl"`
	Pending     int    `yaml:"pending"`
	Quarantined int    `yaml:"quarantined"`
	ReporterID  string `yaml:"reporterId,omitempty"`
	Version     string `yaml:"version"`
}

func installStatusCmd(app *App) {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue depth and service reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.showStatus(cmd.Context())
		},
	}

	statusCmd.Flags().StringVar(&app.config.Status.Format, "format", "text", "output format: text or yaml")

	app.cmd.AddCommand(statusCmd)
}

func (a *App) showStatus(ctx context.Context) error {
	l := slog.Default()

	s := store.New(l, a.config.DBPath)
	if err := s.Init(ctx); err != nil {
		return err
	}
	defer s.Close()

	pending, err := s.CountPending(ctx)
	if err != nil {
		return err
	}
	quarantined, err := s.ListQuarantined(ctx)
	if err != nil {
		return err
	}

	st := statusReport{
		Reachable:   netmon.New(l, a.config.ProbeURL).ProbeReachability(ctx, a.config.ProbeTimeout),
		ServerURL:   a.config.ServerURL,
		Pending:     pending,
		Quarantined: len(quarantined),
		Version:     constants.Version,
	}

	p, err := identity.New(l, a.config.ProfileDir).Get()
	if err != nil && !errors.Is(err, identity.ErrProfileNotFound) {
		return err
	}
	st.ReporterID = p.UserID

	switch a.config.Status.Format {
	case "text":
		reachability := "unreachable"
		if st.Reachable {
			reachability = "reachable"
		}
		fmt.Printf("Service: %s (%s)\n", st.ServerURL, reachability)
		fmt.Printf("Pending reports: %d\n", st.Pending)
		fmt.Printf("Quarantined reports: %d\n", st.Quarantined)
		if st.ReporterID != "" {
			fmt.Printf("Reporter: %s\n", st.ReporterID)
		}
	case "yaml":
		if err := yaml.NewEncoder(os.Stdout).Encode(st); err != nil {
			return fmt.Errorf("failed to encode status: %v", err)
		}
	default:
		return fmt.Errorf("unknown format %q, expected text or yaml", a.config.Status.Format)
	}
	return nil
}
