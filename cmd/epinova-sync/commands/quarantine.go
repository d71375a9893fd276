package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/store"
)

func installQuarantineCmd(app *App) {
	quarantineCmd := &cobra.Command{
		Use:   "quarantine [COMMAND]",
		Short: "Inspect and manage quarantined reports",
		Long: `Inspect and manage quarantined reports.

A report is quarantined once the submission service has permanently
rejected it too many times. Quarantined reports are skipped by sync passes
until released or discarded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List quarantined reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				reports, err := s.ListQuarantined(ctx)
				if err != nil {
					return err
				}
				if len(reports) == 0 {
					fmt.Println("No quarantined reports")
					return nil
				}
				for _, r := range reports {
					fmt.Printf("%d\t%s\t%s\t%s\trejections=%d\n",
						r.LocalID, r.UID, r.PatientName, strings.Join(r.Symptoms, ","), r.PermanentRejections)
				}
				return nil
			})
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry ID",
		Short: "Release a quarantined report back into the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReportID(args[0])
			if err != nil {
				return err
			}
			return app.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				if err := s.ReleaseQuarantined(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Report %d released, it will be retried on the next sync pass\n", id)
				return nil
			})
		},
	}

	discardCmd := &cobra.Command{
		Use:   "discard ID",
		Short: "Permanently delete a quarantined report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReportID(args[0])
			if err != nil {
				return err
			}
			return app.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				if err := s.DiscardQuarantined(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Report %d discarded\n", id)
				return nil
			})
		},
	}

	quarantineCmd.AddCommand(listCmd)
	quarantineCmd.AddCommand(retryCmd)
	quarantineCmd.AddCommand(discardCmd)
	app.cmd.AddCommand(quarantineCmd)
}

func parseReportID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid report ID %q", arg)
	}
	return id, nil
}

// withStore runs f against an initialized store, closing it afterwards.
func (a *App) withStore(ctx context.Context, f func(context.Context, *store.Store) error) error {
	s := store.New(slog.Default(), a.config.DBPath)
	if err := s.Init(ctx); err != nil {
		return err
	}
	defer s.Close()
	return f(ctx, s)
}
