package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/identity"
)

func installIdentityCmd(app *App) {
	identityCmd := &cobra.Command{
		Use:   "identity [COMMAND]",
		Short: "Manage the reporter identity profile",
		Long: `Manage the reporter identity profile.

The profile identifies the field worker on every submitted report. It is
stored locally and attached to reports at queueing time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var userID, displayName string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set the reporter identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := identity.New(slog.Default(), app.config.ProfileDir)
			if err := m.Set(identity.Profile{UserID: userID, DisplayName: displayName}); err != nil {
				return err
			}
			fmt.Printf("Reporter identity set to %s\n", userID)
			return nil
		},
	}
	setCmd.Flags().StringVar(&userID, "user-id", "", "reporter ID attached to submitted reports")
	setCmd.Flags().StringVar(&displayName, "display-name", "", "human-readable reporter name")
	if err := setCmd.MarkFlagRequired("user-id"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark user-id flag as required: %v", err))
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the stored reporter identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := identity.New(slog.Default(), app.config.ProfileDir).Get()
			if errors.Is(err, identity.ErrProfileNotFound) {
				fmt.Println("No reporter identity set")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Reporter: %s", p.UserID)
			if p.DisplayName != "" {
				fmt.Printf(" (%s)", p.DisplayName)
			}
			fmt.Println()
			return nil
		},
	}

	identityCmd.AddCommand(setCmd)
	identityCmd.AddCommand(showCmd)
	app.cmd.AddCommand(identityCmd)
}
