package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/constants"
)

// installVersion adds the version command to the app.
func (a *App) installVersion() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Returns the version of the app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(constants.CmdName + "\t" + constants.Version)
			return nil
		},
	}
	a.cmd.AddCommand(cmd)
}
