package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the top-level "bommel" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "bommel",
		Short:         "Organize an organization's cost-center tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(app),
		newTreeCmd(app),
		newTargetsCmd(app),
		newStatsCmd(app),
		newCreateCmd(app),
		newRenameCmd(app),
		newMoveCmd(app),
		newDeleteCmd(app),
		newTxCmd(app),
		newTUICmd(app),
		newExportCmd(app),
	)

	return root
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid bommel id %q", s)
	}
	return id, nil
}
