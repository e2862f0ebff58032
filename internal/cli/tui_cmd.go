package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bommel/internal/log"
	"bommel/internal/tui"
)

func newTUICmd(app *App) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and rearrange the tree in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := app.Coordinator(cmd.Context())
			if err != nil {
				return err
			}

			// The UI owns the terminal; logs only go to a file when asked.
			logger := log.Discard()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logger = log.NewForLevel(f, app.Config.LogLevel, log.ComponentTUI)
			}
			coord.SetLogger(logger)
			return tui.Run(cmd.Context(), coord, logger)
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Append logs, including drag transitions at debug level, to this file")

	return cmd
}
