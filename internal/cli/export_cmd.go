package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bommel/internal/log"
	"bommel/internal/sheets"
	"bommel/internal/sheets/google"
	"bommel/internal/worker"
)

func newExportCmd(app *App) *cobra.Command {
	var stdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the tree to the configured spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := app.Coordinator(ctx)
			if err != nil {
				return err
			}

			var exporter sheets.TreeExporter
			switch {
			case stdout:
				exporter = tableWriter{w: cmd.OutOrStdout()}
			case app.Config.ExportEnabled():
				client, err := google.New(ctx, google.Config{
					SpreadsheetID:   app.Config.GoogleSpreadsheetID,
					SheetName:       app.Config.GoogleSheetName,
					CredentialsJSON: app.Config.GoogleServiceAccountJSON,
					CredentialsFile: app.Config.GoogleServiceAccountFile,
				})
				if err != nil {
					return err
				}
				exporter = client
			default:
				return fmt.Errorf("sheet export is not configured: set GOOGLE_SPREADSHEET_ID or pass --stdout")
			}

			w := worker.NewExportWorker(coord, exporter, app.Logger.WithComponent(log.ComponentWorker))
			ref, err := w.Export(ctx)
			if err != nil {
				return err
			}
			if !stdout {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", ref)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write tab-separated rows instead of a spreadsheet")

	return cmd
}

// tableWriter prints the export table as tab-separated values.
type tableWriter struct {
	w io.Writer
}

func (t tableWriter) Export(_ context.Context, rows []sheets.Row) (string, error) {
	table := sheets.Table(rows)
	for _, row := range table {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		if _, err := fmt.Fprintln(t.w, strings.Join(cells, "\t")); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("stdout!A1:J%d", len(table)), nil
}
