package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bommel/internal/core"
	"bommel/internal/tree"
)

func newTreeCmd(app *App) *cobra.Command {
	var includeDrafts, aggregate bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the Bommel tree with statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := app.Coordinator(cmd.Context())
			if err != nil {
				return err
			}

			mode := coord.Mode()
			if cmd.Flags().Changed("include-drafts") {
				mode.IncludeDrafts = includeDrafts
			}
			if cmd.Flags().Changed("aggregate") {
				mode.Aggregate = aggregate
			}

			t, err := coord.View(cmd.Context(), mode)
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), t)
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeDrafts, "include-drafts", false, "Count draft transactions")
	cmd.Flags().BoolVar(&aggregate, "aggregate", true, "Roll descendant figures up into each node")

	return cmd
}

func printTree(w io.Writer, t *tree.Tree) {
	t.Walk(func(b *tree.Branch, depth int) {
		label := b.Node.Label
		if b.Node.Emoji != "" {
			label = b.Node.Emoji + " " + label
		}
		id := fmt.Sprintf("#%d", b.Node.ID)
		if b.Virtual {
			id = "virtual"
		}
		fmt.Fprintf(w, "%s%s (%s)  %s\n", strings.Repeat("  ", depth), label, id, formatFigures(b.Display))
	})
	if len(t.Omitted) > 0 {
		fmt.Fprintf(w, "omitted: %v\n", t.Omitted)
	}
}

func formatFigures(s core.Statistics) string {
	return fmt.Sprintf("%s (in %s, out %s, %d tx)", s.Total, s.Income, s.Expenses, s.TransactionsCount)
}
