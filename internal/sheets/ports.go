// Package sheets flattens the rendered tree into spreadsheet rows and
// defines the outbound port that writes them.
package sheets

import (
	"context"
	"strconv"
	"strings"

	"bommel/internal/core"
	"bommel/internal/tree"
)

// Ports for outbound adapters.
type (
	// TreeExporter replaces the exported table with rows. It returns a
	// reference to the written range.
	TreeExporter interface {
		Export(ctx context.Context, rows []Row) (rangeRef string, err error)
	}
)

// Header is the first row of every export.
var Header = []any{"ID", "Path", "Depth", "Emoji", "Label", "Income", "Expenses", "Total", "Transactions", "Sub-bommels"}

// Row is one Bommel as exported, carrying the figures of the display mode.
type Row struct {
	ID         int64
	Path       string
	Depth      int
	Emoji      string
	Label      string
	Figures    core.Statistics
	SubBommels int
	// Virtual rows are synthesized wrappers and carry no id.
	Virtual bool
}

const pathSeparator = " / "

// Rows flattens t in pre-order. Call stats.Apply first so Display is set.
func Rows(t *tree.Tree) []Row {
	if t == nil {
		return nil
	}
	var rows []Row
	var path []string
	t.Walk(func(b *tree.Branch, depth int) {
		path = append(path[:depth], b.Node.Label)
		rows = append(rows, Row{
			ID:         b.Node.ID,
			Path:       strings.Join(path, pathSeparator),
			Depth:      depth,
			Emoji:      b.Node.Emoji,
			Label:      b.Node.Label,
			Figures:    b.Display,
			SubBommels: b.SubBommelsCount,
			Virtual:    b.Virtual,
		})
	})
	return rows
}

// Values renders the row as spreadsheet cells. Amounts are euros.
func (r Row) Values() []any {
	id := ""
	if !r.Virtual {
		id = strconv.FormatInt(r.ID, 10)
	}
	return []any{
		id,
		r.Path,
		r.Depth,
		r.Emoji,
		r.Label,
		r.Figures.Income.Euros(),
		r.Figures.Expenses.Euros(),
		r.Figures.Total.Euros(),
		r.Figures.TransactionsCount,
		r.SubBommels,
	}
}

// Table returns the header followed by every row's values.
func Table(rows []Row) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, Header)
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return out
}
