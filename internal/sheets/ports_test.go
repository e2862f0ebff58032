package sheets

import (
	"testing"

	"bommel/internal/core"
	"bommel/internal/stats"
	"bommel/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtTree() *tree.Tree {
	nodes := []core.Node{
		{ID: 1, Label: "ACME", Emoji: "🏢", IsRoot: true},
		{ID: 2, ParentID: 1, Label: "Marketing"},
		{ID: 3, ParentID: 2, Label: "Events"},
		{ID: 4, ParentID: 1, Label: "Sales"},
	}
	t := tree.BuildTree(nodes, core.VirtualRootID, nil)
	stats.Apply(t, map[int64]core.Statistics{
		2: {Total: core.Money{Cents: -1000}, Expenses: core.Money{Cents: 1000}, TransactionsCount: 1},
		3: {Total: core.Money{Cents: 2550}, Income: core.Money{Cents: 2550}, TransactionsCount: 2},
	}, core.StatisticsMode{Aggregate: true})
	return t
}

func TestRows_PreOrderWithPaths(t *testing.T) {
	rows := Rows(builtTree())
	require.Len(t, rows, 4)

	paths := make([]string, len(rows))
	for i, r := range rows {
		paths[i] = r.Path
	}
	assert.Equal(t, []string{
		"ACME",
		"ACME / Marketing",
		"ACME / Marketing / Events",
		"ACME / Sales",
	}, paths)

	marketing := rows[1]
	assert.Equal(t, 1, marketing.Depth)
	assert.Equal(t, 1, marketing.SubBommels)
	assert.Equal(t, int64(1550), marketing.Figures.Total.Cents)
	assert.Equal(t, int64(3), marketing.Figures.TransactionsCount)
}

func TestRows_VirtualWrapperHasNoID(t *testing.T) {
	tr := tree.BuildTree([]core.Node{
		{ID: 5, Label: "A"},
		{ID: 6, Label: "B"},
	}, core.VirtualRootID, &core.Node{Label: "ACME"})

	rows := Rows(tr)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Virtual)
	assert.Equal(t, "", rows[0].Values()[0])
	assert.Equal(t, "5", rows[1].Values()[0])
	assert.Equal(t, "ACME / A", rows[1].Path)
}

func TestTable(t *testing.T) {
	table := Table(Rows(builtTree()))
	require.Len(t, table, 5)
	assert.Equal(t, Header, table[0])
	events := table[3]
	assert.Equal(t, "3", events[0])
	assert.Equal(t, 25.5, events[5])
	assert.Equal(t, 25.5, events[7])
	assert.Nil(t, Rows(nil))
}
