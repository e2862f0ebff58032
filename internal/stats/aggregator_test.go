package stats

import (
	"testing"

	"bommel/internal/core"
	"bommel/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func figures(income, expenses int64, count int64) core.Statistics {
	return core.Statistics{
		Income:            core.Money{Cents: income},
		Expenses:          core.Money{Cents: expenses},
		Total:             core.Money{Cents: income - expenses},
		TransactionsCount: count,
	}
}

func family() ([]core.Node, map[int64]core.Statistics) {
	nodes := []core.Node{
		{ID: 1, ParentID: 0, Label: "ACME", IsRoot: true},
		{ID: 2, ParentID: 1, Label: "Marketing"},
		{ID: 3, ParentID: 1, Label: "Sales"},
	}
	direct := map[int64]core.Statistics{
		1: figures(10, 5, 1),
		2: figures(100, 50, 2),
		3: figures(100, 50, 2),
	}
	return nodes, direct
}

func TestApply_AggregateRollsUp(t *testing.T) {
	nodes, direct := family()
	tr := tree.BuildTree(nodes, core.VirtualRootID, nil)

	Apply(tr, direct, core.StatisticsMode{Aggregate: true})

	root := tr.Root
	assert.Equal(t, int64(210), root.Display.Income.Cents)
	assert.Equal(t, int64(105), root.Display.Expenses.Cents)
	assert.Equal(t, int64(105), root.Display.Total.Cents)
	assert.Equal(t, int64(5), root.Display.TransactionsCount)
	assert.Equal(t, 2, root.SubBommelsCount)
	assert.Equal(t, direct[1], root.Node.Stats, "own figures are kept on the node")
}

func TestApply_OwnFiguresOnly(t *testing.T) {
	nodes, direct := family()
	tr := tree.BuildTree(nodes, core.VirtualRootID, nil)

	Apply(tr, direct, core.StatisticsMode{})

	assert.Equal(t, direct[1], tr.Root.Display)
	for _, c := range tr.Root.Children {
		assert.Equal(t, direct[c.Node.ID], c.Display)
		assert.Equal(t, 0, c.SubBommelsCount)
	}
	assert.Equal(t, 2, tr.Root.SubBommelsCount, "child count is independent of mode")
}

func TestApply_VirtualWrapperHasNoOwnFigures(t *testing.T) {
	nodes := []core.Node{
		{ID: 2, ParentID: 0, Label: "Marketing"},
		{ID: 3, ParentID: 0, Label: "Sales"},
	}
	// A stray entry for the wrapper id must not leak into it.
	direct := map[int64]core.Statistics{0: figures(999, 0, 9), 2: figures(100, 0, 1), 3: figures(0, 40, 1)}
	tr := tree.BuildTree(nodes, core.VirtualRootID, &core.Node{ID: 7, Label: "Org"})

	Apply(tr, direct, core.StatisticsMode{Aggregate: true})
	require.True(t, tr.Root.Virtual)
	assert.Equal(t, figures(100, 40, 2), tr.Root.Display)

	Apply(tr, direct, core.StatisticsMode{})
	assert.True(t, tr.Root.Display.IsZero())
}

func TestApply_MissingFiguresAreZero(t *testing.T) {
	nodes, _ := family()
	tr := tree.BuildTree(nodes, core.VirtualRootID, nil)

	Apply(tr, nil, core.StatisticsMode{Aggregate: true})

	assert.True(t, tr.Root.Display.IsZero())
	Apply(nil, nil, core.StatisticsMode{})
}

func TestCumulative(t *testing.T) {
	nodes, direct := family()
	s := tree.NewStore(nodes)

	assert.Equal(t, figures(210, 105, 5), Cumulative(s, direct, 1))
	assert.Equal(t, direct[2], Cumulative(s, direct, 2))
}

func TestFiguresFromWire(t *testing.T) {
	got, err := FiguresFromWire(map[string]core.Statistics{"1": figures(1, 0, 1), "42": figures(0, 3, 1)})
	require.NoError(t, err)
	assert.Equal(t, figures(0, 3, 1), got[42])

	_, err = FiguresFromWire(map[string]core.Statistics{"abc": {}})
	assert.Error(t, err)

	back := FiguresToWire(got)
	assert.Len(t, back, 2)
	assert.Equal(t, figures(1, 0, 1), back["1"])
}

func TestProperty_RootAggregateEqualsSumOfAll(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "size")
		nodes := make([]core.Node, 0, n)
		direct := make(map[int64]core.Statistics, n)
		var sum core.Statistics
		for i := 1; i <= n; i++ {
			parent := int64(0)
			if i > 1 {
				parent = int64(rapid.IntRange(1, i-1).Draw(t, "parent"))
			}
			nodes = append(nodes, core.Node{ID: int64(i), ParentID: parent})
			f := figures(
				rapid.Int64Range(0, 100000).Draw(t, "income"),
				rapid.Int64Range(0, 100000).Draw(t, "expenses"),
				rapid.Int64Range(0, 20).Draw(t, "count"),
			)
			direct[int64(i)] = f
			sum = sum.Add(f)
		}

		tr := tree.BuildTree(nodes, core.VirtualRootID, nil)
		Apply(tr, direct, core.StatisticsMode{Aggregate: true})

		if tr.Root.Display != sum {
			t.Fatalf("root shows %+v, want %+v", tr.Root.Display, sum)
		}
		tr.Walk(func(b *tree.Branch, _ int) {
			var kids core.Statistics
			for _, c := range b.Children {
				kids = kids.Add(c.Display)
			}
			if want := direct[b.Node.ID].Add(kids); b.Display != want {
				t.Fatalf("node %d shows %+v, want %+v", b.Node.ID, b.Display, want)
			}
		})
	})
}
