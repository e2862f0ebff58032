package storage

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"bommel/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "bommel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// fixture builds root(1) -> Marketing(2) -> Events(3), root -> Sales(4).
func fixture(t *testing.T, repo *SQLiteRepository) (root, marketing, events, sales core.Node) {
	t.Helper()
	ctx := context.Background()
	var err error
	root, err = repo.CreateNodeInOrganization(ctx, 1, "ACME", "🏢", true)
	require.NoError(t, err)
	marketing, err = repo.CreateNode(ctx, root.ID, "Marketing", "")
	require.NoError(t, err)
	events, err = repo.CreateNode(ctx, marketing.ID, "Events", "")
	require.NoError(t, err)
	sales, err = repo.CreateNode(ctx, root.ID, "Sales", "")
	require.NoError(t, err)
	return
}

func book(t *testing.T, repo *SQLiteRepository, bommelID, cents int64, draft bool) {
	t.Helper()
	_, err := repo.RecordTransaction(context.Background(), core.Transaction{
		BommelID: bommelID,
		Amount:   core.Money{Cents: cents},
		Draft:    draft,
	})
	require.NoError(t, err)
}

func TestSQLiteRepository_CreateAndList(t *testing.T) {
	repo := newRepo(t)
	root, marketing, events, _ := fixture(t, repo)

	nodes, err := repo.ListNodes(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	assert.True(t, nodes[0].IsRoot)
	assert.Equal(t, root.ID, nodes[1].ParentID)
	assert.Equal(t, marketing.ID, events.ParentID)
	assert.Equal(t, int64(1), events.OrganizationID)

	_, err = repo.CreateNode(context.Background(), 999, "x", "")
	assert.ErrorIs(t, err, core.ErrNodeNotFound)

	_, err = repo.CreateNode(context.Background(), root.ID, "   ", "")
	assert.ErrorIs(t, err, core.ErrEmptyLabel)
}

func TestSQLiteRepository_UpdateNode(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	root, marketing, events, _ := fixture(t, repo)

	got, err := repo.UpdateNode(ctx, marketing.ID, " Brand ", "✨", marketing.ParentID)
	require.NoError(t, err)
	assert.Equal(t, "Brand", got.Label)
	assert.Equal(t, "✨", got.Emoji)

	_, err = repo.UpdateNode(ctx, root.ID, "Other", "", 0)
	assert.ErrorIs(t, err, core.ErrRootImmutable)

	_, err = repo.UpdateNode(ctx, marketing.ID, "Brand", "", events.ID)
	assert.ErrorIs(t, err, core.ErrIllegalTarget)
}

func TestSQLiteRepository_MoveNode(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	root, marketing, events, sales := fixture(t, repo)

	assert.ErrorIs(t, repo.MoveNode(ctx, marketing.ID, events.ID), core.ErrIllegalTarget)
	assert.ErrorIs(t, repo.MoveNode(ctx, marketing.ID, marketing.ID), core.ErrIllegalTarget)
	assert.ErrorIs(t, repo.MoveNode(ctx, root.ID, sales.ID), core.ErrRootImmutable)
	assert.ErrorIs(t, repo.MoveNode(ctx, 999, sales.ID), core.ErrNodeNotFound)

	require.NoError(t, repo.MoveNode(ctx, events.ID, sales.ID))
	nodes, err := repo.ListNodes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, sales.ID, nodes[2].ParentID)
}

func TestSQLiteRepository_DeleteNode(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	root, marketing, events, _ := fixture(t, repo)
	book(t, repo, marketing.ID, -500, false)

	err := repo.DeleteNode(ctx, marketing.ID, core.HandlingNone)
	assert.ErrorIs(t, err, core.ErrTransactionHandlingRequired)

	err = repo.DeleteNode(ctx, marketing.ID, core.HandlingReassign)
	assert.ErrorIs(t, err, core.ErrHandlingUnavailable)

	require.NoError(t, repo.DeleteNode(ctx, marketing.ID, core.HandlingUnlink))

	nodes, err := repo.ListNodes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for _, n := range nodes {
		if n.ID == events.ID {
			assert.Equal(t, root.ID, n.ParentID)
		}
	}
	assert.ErrorIs(t, repo.DeleteNode(ctx, root.ID, core.HandlingUnlink), core.ErrRootImmutable)
}

func TestSQLiteRepository_Statistics(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	root, marketing, _, sales := fixture(t, repo)
	book(t, repo, root.ID, 10, false)
	book(t, repo, root.ID, -5, false)
	book(t, repo, marketing.ID, 100, false)
	book(t, repo, marketing.ID, -50, false)
	book(t, repo, sales.ID, 100, false)
	book(t, repo, sales.ID, -50, false)
	book(t, repo, sales.ID, -1000, true)

	direct, err := repo.GetStatistics(ctx, 1, core.StatisticsMode{})
	require.NoError(t, err)
	assert.Len(t, direct, 4)
	assert.Equal(t, int64(50), direct[idKey(sales.ID)].Expenses.Cents)
	assert.Equal(t, int64(50), direct[idKey(sales.ID)].Total.Cents)

	agg, err := repo.GetStatistics(ctx, 1, core.StatisticsMode{Aggregate: true})
	require.NoError(t, err)
	rootStats := agg[idKey(root.ID)]
	assert.Equal(t, int64(210), rootStats.Income.Cents)
	assert.Equal(t, int64(105), rootStats.Expenses.Cents)
	assert.Equal(t, int64(6), rootStats.TransactionsCount)

	drafts, err := repo.GetStatistics(ctx, 1, core.StatisticsMode{IncludeDrafts: true, Aggregate: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1105), drafts[idKey(root.ID)].Expenses.Cents)
	assert.Equal(t, int64(7), drafts[idKey(root.ID)].TransactionsCount)
}

func TestSQLiteRepository_RootRecordAndImport(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.EnsureOrganization(ctx, 2, "Beta", "β"))
	rec, err := repo.RootRecord(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Beta", rec.Label)
	assert.True(t, rec.IsRoot)

	// Children listed before their parent must still import.
	nodes := []core.Node{
		{ID: 30, ParentID: 20, Label: "Leaf"},
		{ID: 10, ParentID: 0, Label: "Beta", IsRoot: true},
		{ID: 20, ParentID: 10, Label: "Branch"},
	}
	txs := []core.Transaction{
		{BommelID: 30, Amount: core.Money{Cents: 42}},
		{BommelID: 0, Amount: core.Money{Cents: -1}},
	}
	require.NoError(t, repo.Import(ctx, 2, nodes, txs))

	n, err := repo.CountNodes(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	agg, err := repo.GetStatistics(ctx, 2, core.StatisticsMode{Aggregate: true})
	require.NoError(t, err)
	var rootIncome int64
	listed, _ := repo.ListNodes(ctx, 2)
	for _, l := range listed {
		if l.IsRoot {
			rootIncome = agg[idKey(l.ID)].Income.Cents
		}
	}
	assert.Equal(t, int64(42), rootIncome)

	err = repo.Import(ctx, 3, []core.Node{{ID: 1, ParentID: 99, Label: "Orphan"}}, nil)
	assert.Error(t, err)
}

func TestRollbackMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bommel.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	repo.Close()

	require.NoError(t, RollbackMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
