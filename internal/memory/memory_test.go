package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bommel/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
organization: {id: 7, name: ACME, emoji: "🏢"}
bommels:
  - label: ACME
    root: true
    transactions:
      - {amount: "0,10", description: root}
    children:
      - label: Marketing
        transactions:
          - {amount: "1,00"}
          - {amount: "-0,50"}
          - {amount: "-9,99", draft: true}
        children:
          - label: Events
      - label: Sales
        transactions:
          - {amount: "1,00"}
          - {amount: "-0,50"}
`

func seeded(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))
	s, err := NewFromFile(path, 1)
	require.NoError(t, err)
	return s
}

func TestNewFromFile_Seeds(t *testing.T) {
	s := seeded(t)
	nodes, err := s.ListNodes(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	assert.True(t, nodes[0].IsRoot)
	assert.Equal(t, core.VirtualRootID, nodes[0].ParentID)
	assert.Equal(t, "Events", nodes[2].Label)
	assert.Equal(t, nodes[1].ID, nodes[2].ParentID)
	assert.Len(t, s.Transactions(), 6)

	other, err := s.ListNodes(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestNewFromFile_MissingFile(t *testing.T) {
	s, err := NewFromFile(filepath.Join(t.TempDir(), "nope.yaml"), 3)
	require.NoError(t, err)

	rec, err := s.RootRecord(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.OrganizationID)
}

func TestNewFromFile_BadAmount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bommels:\n  - label: A\n    transactions: [{amount: abc}]\n"), 0o644))

	_, err := NewFromFile(path, 1)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestGetStatistics(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	direct, err := s.GetStatistics(ctx, 7, core.StatisticsMode{})
	require.NoError(t, err)
	assert.Equal(t, int64(100), direct["2"].Income.Cents)
	assert.Equal(t, int64(50), direct["2"].Expenses.Cents)
	assert.Equal(t, int64(2), direct["2"].TransactionsCount)
	assert.True(t, direct["3"].IsZero())

	drafts, err := s.GetStatistics(ctx, 7, core.StatisticsMode{IncludeDrafts: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1049), drafts["2"].Expenses.Cents)
	assert.Equal(t, int64(3), drafts["2"].TransactionsCount)

	agg, err := s.GetStatistics(ctx, 7, core.StatisticsMode{Aggregate: true})
	require.NoError(t, err)
	assert.Equal(t, int64(210), agg["1"].Income.Cents)
	assert.Equal(t, int64(100), agg["1"].Expenses.Cents)
	assert.Equal(t, int64(5), agg["1"].TransactionsCount)
}

func TestCreateAndUpdate(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	n, err := s.CreateNode(ctx, 3, core.DefaultLabel, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n.OrganizationID)
	assert.Equal(t, int64(3), n.ParentID)

	_, err = s.CreateNode(ctx, 99, "x", "")
	assert.ErrorIs(t, err, core.ErrNodeNotFound)

	u, err := s.UpdateNode(ctx, n.ID, "  Booth  ", "🎟", n.ParentID)
	require.NoError(t, err)
	assert.Equal(t, "Booth", u.Label)

	_, err = s.UpdateNode(ctx, 1, "Root", "", 0)
	assert.ErrorIs(t, err, core.ErrRootImmutable)

	_, err = s.UpdateNode(ctx, n.ID, "", "", n.ParentID)
	assert.ErrorIs(t, err, core.ErrEmptyLabel)
}

func TestMoveNode_RejectsCycles(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.MoveNode(ctx, 2, 3), core.ErrIllegalTarget)
	assert.ErrorIs(t, s.MoveNode(ctx, 2, 2), core.ErrIllegalTarget)
	assert.ErrorIs(t, s.MoveNode(ctx, 1, 4), core.ErrRootImmutable)
	assert.ErrorIs(t, s.MoveNode(ctx, 2, 42), core.ErrNodeNotFound)

	require.NoError(t, s.MoveNode(ctx, 3, 4))
	nodes, _ := s.ListNodes(ctx, 7)
	assert.Equal(t, int64(4), nodes[2].ParentID)
}

func TestDeleteNode(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	err := s.DeleteNode(ctx, 2, core.HandlingNone)
	assert.ErrorIs(t, err, core.ErrTransactionHandlingRequired)

	err = s.DeleteNode(ctx, 2, core.HandlingReassign)
	assert.ErrorIs(t, err, core.ErrHandlingUnavailable)

	require.NoError(t, s.DeleteNode(ctx, 2, core.HandlingUnlink))
	nodes, _ := s.ListNodes(ctx, 7)
	require.Len(t, nodes, 3)
	for _, n := range nodes {
		if n.Label == "Events" {
			assert.Equal(t, int64(1), n.ParentID, "children move up to the deleted node's parent")
		}
	}
	unlinked := 0
	for _, tx := range s.Transactions() {
		if tx.BommelID == 0 {
			unlinked++
		}
	}
	assert.Equal(t, 3, unlinked)

	assert.ErrorIs(t, s.DeleteNode(ctx, 1, core.HandlingUnlink), core.ErrRootImmutable)
	assert.ErrorIs(t, s.DeleteNode(ctx, 2, core.HandlingUnlink), core.ErrNodeNotFound)
}

func TestRecordTransaction(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	tx, err := s.RecordTransaction(ctx, core.Transaction{BommelID: 4, Amount: core.Money{Cents: -300}})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)

	_, err = s.RecordTransaction(ctx, core.Transaction{BommelID: 4})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = s.RecordTransaction(ctx, core.Transaction{BommelID: 99, Amount: core.Money{Cents: 1}})
	assert.ErrorIs(t, err, core.ErrNodeNotFound)
}
