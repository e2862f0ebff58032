package backend

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"bommel/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = `
organization: {id: 1, name: ACME}
bommels:
  - label: ACME
    root: true
    children:
      - label: Marketing
        transactions: [{amount: "-5,00"}]
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))
	return path
}

func TestFactory_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:           MemoryBackend,
		OrganizationID: 1,
		SeedFile:       writeSeed(t),
	})
	require.NoError(t, err)
	defer res.Close()

	nodes, err := res.Backend.ListNodes(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
	assert.Nil(t, res.Ping)
}

func TestFactory_SQLiteSeedsOnce(t *testing.T) {
	cfg := Config{
		Type:           SQLiteBackend,
		OrganizationID: 1,
		SQLiteDBPath:   filepath.Join(t.TempDir(), "bommel.db"),
		SeedFile:       writeSeed(t),
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := NewFactory(nil).CreateBackend(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, res.Ping(ctx))

		nodes, err := res.Backend.ListNodes(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, nodes, 2, "run %d", i)

		stats, err := res.Backend.GetStatistics(ctx, 1, core.StatisticsMode{Aggregate: true})
		require.NoError(t, err)
		var rootExpenses int64
		for _, n := range nodes {
			if n.IsRoot {
				rootExpenses = stats[itoa(n.ID)].Expenses.Cents
			}
		}
		assert.Equal(t, int64(500), rootExpenses)
		require.NoError(t, res.Close())
	}
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{Type: "sheets", OrganizationID: 1}.Validate())
	assert.Error(t, Config{Type: SQLiteBackend, OrganizationID: 1}.Validate())
	assert.Error(t, Config{Type: MemoryBackend}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend, OrganizationID: 1}.Validate())
	assert.Equal(t, []string{"sqlite", "memory"}, GetBackendTypeStrings())
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
