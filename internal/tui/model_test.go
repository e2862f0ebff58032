package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bommel/internal/core"
	"bommel/internal/drag"
	"bommel/internal/memory"
	"bommel/internal/services"
)

// Rows render at y=2 ACME(1), y=3 Marketing(2), y=4 Ads(3), y=5 Sales(4).
func newModel(t *testing.T) (*Model, *memory.Store) {
	t.Helper()
	var seed memory.Seed
	seed.Organization.ID = 1
	seed.Organization.Name = "ACME"
	seed.Bommels = []memory.SeedBommel{{
		Label: "ACME",
		Root:  true,
		Children: []memory.SeedBommel{
			{Label: "Marketing", Children: []memory.SeedBommel{{
				Label:        "Ads",
				Transactions: []memory.SeedTransaction{{Amount: "-3,00"}},
			}}},
			{Label: "Sales"},
		},
	}}
	store, err := memory.NewFromSeed(seed)
	require.NoError(t, err)

	coord := services.NewCoordinator(store, 1, core.StatisticsMode{Aggregate: true}, nil)
	m := New(coord, nil)
	run(t, m, m.Init())
	return m, store
}

// run executes cmd synchronously and feeds its message back, the way the
// bubbletea runtime would.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func send(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	_, cmd := m.Update(msg)
	run(t, m, cmd)
}

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func parentOf(t *testing.T, store *memory.Store, id int64) int64 {
	t.Helper()
	nodes, err := store.ListNodes(context.Background(), 1)
	require.NoError(t, err)
	for _, n := range nodes {
		if n.ID == id {
			return n.ParentID
		}
	}
	t.Fatalf("bommel %d not found", id)
	return 0
}

func TestModel_InitRendersTree(t *testing.T) {
	m, _ := newModel(t)

	require.Len(t, m.rows, 4)
	assert.Equal(t, "Ads", m.rows[2].label)
	assert.Equal(t, 2, m.rows[2].depth)
	assert.Equal(t, int64(300), m.rows[0].figures.Expenses.Cents, "root aggregates")

	view := m.View()
	assert.Contains(t, view, "Marketing")
	assert.Contains(t, view, "[x] aggregate")
}

func TestModel_DragCommitsMove(t *testing.T) {
	m, store := newModel(t)

	send(t, m, mouse(tea.MouseActionPress, 4, 4))
	assert.Equal(t, drag.Pending, m.drag.State())

	send(t, m, mouse(tea.MouseActionMotion, 4, 5))
	assert.Equal(t, drag.Pending, m.drag.State(), "below threshold")

	send(t, m, mouse(tea.MouseActionMotion, 10, 5))
	require.Equal(t, drag.Dragging, m.drag.State())
	hover, ok := m.drag.HoverTarget()
	require.True(t, ok)
	assert.Equal(t, int64(4), hover)

	send(t, m, mouse(tea.MouseActionRelease, 10, 5))
	assert.Equal(t, drag.Idle, m.drag.State())
	assert.Equal(t, int64(4), parentOf(t, store, 3))
	assert.False(t, m.statusErr, m.status)
	assert.Equal(t, "Sales", m.rows[2].label, "rows rebuilt after the move")
}

func TestModel_InvalidDropDoesNothing(t *testing.T) {
	m, store := newModel(t)

	// Marketing onto its own child Ads.
	send(t, m, mouse(tea.MouseActionPress, 4, 3))
	send(t, m, mouse(tea.MouseActionMotion, 10, 4))
	require.Equal(t, drag.Dragging, m.drag.State())
	_, hovering := m.drag.HoverTarget()
	assert.False(t, hovering)
	assert.True(t, m.drag.IsInvalidTarget(3))

	send(t, m, mouse(tea.MouseActionRelease, 10, 4))
	assert.Equal(t, int64(1), parentOf(t, store, 2))
	assert.Empty(t, m.status)
}

func TestModel_ClickSelectsWithoutMoving(t *testing.T) {
	m, store := newModel(t)

	send(t, m, mouse(tea.MouseActionPress, 4, 5))
	send(t, m, mouse(tea.MouseActionRelease, 4, 5))
	assert.Equal(t, 3, m.cursor)
	assert.Equal(t, drag.Idle, m.drag.State())
	assert.Equal(t, int64(1), parentOf(t, store, 4))

	// The root row selects but never starts a gesture.
	send(t, m, mouse(tea.MouseActionPress, 4, 2))
	assert.Equal(t, drag.Idle, m.drag.State())
	assert.Equal(t, 0, m.cursor)
}

func TestModel_EscCancelsDrag(t *testing.T) {
	m, store := newModel(t)

	send(t, m, mouse(tea.MouseActionPress, 4, 4))
	send(t, m, mouse(tea.MouseActionMotion, 10, 5))
	require.Equal(t, drag.Dragging, m.drag.State())

	send(t, m, key("esc"))
	assert.Equal(t, drag.Idle, m.drag.State())
	assert.Equal(t, "Move cancelled", m.status)

	send(t, m, mouse(tea.MouseActionRelease, 10, 5))
	assert.Equal(t, int64(2), parentOf(t, store, 3))
}

func TestModel_ModeToggles(t *testing.T) {
	m, _ := newModel(t)

	send(t, m, key("a"))
	assert.False(t, m.coord.Mode().Aggregate)
	assert.Equal(t, int64(0), m.rows[0].figures.Expenses.Cents, "root has no own figures")

	send(t, m, key("d"))
	assert.True(t, m.coord.Mode().IncludeDrafts)
	assert.Contains(t, m.View(), "[x] drafts")
}

func TestModel_NewCreatesUnderSelection(t *testing.T) {
	m, store := newModel(t)

	send(t, m, key("j"))
	send(t, m, key("n"))
	require.Len(t, m.rows, 5)
	nodes, err := store.ListNodes(context.Background(), 1)
	require.NoError(t, err)
	created := nodes[len(nodes)-1]
	assert.Equal(t, core.DefaultLabel, created.Label)
	assert.Equal(t, int64(2), created.ParentID)
	assert.Contains(t, m.status, "create")
}
