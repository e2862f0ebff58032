// Package tui renders the Bommel tree in the terminal and lets the user
// reorganize it by dragging rows with the mouse.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"bommel/internal/core"
	"bommel/internal/drag"
	"bommel/internal/log"
	"bommel/internal/services"
	"bommel/internal/tree"
)

// headerLines is the number of rows above the first tree row.
const headerLines = 2

const opTimeout = 10 * time.Second

type (
	// loadedMsg reports a finished reload or mode switch.
	loadedMsg struct{ err error }

	// mutatedMsg reports a finished mutation.
	mutatedMsg struct {
		op  string
		id  int64
		err error
	}
)

type row struct {
	id      int64
	depth   int
	label   string
	emoji   string
	figures core.Statistics
	virtual bool
	root    bool
}

// Model is the bubbletea model of the tree screen.
type Model struct {
	coord  *services.Coordinator
	drag   *drag.Controller
	logger *log.Logger

	rows    []row
	cursor  int
	pointer int64 // row id under the pointer while dragging, -1 for none
	loading bool

	status    string
	statusErr bool
	width     int
	quitting  bool
}

func New(coord *services.Coordinator, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Discard()
	}
	m := &Model{
		coord:   coord,
		drag:    drag.NewController(coord.Store()),
		logger:  logger.WithComponent(log.ComponentTUI),
		pointer: -1,
		loading: true,
	}
	dragLog := logger.WithComponent(log.ComponentDrag)
	m.drag.OnTransition = func(from, to drag.State) {
		id, _ := m.drag.DraggedNodeID()
		dragLog.Debug("Drag transition", "from", from, "to", to, log.FieldBommelID, id)
	}
	return m
}

// Run starts the program with cell-motion mouse reporting, which delivers
// motion events while a button is held.
func Run(ctx context.Context, coord *services.Coordinator, logger *log.Logger) error {
	p := tea.NewProgram(New(coord, logger), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.reload()
}

func (m *Model) reload() tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return loadedMsg{err: coord.Reload(ctx)}
	}
}

func (m *Model) setMode(mode core.StatisticsMode) tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return loadedMsg{err: coord.SetMode(ctx, mode)}
	}
}

func (m *Model) mutate(op string, id int64, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return mutatedMsg{op: op, id: id, err: fn(ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.setStatus(true, "Load failed: %v", msg.err)
			return m, nil
		}
		m.refresh()
		if snap := m.coord.Snapshot(); snap.Integrity != nil {
			m.setStatus(true, "Hidden corrupt bommels %v", snap.Tree.Omitted)
		}
		return m, nil

	case mutatedMsg:
		if msg.err != nil {
			m.logger.Warn("Mutation failed", log.FieldOperation, msg.op, log.FieldBommelID, msg.id, log.FieldError, msg.err)
			m.setStatus(true, "%s failed: %v", msg.op, msg.err)
		} else {
			m.setStatus(false, "%s #%d done", msg.op, msg.id)
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		if m.drag.State() != drag.Idle {
			m.drag.Cancel()
			m.pointer = -1
			m.setStatus(false, "Move cancelled")
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "r":
		m.loading = true
		return m, m.reload()
	case "d":
		mode := m.coord.Mode()
		mode.IncludeDrafts = !mode.IncludeDrafts
		return m, m.setMode(mode)
	case "a":
		mode := m.coord.Mode()
		mode.Aggregate = !mode.Aggregate
		return m, m.setMode(mode)
	case "n":
		parent := core.VirtualRootID
		if r, ok := m.selected(); ok && !r.virtual {
			parent = r.id
		}
		coord := m.coord
		return m, m.mutate("create", parent, func(ctx context.Context) error {
			_, err := coord.Create(ctx, parent)
			return err
		})
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	x, y := float64(msg.X), float64(msg.Y)
	r, onRow := m.rowAt(msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		if onRow {
			m.cursor = msg.Y - headerLines
			if !r.virtual {
				m.drag.PointerDown(r.id, x, y)
			}
		}
		return nil

	case tea.MouseActionMotion:
		m.drag.PointerMove(x, y)
		if m.drag.State() != drag.Dragging {
			return nil
		}
		next := int64(-1)
		if onRow && !r.virtual {
			next = r.id
		}
		if next != m.pointer {
			if m.pointer >= 0 {
				m.drag.Leave(m.pointer)
			}
			if next >= 0 {
				m.drag.Enter(next)
			}
			m.pointer = next
		}
		return nil

	case tea.MouseActionRelease:
		m.pointer = -1
		mv, ok := m.drag.PointerUp()
		if !ok {
			return nil
		}
		coord := m.coord
		return m.mutate("move", mv.DraggedNodeID, func(ctx context.Context) error {
			return coord.Move(ctx, mv.DraggedNodeID, mv.DropTargetID)
		})
	}
	return nil
}

// refresh rebuilds rows from the coordinator's current snapshot.
func (m *Model) refresh() {
	snap := m.coord.Snapshot()
	m.drag.SetTargets(snap.Store)
	m.rows = m.rows[:0]
	snap.Tree.Walk(func(b *tree.Branch, depth int) {
		m.rows = append(m.rows, row{
			id:      b.Node.ID,
			depth:   depth,
			label:   b.Node.Label,
			emoji:   b.Node.Emoji,
			figures: b.Display,
			virtual: b.Virtual,
			root:    b.Node.IsRoot,
		})
	})
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m *Model) rowAt(y int) (row, bool) {
	i := y - headerLines
	if i < 0 || i >= len(m.rows) {
		return row{}, false
	}
	return m.rows[i], true
}

func (m *Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) setStatus(isErr bool, format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = isErr
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	mode := m.coord.Mode()
	b.WriteString(styleHeader.Render("Bommels"))
	b.WriteString("  ")
	b.WriteString(toggle("drafts", mode.IncludeDrafts))
	b.WriteString(" ")
	b.WriteString(toggle("aggregate", mode.Aggregate))
	b.WriteString("\n\n")

	if m.loading && len(m.rows) == 0 {
		b.WriteString(styleDim.Render("Loading..."))
		b.WriteString("\n")
	}

	dragged, dragging := m.drag.DraggedNodeID()
	hover, hovering := m.drag.HoverTarget()
	for i, r := range m.rows {
		line := strings.Repeat("  ", r.depth)
		if r.emoji != "" {
			line += r.emoji + " "
		}
		line += r.label

		style := styleRow
		switch {
		case r.virtual:
			style = styleVirtual
		case dragging && r.id == dragged:
			style = styleDragged
		case hovering && r.id == hover:
			style = styleHover
		case m.drag.IsInvalidTarget(r.id):
			style = styleInvalid
		case i == m.cursor:
			style = styleSelected
		}
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(cursor + style.Render(line) + "  " + figures(r.figures) + "\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		if m.statusErr {
			b.WriteString(styleError.Render(m.status))
		} else {
			b.WriteString(styleDim.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(styleDim.Render("drag to move · esc cancel · n new · d drafts · a aggregate · r reload · q quit"))
	return b.String()
}

func toggle(name string, on bool) string {
	if on {
		return styleOn.Render("[x] " + name)
	}
	return styleDim.Render("[ ] " + name)
}

func figures(s core.Statistics) string {
	return styleIncome.Render("+"+s.Income.String()) + " " +
		styleExpense.Render("-"+s.Expenses.String()) + " " +
		styleDim.Render(fmt.Sprintf("(%d)", s.TransactionsCount))
}
