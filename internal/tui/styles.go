package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("#8ec07c")
	colorRed    = lipgloss.Color("#fb4934")
	colorYellow = lipgloss.Color("#fabd2f")
	colorDim    = lipgloss.Color("#928374")
	colorFg     = lipgloss.Color("#ebdbb2")
	colorHeader = lipgloss.Color("#fe8019")
)

var (
	styleHeader   = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleRow      = lipgloss.NewStyle().Foreground(colorFg)
	styleSelected = lipgloss.NewStyle().Foreground(colorFg).Bold(true)
	styleVirtual  = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	styleDragged  = lipgloss.NewStyle().Foreground(colorYellow)
	styleInvalid  = lipgloss.NewStyle().Foreground(colorDim).Faint(true)
	styleHover    = lipgloss.NewStyle().Foreground(colorGreen).Bold(true).Underline(true)
	styleIncome   = lipgloss.NewStyle().Foreground(colorGreen)
	styleExpense  = lipgloss.NewStyle().Foreground(colorRed)
	styleDim      = lipgloss.NewStyle().Foreground(colorDim)
	styleError    = lipgloss.NewStyle().Foreground(colorRed)
	styleOn       = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
)
