package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/openclaw/mission-control/prefs"
)

// Theme is a color scheme for the board.
type Theme struct {
	Name string

	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color
	Highlight     lipgloss.Color
	Border        lipgloss.Color
	DropTarget    lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color
}

// Dark is the default theme.
var Dark = Theme{
	Name:          prefs.ThemeDark,
	Foreground:    lipgloss.Color("#DDDDDD"),
	ForegroundDim: lipgloss.Color("#666666"),
	Highlight:     lipgloss.Color("#2DD4BF"),
	Border:        lipgloss.Color("#3B4261"),
	DropTarget:    lipgloss.Color("#60A5FA"),
	Success:       lipgloss.Color("#73F59F"),
	Warning:       lipgloss.Color("#F59E0B"),
	Error:         lipgloss.Color("#F87171"),
	Info:          lipgloss.Color("#22D3EE"),
}

// Light suits light terminal backgrounds.
var Light = Theme{
	Name:          prefs.ThemeLight,
	Foreground:    lipgloss.Color("#333333"),
	ForegroundDim: lipgloss.Color("#999999"),
	Highlight:     lipgloss.Color("#0F766E"),
	Border:        lipgloss.Color("#CCCCCC"),
	DropTarget:    lipgloss.Color("#1D4ED8"),
	Success:       lipgloss.Color("#43BF6D"),
	Warning:       lipgloss.Color("#B45309"),
	Error:         lipgloss.Color("#B91C1C"),
	Info:          lipgloss.Color("#0E7490"),
}

func themeFor(mode string) Theme {
	if mode == prefs.ThemeLight {
		return Light
	}
	return Dark
}

type styles struct {
	title    lipgloss.Style
	dim      lipgloss.Style
	column   lipgloss.Style
	colTitle lipgloss.Style
	card     lipgloss.Style
	selected lipgloss.Style
	dragged  lipgloss.Style
	dropCol  lipgloss.Style
	popup    lipgloss.Style
	footKey  lipgloss.Style
	footDesc lipgloss.Style
	toast    map[string]lipgloss.Style
	priority map[string]lipgloss.Style
}

func newStyles(t Theme) styles {
	column := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(t.Highlight),
		dim:      lipgloss.NewStyle().Foreground(t.ForegroundDim),
		column:   column,
		colTitle: lipgloss.NewStyle().Bold(true).Foreground(t.Foreground),
		card:     lipgloss.NewStyle().Foreground(t.Foreground),
		selected: lipgloss.NewStyle().Bold(true).Foreground(t.Highlight),
		dragged:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		dropCol:  column.BorderForeground(t.DropTarget),
		popup: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Highlight).
			Padding(1, 2).
			Width(60),
		footKey:  lipgloss.NewStyle().Bold(true).Foreground(t.Highlight),
		footDesc: lipgloss.NewStyle().Foreground(t.ForegroundDim),
		toast: map[string]lipgloss.Style{
			"success": lipgloss.NewStyle().Bold(true).Foreground(t.Success),
			"error":   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
			"info":    lipgloss.NewStyle().Foreground(t.Info),
		},
		priority: map[string]lipgloss.Style{
			"high":   lipgloss.NewStyle().Foreground(t.Error),
			"medium": lipgloss.NewStyle().Foreground(t.Warning),
			"low":    lipgloss.NewStyle().Foreground(t.ForegroundDim),
		},
	}
}
