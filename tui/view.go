package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/openclaw/mission-control/board"
	"github.com/openclaw/mission-control/store"
)

const minColumnWidth = 24

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	content := m.viewBoard()
	if m.popup != popupNone {
		content = m.overlayPopup(content)
	}
	return content
}

func (m Model) viewBoard() string {
	var b strings.Builder

	header := m.styles.title.Render("mission control")
	header += m.styles.dim.Render(fmt.Sprintf(" · by %s · %d tasks", m.board.Mode(), len(m.board.Tasks())))
	if m.loading {
		header += m.styles.dim.Render(" · loading")
	} else if s := m.board.State(); s != board.Idle {
		header += m.styles.dim.Render(" · " + s.String())
	}
	b.WriteString(header + "\n\n")

	cols := m.board.Columns()
	width := minColumnWidth
	if m.width > 0 && len(cols) > 0 {
		width = max(minColumnWidth, m.width/len(cols)-4)
	}

	dragID, dragging := m.board.Dragging()
	hovered, hovering := m.board.Hovered()

	rendered := make([]string, len(cols))
	for i, col := range cols {
		var c strings.Builder
		c.WriteString(m.styles.colTitle.Render(fmt.Sprintf("%s (%d)", col.Title, len(col.Tasks))) + "\n")
		for row, t := range col.Tasks {
			c.WriteString(m.renderCard(t, width, i == m.cursorCol && row == m.cursorRow && !dragging, dragging && t.ID == dragID))
			c.WriteString("\n")
		}
		style := m.styles.column
		if hovering && hovered.Equal(col.Target) {
			style = m.styles.dropCol
		}
		rendered[i] = style.Width(width).Render(c.String())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n")

	if t, ok := m.board.Toasts.Latest(); ok {
		b.WriteString(m.styles.toast[string(t.Kind)].Render(t.Message) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderCard(t *store.Task, width int, selected, dragged bool) string {
	cursor := "  "
	style := m.styles.card
	switch {
	case dragged:
		cursor = "⇄ "
		style = m.styles.dragged
	case selected:
		cursor = "▸ "
		style = m.styles.selected
	}
	dot := m.styles.priority[string(t.Priority)].Render("●")
	line := cursor + dot + " " + style.Render(truncate(t.Title, width-6))
	if t.DueDate != "" {
		line += "\n    " + m.styles.dim.Render("due "+t.DueDate)
	}
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (m Model) overlayPopup(bg string) string {
	var popup string
	switch m.popup {
	case popupCreate:
		popup = m.viewCreatePopup()
	case popupConfirmDelete:
		popup = m.viewDeletePopup()
	default:
		return bg
	}
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			popup,
			lipgloss.WithWhitespaceChars(" "),
		)
	}
	return popup
}

func (m Model) viewCreatePopup() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("New Task") + "\n\n")
	b.WriteString("Title:\n")
	b.WriteString(m.titleInput.View() + "\n\n")
	b.WriteString(m.styles.footKey.Render("enter") + m.styles.footDesc.Render(" create  ") +
		m.styles.footKey.Render("esc") + m.styles.footDesc.Render(" cancel"))
	return m.styles.popup.Render(b.String())
}

func (m Model) viewDeletePopup() string {
	var b strings.Builder
	b.WriteString(m.styles.toast["error"].Render("Delete Task") + "\n\n")
	if m.deleteTarget != nil {
		b.WriteString(fmt.Sprintf("#%d %s\n\n", m.deleteTarget.ID, m.deleteTarget.Title))
	}
	b.WriteString(m.styles.footKey.Render("y") + m.styles.footDesc.Render(" confirm  ") +
		m.styles.footKey.Render("n") + m.styles.footDesc.Render(" cancel"))
	return m.styles.popup.Render(b.String())
}
