package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/openclaw/mission-control/board"
	"github.com/openclaw/mission-control/client"
	"github.com/openclaw/mission-control/prefs"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		// Re-rendering on each tick lets expired toasts disappear.
		return m, tickCmd()

	case loadedMsg:
		m.loading = false
		if msg.err == nil && msg.projects != nil {
			m.board.SetProjects(msg.projects)
		}
		m.board.Load(msg.tasks, msg.err)
		m.clampCursor()
		return m, nil

	case movedMsg:
		m.board.Settle(msg.outcome)
		m.loading = true
		return m, m.refresh()

	case createdMsg:
		if msg.err != nil {
			m.board.Toasts.Push(board.KindError, "Failed to create task: "+msg.err.Error())
			return m, nil
		}
		m.board.Toasts.Push(board.KindSuccess, fmt.Sprintf("Created #%d %s", msg.task.ID, msg.task.Title))
		return m, m.refresh()

	case deletedMsg:
		if msg.err != nil {
			m.board.Toasts.Push(board.KindError, "Failed to delete task: "+msg.err.Error())
			return m, nil
		}
		m.board.Toasts.Push(board.KindInfo, fmt.Sprintf("Deleted #%d", msg.id))
		return m, m.refresh()

	case themeMsg:
		m.setTheme(string(msg))
		return m, m.waitTheme()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if _, dragging := m.board.Dragging(); dragging {
		return m.handleDragKey(msg)
	}

	cols := m.board.Columns()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Left):
		m.cursorCol--
		m.clampCursor()
	case key.Matches(msg, m.keys.Right):
		m.cursorCol++
		m.clampCursor()
	case key.Matches(msg, m.keys.Up):
		m.cursorRow--
		m.clampCursor()
	case key.Matches(msg, m.keys.Down):
		m.cursorRow++
		m.clampCursor()

	case key.Matches(msg, m.keys.Pick):
		if t, ok := m.selected(); ok && m.board.BeginDrag(t.ID) {
			m.hoverCol = m.cursorCol
			m.board.Hover(cols[m.hoverCol].Target)
		}

	case key.Matches(msg, m.keys.Mode):
		next := board.ByProject
		if m.board.Mode() == board.ByProject {
			next = board.ByStatus
		}
		m.board.SetMode(next)
		m.cursorCol, m.cursorRow = 0, 0
		m.loading = true
		return m, m.refresh()

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.refresh()

	case key.Matches(msg, m.keys.New):
		m.popup = popupCreate
		m.titleInput.SetValue("")
		m.titleInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok {
			m.deleteTarget = t
			m.popup = popupConfirmDelete
		}

	case key.Matches(msg, m.keys.Theme):
		next := prefs.ThemeLight
		if m.theme.Name == prefs.ThemeLight {
			next = prefs.ThemeDark
		}
		m.setTheme(next)
		if m.prefs != nil {
			if err := m.prefs.Set(prefs.KeyThemeMode, next); err != nil {
				m.board.Toasts.Push(board.KindError, "Failed to save theme: "+err.Error())
			}
		}

	case key.Matches(msg, m.keys.Dismiss):
		if t, ok := m.board.Toasts.Latest(); ok {
			m.board.Toasts.Dismiss(t.ID)
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) handleDragKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.board.Columns()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		m.board.Cancel()

	case key.Matches(msg, m.keys.Left, m.keys.Up):
		m.hoverCol = clamp(m.hoverCol-1, 0, len(cols)-1)
		m.board.Hover(cols[m.hoverCol].Target)
	case key.Matches(msg, m.keys.Right, m.keys.Down):
		m.hoverCol = clamp(m.hoverCol+1, 0, len(cols)-1)
		m.board.Hover(cols[m.hoverCol].Target)

	case key.Matches(msg, m.keys.Drop, m.keys.Pick):
		var target *board.Target
		if tg, ok := m.board.Hovered(); ok {
			target = &tg
		}
		mv, ok := m.board.Drop(target)
		if !ok {
			return m, nil
		}
		m.cursorCol = m.hoverCol
		m.clampCursor()
		return m, m.send(mv)
	}
	return m, nil
}

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupCreate:
		return m.handleCreatePopup(msg)
	case popupConfirmDelete:
		return m.handleDeletePopup(msg)
	}
	return m, nil
}

func (m Model) handleCreatePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		m.titleInput.Blur()
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.titleInput.Value())
		if title == "" {
			m.board.Toasts.Push(board.KindError, "Title cannot be empty")
			return m, nil
		}
		m.popup = popupNone
		m.titleInput.Blur()
		return m, m.create(m.newTask(title))
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

// newTask places the new card in the column under the cursor.
func (m Model) newTask(title string) client.NewTask {
	t := client.NewTask{Title: title}
	cols := m.board.Columns()
	if m.cursorCol >= len(cols) {
		return t
	}
	tg := cols[m.cursorCol].Target
	if tg.ByProject {
		t.ProjectID = tg.ProjectID
	} else {
		t.Status = tg.Status
	}
	return t
}

func (m Model) handleDeletePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		t := m.deleteTarget
		m.popup = popupNone
		m.deleteTarget = nil
		if t == nil {
			return m, nil
		}
		return m, m.remove(t.ID)
	case "n", "esc":
		m.popup = popupNone
		m.deleteTarget = nil
	}
	return m, nil
}
