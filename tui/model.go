// Package tui is the terminal kanban board. Moves go through board.Board, so
// a dropped card changes column at once and is reconciled with the server
// after the update request settles.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/openclaw/mission-control/board"
	"github.com/openclaw/mission-control/client"
	"github.com/openclaw/mission-control/prefs"
	"github.com/openclaw/mission-control/store"
)

// API is the server surface the board needs. *client.Client implements it.
type API interface {
	board.API
	CreateTask(ctx context.Context, t client.NewTask) (*store.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

type popup int

const (
	popupNone popup = iota
	popupCreate
	popupConfirmDelete
)

const tickInterval = time.Second

// Model is the top-level bubbletea model.
type Model struct {
	api   API
	board *board.Board
	prefs *prefs.Store

	width  int
	height int

	cursorCol int
	cursorRow int
	hoverCol  int

	popup        popup
	titleInput   textinput.Model
	deleteTarget *store.Task

	theme    Theme
	styles   styles
	keys     keyMap
	help     help.Model
	themeCh  chan string
	loading  bool
	quitting bool
}

// New returns a board model. p may be nil, in which case theme changes are
// not persisted.
func New(api API, p *prefs.Store) Model {
	ti := textinput.New()
	ti.Placeholder = "Task title..."
	ti.CharLimit = 200
	ti.Width = 50

	mode := prefs.ThemeDark
	var themeCh chan string
	if p != nil {
		mode = p.ThemeMode()
		themeCh = make(chan string, 4)
		p.Subscribe(func(c prefs.Change) {
			if c.Key != prefs.KeyThemeMode {
				return
			}
			select {
			case themeCh <- c.Value:
			default:
			}
		})
	}
	theme := themeFor(mode)

	return Model{
		api:        api,
		board:      board.New(board.ByStatus, nil),
		prefs:      p,
		titleInput: ti,
		theme:      theme,
		styles:     newStyles(theme),
		keys:       defaultKeys(),
		help:       help.New(),
		themeCh:    themeCh,
		loading:    true,
	}
}

// Board exposes the underlying board state.
func (m Model) Board() *board.Board { return m.board }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tickCmd(), m.waitTheme())
}

type tickMsg time.Time

type loadedMsg struct {
	tasks    []*store.Task
	projects []*store.ProjectSummary
	err      error
}

type movedMsg struct {
	outcome board.Outcome
}

type createdMsg struct {
	task *store.Task
	err  error
}

type deletedMsg struct {
	id  int64
	err error
}

type themeMsg string

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	api, mode := m.api, m.board.Mode()
	return func() tea.Msg {
		ctx := context.Background()
		var projects []*store.ProjectSummary
		if mode == board.ByProject {
			p, err := api.ListProjects(ctx)
			if err != nil {
				return loadedMsg{err: err}
			}
			projects = p
		}
		tasks, err := api.ListTasks(ctx, client.TaskQuery{})
		return loadedMsg{tasks: tasks, projects: projects, err: err}
	}
}

func (m Model) send(mv board.Move) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		return movedMsg{outcome: board.Send(context.Background(), api, mv)}
	}
}

func (m Model) create(t client.NewTask) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		task, err := api.CreateTask(context.Background(), t)
		return createdMsg{task: task, err: err}
	}
}

func (m Model) remove(id int64) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		return deletedMsg{id: id, err: api.DeleteTask(context.Background(), id)}
	}
}

func (m Model) waitTheme() tea.Cmd {
	if m.themeCh == nil {
		return nil
	}
	ch := m.themeCh
	return func() tea.Msg { return themeMsg(<-ch) }
}

func (m *Model) setTheme(mode string) {
	m.theme = themeFor(mode)
	m.styles = newStyles(m.theme)
}

// selected returns the card under the cursor.
func (m Model) selected() (*store.Task, bool) {
	cols := m.board.Columns()
	if m.cursorCol >= len(cols) {
		return nil, false
	}
	tasks := cols[m.cursorCol].Tasks
	if m.cursorRow >= len(tasks) {
		return nil, false
	}
	return tasks[m.cursorRow], true
}

func (m *Model) clampCursor() {
	cols := m.board.Columns()
	m.cursorCol = clamp(m.cursorCol, 0, len(cols)-1)
	m.hoverCol = clamp(m.hoverCol, 0, len(cols)-1)
	if len(cols) == 0 {
		m.cursorRow = 0
		return
	}
	m.cursorRow = clamp(m.cursorRow, 0, len(cols[m.cursorCol].Tasks)-1)
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
