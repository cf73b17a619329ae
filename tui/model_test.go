package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/openclaw/mission-control/board"
	"github.com/openclaw/mission-control/client"
	"github.com/openclaw/mission-control/prefs"
	"github.com/openclaw/mission-control/store"
)

type fakeAPI struct {
	tasks     []*store.Task
	updateErr error
	updates   int
	created   []client.NewTask
	deleted   []int64
}

func (f *fakeAPI) find(id int64) *store.Task {
	for _, t := range f.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id int64, p store.TaskPatch) (*store.Task, error) {
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	t := f.find(id)
	if t == nil {
		return nil, store.ErrNotFound
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ProjectID.Set {
		t.ProjectID = p.ProjectID.Ptr()
	}
	cp := *t
	return &cp, nil
}

func (f *fakeAPI) ListTasks(context.Context, client.TaskQuery) ([]*store.Task, error) {
	out := make([]*store.Task, len(f.tasks))
	for i, t := range f.tasks {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

func (f *fakeAPI) ListProjects(context.Context) ([]*store.ProjectSummary, error) {
	return []*store.ProjectSummary{{Project: store.Project{ID: 2, Name: "Moto"}}}, nil
}

func (f *fakeAPI) CreateTask(_ context.Context, nt client.NewTask) (*store.Task, error) {
	f.created = append(f.created, nt)
	t := &store.Task{ID: int64(100 + len(f.created)), Title: nt.Title, Status: nt.Status, Priority: store.PriorityMedium}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeAPI) DeleteTask(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newFake() *fakeAPI {
	return &fakeAPI{tasks: []*store.Task{
		{ID: 1, Title: "change oil", Status: store.StatusBacklog, Priority: store.PriorityHigh},
		{ID: 2, Title: "order chain", Status: store.StatusInProgress, Priority: store.PriorityLow},
	}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return update(t, m, cmd())
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keySpace = runes(" ")
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func loaded(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	m := New(api, nil)
	m, _ = run(t, m, m.refresh())
	if len(m.Board().Tasks()) != 2 {
		t.Fatalf("expected 2 tasks loaded, got %d", len(m.Board().Tasks()))
	}
	return m
}

func TestDragAndDrop(t *testing.T) {
	api := newFake()
	m := loaded(t, api)

	m, _ = update(t, m, keySpace)
	if id, ok := m.Board().Dragging(); !ok || id != 1 {
		t.Fatalf("expected task 1 picked up, got %d %v", id, ok)
	}
	m, _ = update(t, m, keyRight)
	if tg, ok := m.Board().Hovered(); !ok || tg.Status != store.StatusInProgress {
		t.Fatalf("expected hover on In Progress, got %+v", tg)
	}

	m, cmd := update(t, m, keyEnter)
	if task, _ := m.Board().Task(1); task.Status != store.StatusInProgress {
		t.Errorf("expected optimistic move, got %q", task.Status)
	}
	if m.Board().State() != board.Updating {
		t.Errorf("expected Updating, got %v", m.Board().State())
	}

	m, cmd = run(t, m, cmd) // update request settles
	if api.updates != 1 {
		t.Errorf("expected one update request, got %d", api.updates)
	}
	m, _ = run(t, m, cmd) // reload
	if m.Board().State() != board.Idle {
		t.Errorf("expected Idle after reload, got %v", m.Board().State())
	}
	if !strings.Contains(m.View(), "Moved to In Progress") {
		t.Error("expected success toast in view")
	}
}

func TestDropOnSameColumnIsNoOp(t *testing.T) {
	api := newFake()
	m := loaded(t, api)

	m, _ = update(t, m, keySpace)
	m, cmd := update(t, m, keyEnter)
	if cmd != nil {
		t.Error("expected no request for a drop on the same column")
	}
	if _, dragging := m.Board().Dragging(); dragging {
		t.Error("drag should end")
	}
	if api.updates != 0 {
		t.Errorf("expected no update requests, got %d", api.updates)
	}
}

func TestEscCancelsDrag(t *testing.T) {
	m := loaded(t, newFake())
	m, _ = update(t, m, keySpace)
	m, _ = update(t, m, keyRight)
	m, _ = update(t, m, keyEsc)
	if _, dragging := m.Board().Dragging(); dragging {
		t.Error("expected drag cancelled")
	}
	if task, _ := m.Board().Task(1); task.Status != store.StatusBacklog {
		t.Errorf("cancel must not move the card, got %q", task.Status)
	}
}

func TestFailedMoveReverts(t *testing.T) {
	api := newFake()
	api.updateErr = errors.New("server down")
	m := loaded(t, api)

	m, _ = update(t, m, keySpace)
	m, _ = update(t, m, keyRight)
	m, cmd := update(t, m, keyEnter)
	m, _ = run(t, m, cmd)

	if task, _ := m.Board().Task(1); task.Status != store.StatusBacklog {
		t.Errorf("expected revert to Backlog, got %q", task.Status)
	}
	if !strings.Contains(m.View(), "Failed to move task: server down") {
		t.Error("expected error toast in view")
	}
	m, _ = update(t, m, runes("x"))
	if strings.Contains(m.View(), "Failed to move task") {
		t.Error("expected toast dismissed")
	}
}

func TestProjectModeToggle(t *testing.T) {
	m := loaded(t, newFake())
	m, cmd := update(t, m, runes("p"))
	if m.Board().Mode() != board.ByProject {
		t.Fatalf("expected project mode, got %v", m.Board().Mode())
	}
	m, _ = run(t, m, cmd)

	cols := m.Board().Columns()
	if len(cols) != 2 || cols[0].Title != "Moto" || cols[1].Title != "Unassigned" {
		t.Errorf("unexpected columns %+v", cols)
	}
}

func TestCreateTask(t *testing.T) {
	api := newFake()
	m := loaded(t, api)

	m, _ = update(t, m, runes("n"))
	if m.popup != popupCreate {
		t.Fatal("expected create popup")
	}
	m, _ = update(t, m, runes("buy gloves"))
	m, cmd := update(t, m, keyEnter)
	if m.popup != popupNone {
		t.Error("expected popup closed")
	}
	m, cmd = run(t, m, cmd)
	m, _ = run(t, m, cmd)

	if len(api.created) != 1 || api.created[0].Title != "buy gloves" || api.created[0].Status != store.StatusBacklog {
		t.Errorf("unexpected create requests %+v", api.created)
	}
	if len(m.Board().Tasks()) != 3 {
		t.Errorf("expected reload with new task, got %d", len(m.Board().Tasks()))
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	api := newFake()
	m := loaded(t, api)

	m, _ = update(t, m, runes("d"))
	m, _ = update(t, m, runes("n"))
	if len(api.deleted) != 0 || m.popup != popupNone {
		t.Fatal("declined delete must not send a request")
	}

	m, _ = update(t, m, runes("d"))
	m, cmd := update(t, m, runes("y"))
	_, _ = run(t, m, cmd)
	if len(api.deleted) != 1 || api.deleted[0] != 1 {
		t.Errorf("expected delete of task 1, got %v", api.deleted)
	}
}

func TestThemeTogglePersists(t *testing.T) {
	p, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	m := New(newFake(), p)
	if m.theme.Name != prefs.ThemeDark {
		t.Fatalf("expected dark default, got %q", m.theme.Name)
	}

	m, _ = update(t, m, runes("t"))
	if m.theme.Name != prefs.ThemeLight {
		t.Errorf("expected light theme, got %q", m.theme.Name)
	}
	if got := p.ThemeMode(); got != prefs.ThemeLight {
		t.Errorf("expected persisted light, got %q", got)
	}

	m, _ = update(t, m, themeMsg(prefs.ThemeDark))
	if m.theme.Name != prefs.ThemeDark {
		t.Errorf("expected external change applied, got %q", m.theme.Name)
	}
}
