// Package board reconciles kanban moves with the server: a drop mutates
// the local list at once, one update request follows, and the list is
// reloaded from the server whatever the outcome.
package board

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/mission-control/store"
)

// Mode selects how cards are grouped into columns.
type Mode int

const (
	ByStatus Mode = iota
	ByProject
)

func (m Mode) String() string {
	if m == ByProject {
		return "project"
	}
	return "status"
}

// State is the reconciliation phase of the board.
type State int

const (
	// Idle: the local list matches the last server load.
	Idle State = iota
	// Updating: an optimistic change is waiting on its update request.
	Updating
	// Reconciling: the request settled and a reload is due.
	Reconciling
)

func (s State) String() string {
	switch s {
	case Updating:
		return "updating"
	case Reconciling:
		return "reconciling"
	}
	return "idle"
}

// Target is a drop target: a status column, or a project column when
// ByProject is set. A nil ProjectID is the unassigned column.
type Target struct {
	ByProject bool
	Status    store.Status
	ProjectID *int64
}

// StatusTarget is the column for status s.
func StatusTarget(s store.Status) Target { return Target{Status: s} }

// ProjectTarget is the column for project id, or unassigned when nil.
func ProjectTarget(id *int64) Target { return Target{ByProject: true, ProjectID: id} }

// Holds reports whether t already sits in this column.
func (tg Target) Holds(t *store.Task) bool {
	if !tg.ByProject {
		return t.Status == tg.Status
	}
	switch {
	case tg.ProjectID == nil:
		return t.ProjectID == nil
	case t.ProjectID == nil:
		return false
	}
	return *t.ProjectID == *tg.ProjectID
}

// Equal reports whether two targets name the same column.
func (tg Target) Equal(o Target) bool {
	if tg.ByProject != o.ByProject {
		return false
	}
	if !tg.ByProject {
		return tg.Status == o.Status
	}
	if tg.ProjectID == nil || o.ProjectID == nil {
		return tg.ProjectID == nil && o.ProjectID == nil
	}
	return *tg.ProjectID == *o.ProjectID
}

func (tg Target) patch() store.TaskPatch {
	if !tg.ByProject {
		s := tg.Status
		return store.TaskPatch{Status: &s}
	}
	if tg.ProjectID == nil {
		return store.TaskPatch{ProjectID: store.NullID()}
	}
	return store.TaskPatch{ProjectID: store.SomeID(*tg.ProjectID)}
}

// Move is a dropped card waiting to be persisted.
type Move struct {
	TaskID int64
	Target Target
	Patch  store.TaskPatch
	before store.Task
}

// Outcome is the result of sending a Move.
type Outcome struct {
	Move Move
	Task *store.Task
	Err  error
}

// Updater persists a task change. *client.Client implements it.
type Updater interface {
	UpdateTask(ctx context.Context, id int64, p store.TaskPatch) (*store.Task, error)
}

// Column is one rendered board column.
type Column struct {
	Target Target
	Title  string
	Tasks  []*store.Task
}

// Board is the local task list plus drag and reconciliation state. It is
// not safe for concurrent use; callers drive it from one goroutine.
type Board struct {
	mode     Mode
	tasks    []*store.Task
	projects []*store.ProjectSummary
	state    State

	dragID   int64
	dragging bool
	hover    *Target

	Toasts *Toasts
}

// New returns an empty board. A nil clock uses time.Now for toasts.
func New(mode Mode, now func() time.Time) *Board {
	return &Board{mode: mode, Toasts: NewToasts(now)}
}

// Mode returns the current grouping.
func (b *Board) Mode() Mode { return b.mode }

// SetMode switches grouping and abandons any drag in progress.
func (b *Board) SetMode(m Mode) {
	b.mode = m
	b.Cancel()
}

// State returns the reconciliation phase.
func (b *Board) State() State { return b.state }

// Tasks returns the local task list.
func (b *Board) Tasks() []*store.Task { return b.tasks }

// Task returns the task with id.
func (b *Board) Task(id int64) (*store.Task, bool) {
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// SetProjects sets the projects used for project columns.
func (b *Board) SetProjects(p []*store.ProjectSummary) { b.projects = p }

// Dragging returns the id of the picked-up card.
func (b *Board) Dragging() (int64, bool) { return b.dragID, b.dragging }

// Hovered returns the column under the dragged card.
func (b *Board) Hovered() (Target, bool) {
	if b.hover == nil {
		return Target{}, false
	}
	return *b.hover, true
}

// BeginDrag picks up task id. It reports false when the task is not on the
// board.
func (b *Board) BeginDrag(id int64) bool {
	if _, ok := b.Task(id); !ok {
		return false
	}
	b.dragID = id
	b.dragging = true
	b.hover = nil
	return true
}

// Hover records the column under the dragged card. It only affects
// highlighting.
func (b *Board) Hover(t Target) {
	if !b.dragging {
		return
	}
	b.hover = &t
}

// Cancel drops the dragged card back where it was.
func (b *Board) Cancel() {
	b.dragging = false
	b.dragID = 0
	b.hover = nil
}

// Drop ends the drag on target. A nil target, the card's current column,
// or no active drag is a no-op and returns false. Otherwise the local list
// changes immediately and the returned Move must be sent.
func (b *Board) Drop(target *Target) (Move, bool) {
	id, dragging := b.dragID, b.dragging
	b.Cancel()
	if !dragging || target == nil {
		return Move{}, false
	}
	t, ok := b.Task(id)
	if !ok || target.Holds(t) {
		return Move{}, false
	}

	m := Move{TaskID: id, Target: *target, Patch: target.patch(), before: *t}
	apply(t, m.Patch)
	b.state = Updating
	return m, true
}

func apply(t *store.Task, p store.TaskPatch) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ProjectID.Set {
		t.ProjectID = p.ProjectID.Ptr()
	}
}

// Send issues the single update request for m.
func Send(ctx context.Context, api Updater, m Move) Outcome {
	task, err := api.UpdateTask(ctx, m.TaskID, m.Patch)
	return Outcome{Move: m, Task: task, Err: err}
}

// Settle records the result of a Move. A failure restores the card as it
// was before the drop. Either way the board then awaits a reload.
func (b *Board) Settle(o Outcome) {
	b.state = Reconciling
	if o.Err != nil {
		if t, ok := b.Task(o.Move.TaskID); ok {
			*t = o.Move.before
		}
		b.Toasts.Push(KindError, fmt.Sprintf("Failed to move task: %v", o.Err))
		return
	}
	if o.Task != nil {
		if t, ok := b.Task(o.Move.TaskID); ok {
			*t = *o.Task
		}
	}
	b.Toasts.Push(KindSuccess, "Moved to "+b.title(o.Move.Target))
}

// Load replaces the local list with server truth and returns to Idle. On a
// failed load the current list is kept.
func (b *Board) Load(tasks []*store.Task, err error) {
	b.state = Idle
	if err != nil {
		b.Toasts.Push(KindError, fmt.Sprintf("Failed to load tasks: %v", err))
		return
	}
	b.tasks = tasks
	if b.dragging {
		if _, ok := b.Task(b.dragID); !ok {
			b.Cancel()
		}
	}
}

// Targets lists the columns of the current mode in display order.
func (b *Board) Targets() []Target {
	if b.mode == ByStatus {
		out := make([]Target, 0, len(store.Statuses))
		for _, s := range store.Statuses {
			out = append(out, StatusTarget(s))
		}
		return out
	}
	out := make([]Target, 0, len(b.projects)+1)
	for _, p := range b.projects {
		id := p.ID
		out = append(out, ProjectTarget(&id))
	}
	return append(out, ProjectTarget(nil))
}

// Columns groups the local list by the current mode.
func (b *Board) Columns() []Column {
	targets := b.Targets()
	cols := make([]Column, len(targets))
	for i, tg := range targets {
		cols[i] = Column{Target: tg, Title: b.title(tg)}
	}
	for _, t := range b.tasks {
		for i := range cols {
			if cols[i].Target.Holds(t) {
				cols[i].Tasks = append(cols[i].Tasks, t)
				break
			}
		}
	}
	return cols
}

func (b *Board) title(tg Target) string {
	if !tg.ByProject {
		return string(tg.Status)
	}
	if tg.ProjectID == nil {
		return "Unassigned"
	}
	for _, p := range b.projects {
		if p.ID == *tg.ProjectID {
			return p.Name
		}
	}
	return fmt.Sprintf("Project %d", *tg.ProjectID)
}
