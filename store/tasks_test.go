package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "mc.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestStore_CreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &Task{Title: "Write report", Description: "quarterly", Priority: PriorityHigh}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("CreateTask did not assign an id")
	}
	if task.Status != StatusBacklog {
		t.Errorf("Status = %q, want default Backlog", task.Status)
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "Write report" || got.Description != "quarterly" {
		t.Errorf("got %+v", got)
	}
	if got.Priority != PriorityHigh {
		t.Errorf("Priority = %q, want high", got.Priority)
	}
	if got.ProjectID != nil {
		t.Errorf("ProjectID = %v, want nil", *got.ProjectID)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestStore_CreateTask_Invalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		task Task
	}{
		{"empty title", Task{Title: "  "}},
		{"bad status", Task{Title: "x", Status: "Blocked"}},
		{"bad priority", Task{Title: "x", Priority: "urgent"}},
		{"auto created without conversation", Task{Title: "x", AutoCreated: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			err := s.CreateTask(ctx, &task)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestStore_GetTask_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTask(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateTask_Partial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Moto"}
	if err := s.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	task := &Task{Title: "orig", Description: "keep me", ProjectID: &project.ID}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	later := task.UpdatedAt.Add(time.Minute)
	s.now = func() time.Time { return later }

	status := StatusInProgress
	got, err := s.UpdateTask(ctx, task.ID, TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.Status != StatusInProgress {
		t.Errorf("Status = %q", got.Status)
	}
	if got.Title != "orig" || got.Description != "keep me" {
		t.Errorf("untouched fields changed: %+v", got)
	}
	if got.ProjectID == nil || *got.ProjectID != project.ID {
		t.Errorf("ProjectID = %v, want %d", got.ProjectID, project.ID)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}

	// Explicit null clears the project.
	got, err = s.UpdateTask(ctx, task.ID, TaskPatch{ProjectID: NullID()})
	if err != nil {
		t.Fatalf("UpdateTask clear project: %v", err)
	}
	if got.ProjectID != nil {
		t.Errorf("ProjectID = %d, want nil", *got.ProjectID)
	}
}

func TestStore_UpdateTask_EmptyPatchKeepsTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &Task{Title: "still"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	s.now = func() time.Time { return task.UpdatedAt.Add(time.Hour) }

	got, err := s.UpdateTask(ctx, task.ID, TaskPatch{})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !got.UpdatedAt.Equal(task.UpdatedAt) {
		t.Errorf("UpdatedAt moved from %v to %v", task.UpdatedAt, got.UpdatedAt)
	}
}

func TestStore_UpdateTask_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpdateTask(ctx, 99, TaskPatch{Title: ptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing task: err = %v, want ErrNotFound", err)
	}

	task := &Task{Title: "t"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	bad := Status("Later")
	if _, err := s.UpdateTask(ctx, task.ID, TaskPatch{Status: &bad}); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad status: err = %v, want ErrInvalid", err)
	}
}

func TestStore_ListTasks_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Personal"}
	if err := s.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	seed := []*Task{
		{Title: "a", Status: StatusBacklog, Priority: PriorityHigh, ProjectID: &project.ID},
		{Title: "b", Status: StatusDone, Priority: PriorityLow, ProjectID: &project.ID},
		{Title: "c", Status: StatusBacklog, Priority: PriorityLow},
	}
	for _, task := range seed {
		if err := s.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	backlog := StatusBacklog
	low := PriorityLow
	tests := []struct {
		name   string
		filter TaskFilter
		want   int
	}{
		{"all", TaskFilter{}, 3},
		{"status", TaskFilter{Status: &backlog}, 2},
		{"priority", TaskFilter{Priority: &low}, 2},
		{"project", TaskFilter{ProjectID: &project.ID}, 2},
		{"unassigned", TaskFilter{Unassigned: true}, 1},
		{"combined", TaskFilter{Status: &backlog, ProjectID: &project.ID}, 1},
		{"limit", TaskFilter{Limit: 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListTasks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTasks: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d tasks, want %d", len(got), tt.want)
			}
		})
	}
}

func TestStore_DeleteTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &Task{Title: "gone"}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestStore_AutoCreatedTaskKeepsConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv := &Conversation{MessageText: "add task buy milk", Role: RoleUser}
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	task := &Task{Title: "buy milk", AutoCreated: true, ConversationID: &conv.ID}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !got.AutoCreated || got.ConversationID == nil || *got.ConversationID != conv.ID {
		t.Errorf("got %+v", got)
	}
}
