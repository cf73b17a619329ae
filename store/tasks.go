package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const taskColumns = `id, title, description, status, priority, project_id, due_date,
	conversation_id, auto_created, created_at, updated_at`

func scanTask(sc scanner) (*Task, error) {
	var (
		t              Task
		description    sql.NullString
		dueDate        sql.NullString
		projectID      sql.NullInt64
		conversationID sql.NullInt64
		autoCreated    int
	)
	err := sc.Scan(&t.ID, &t.Title, &description, &t.Status, &t.Priority, &projectID,
		&dueDate, &conversationID, &autoCreated, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.DueDate = dueDate.String
	t.ProjectID = ptrInt(projectID)
	t.ConversationID = ptrInt(conversationID)
	t.AutoCreated = autoCreated != 0
	return &t, nil
}

func validateTask(t *Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required: %w", ErrInvalid)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q: %w", t.Status, ErrInvalid)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q: %w", t.Priority, ErrInvalid)
	}
	if t.AutoCreated && t.ConversationID == nil {
		return fmt.Errorf("auto-created task needs a conversation: %w", ErrInvalid)
	}
	return nil
}

// CreateTask inserts t, filling defaults for empty status and priority, and
// sets its ID and timestamps.
func (s *Store) CreateTask(ctx context.Context, t *Task) error {
	if t.Status == "" {
		t.Status = StatusBacklog
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if err := validateTask(t); err != nil {
		return err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, priority, project_id, due_date,
			conversation_id, auto_created, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, nullString(t.Description), t.Status, t.Priority, nullInt(t.ProjectID),
		nullString(t.DueDate), nullInt(t.ConversationID), boolInt(t.AutoCreated), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetTask returns the task with id or ErrNotFound.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks matching f, newest first.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	var w where
	if f.Status != nil {
		w.add("status = ?", *f.Status)
	}
	if f.Priority != nil {
		w.add("priority = ?", *f.Priority)
	}
	switch {
	case f.Unassigned:
		w.add("project_id IS NULL")
	case f.ProjectID != nil:
		w.add("project_id = ?", *f.ProjectID)
	}
	query := "SELECT " + taskColumns + " FROM tasks" + w.String() + " ORDER BY created_at DESC, id DESC"
	args := w.args
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies the present fields of p and returns the stored task.
// An empty patch returns the task untouched, updated_at included.
func (s *Store) UpdateTask(ctx context.Context, id int64, p TaskPatch) (*Task, error) {
	var u setter
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, fmt.Errorf("title is required: %w", ErrInvalid)
		}
		u.set("title", *p.Title)
	}
	if p.Description != nil {
		u.set("description", nullString(*p.Description))
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, fmt.Errorf("invalid status %q: %w", *p.Status, ErrInvalid)
		}
		u.set("status", *p.Status)
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, fmt.Errorf("invalid priority %q: %w", *p.Priority, ErrInvalid)
		}
		u.set("priority", *p.Priority)
	}
	if p.ProjectID.Set {
		u.set("project_id", nullInt(p.ProjectID.Ptr()))
	}
	if p.DueDate != nil {
		u.set("due_date", nullString(*p.DueDate))
	}
	if u.empty() {
		return s.GetTask(ctx, id)
	}
	u.set("updated_at", s.now())

	args := append(u.args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(u.fields, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes the task with id.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "tasks", "task", id)
}
