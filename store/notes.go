package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const noteColumns = "id, title, content, project_id, created_at, updated_at"

func scanNote(sc scanner) (*Note, error) {
	var (
		n         Note
		content   sql.NullString
		projectID sql.NullInt64
	)
	if err := sc.Scan(&n.ID, &n.Title, &content, &projectID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Content = content.String
	n.ProjectID = ptrInt(projectID)
	return &n, nil
}

// CreateNote inserts n and sets its ID and timestamps.
func (s *Store) CreateNote(ctx context.Context, n *Note) error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("title is required: %w", ErrInvalid)
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (title, content, project_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		n.Title, nullString(n.Content), nullInt(n.ProjectID), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("note id: %w", err)
	}
	n.ID = id
	n.CreatedAt = now
	n.UpdatedAt = now
	return nil
}

// GetNote returns the note with id or ErrNotFound.
func (s *Store) GetNote(ctx context.Context, id int64) (*Note, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// ListNotes returns notes, most recently updated first. A nil projectID lists
// every note.
func (s *Store) ListNotes(ctx context.Context, projectID *int64) ([]*Note, error) {
	var w where
	if projectID != nil {
		w.add("project_id = ?", *projectID)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes"+w.String()+" ORDER BY updated_at DESC, id DESC", w.args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	out := []*Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UpdateNote applies the present fields of p.
func (s *Store) UpdateNote(ctx context.Context, id int64, p NotePatch) (*Note, error) {
	var u setter
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, fmt.Errorf("title is required: %w", ErrInvalid)
		}
		u.set("title", *p.Title)
	}
	if p.Content != nil {
		u.set("content", nullString(*p.Content))
	}
	if p.ProjectID.Set {
		u.set("project_id", nullInt(p.ProjectID.Ptr()))
	}
	if u.empty() {
		return s.GetNote(ctx, id)
	}
	u.set("updated_at", s.now())

	args := append(u.args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET "+strings.Join(u.fields, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("note %d: %w", id, ErrNotFound)
	}
	return s.GetNote(ctx, id)
}

// DeleteNote removes the note with id.
func (s *Store) DeleteNote(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "notes", "note", id)
}
