package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DefaultProjectColor is used when a project is created without a color.
const DefaultProjectColor = "#3B82F6"

const projectColumns = "id, name, color, description, keywords, created_at"

func scanProject(sc scanner, extra ...any) (*Project, error) {
	var (
		p           Project
		description sql.NullString
		keywords    sql.NullString
	)
	dest := append([]any{&p.ID, &p.Name, &p.Color, &description, &keywords, &p.CreatedAt}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Keywords = keywords.String
	return &p, nil
}

// CreateProject inserts p and sets its ID and creation time.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required: %w", ErrInvalid)
	}
	if p.Color == "" {
		p.Color = DefaultProjectColor
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, color, description, keywords, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Color, nullString(p.Description), nullString(p.Keywords), now,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("project id: %w", err)
	}
	p.ID = id
	p.CreatedAt = now
	return nil
}

// GetProject returns the project with id or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project ordered by name, with dependent counts.
func (s *Store) ListProjects(ctx context.Context) ([]*ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.color, p.description, p.keywords, p.created_at,
			(SELECT COUNT(1) FROM tasks t WHERE t.project_id = p.id),
			(SELECT COUNT(1) FROM conversations c WHERE c.project_id = p.id)
		FROM projects p
		ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []*ProjectSummary{}
	for rows.Next() {
		var sum ProjectSummary
		p, err := scanProject(rows, &sum.TaskCount, &sum.ConversationCount)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		sum.Project = *p
		out = append(out, &sum)
	}
	return out, rows.Err()
}

// UpdateProject applies the present fields of p.
func (s *Store) UpdateProject(ctx context.Context, id int64, p ProjectPatch) (*Project, error) {
	var u setter
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, fmt.Errorf("name is required: %w", ErrInvalid)
		}
		u.set("name", *p.Name)
	}
	if p.Color != nil {
		color := *p.Color
		if color == "" {
			color = DefaultProjectColor
		}
		u.set("color", color)
	}
	if p.Description != nil {
		u.set("description", nullString(*p.Description))
	}
	if p.Keywords != nil {
		u.set("keywords", nullString(*p.Keywords))
	}
	if u.empty() {
		return s.GetProject(ctx, id)
	}
	args := append(u.args, id)
	res, err := s.db.ExecContext(ctx,
		"UPDATE projects SET "+strings.Join(u.fields, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes the project and orphans everything that referenced
// it. Dependents survive with a null project_id.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"tasks", "conversations", "notes", "files"} {
		if _, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET project_id = NULL WHERE project_id = ?", id); err != nil {
			return fmt.Errorf("orphan %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}
