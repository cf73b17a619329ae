package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const fileColumns = "id, filename, original_name, mime_type, size, project_id, created_at"

func scanFile(sc scanner) (*File, error) {
	var (
		f         File
		mimeType  sql.NullString
		size      sql.NullInt64
		projectID sql.NullInt64
	)
	if err := sc.Scan(&f.ID, &f.Filename, &f.OriginalName, &mimeType, &size, &projectID, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.MimeType = mimeType.String
	f.Size = size.Int64
	f.ProjectID = ptrInt(projectID)
	return &f, nil
}

// CreateFile records an uploaded file's metadata. The bytes live on disk.
func (s *Store) CreateFile(ctx context.Context, f *File) error {
	if f.Filename == "" || f.OriginalName == "" {
		return fmt.Errorf("filename is required: %w", ErrInvalid)
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO files (filename, original_name, mime_type, size, project_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.Filename, f.OriginalName, nullString(f.MimeType), f.Size, nullInt(f.ProjectID), now,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("file id: %w", err)
	}
	f.ID = id
	f.CreatedAt = now
	return nil
}

// GetFile returns the file metadata with id or ErrNotFound.
func (s *Store) GetFile(ctx context.Context, id int64) (*File, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE id = ?", id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// ListFiles returns the files of a project, newest first.
func (s *Store) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files WHERE project_id = ? ORDER BY created_at DESC, id DESC", projectID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	out := []*File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFile removes the metadata row. Callers remove the bytes.
func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "files", "file", id)
}
