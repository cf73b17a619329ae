package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CreateReport inserts r. DataJSON must be valid JSON when present.
func (s *Store) CreateReport(ctx context.Context, r *Report) error {
	if strings.TrimSpace(r.Date) == "" || strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("date and title are required: %w", ErrInvalid)
	}
	var data any
	if len(r.DataJSON) > 0 {
		if !json.Valid(r.DataJSON) {
			return fmt.Errorf("data_json is not valid JSON: %w", ErrInvalid)
		}
		data = string(r.DataJSON)
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (date, title, data_json, created_at) VALUES (?, ?, ?, ?)`,
		r.Date, r.Title, data, now,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("report id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	return nil
}

// GetReport returns the full report, data included.
func (s *Store) GetReport(ctx context.Context, id int64) (*Report, error) {
	var (
		r    Report
		data sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, date, title, data_json, created_at FROM reports WHERE id = ?", id,
	).Scan(&r.ID, &r.Date, &r.Title, &data, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if data.Valid {
		r.DataJSON = json.RawMessage(data.String)
	}
	return &r, nil
}

// ListReports returns report headers, newest date first, without data.
func (s *Store) ListReports(ctx context.Context) ([]*Report, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, date, title, created_at FROM reports ORDER BY date DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	out := []*Report{}
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.Date, &r.Title, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
