package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const defaultConversationLimit = 100

const conversationColumns = "id, message_text, role, project_id, metadata, archived, created_at"

func scanConversation(sc scanner) (*Conversation, error) {
	var (
		c         Conversation
		projectID sql.NullInt64
		metadata  sql.NullString
		archived  int
	)
	if err := sc.Scan(&c.ID, &c.MessageText, &c.Role, &projectID, &metadata, &archived, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ProjectID = ptrInt(projectID)
	c.Metadata = metadata.String
	c.Archived = archived != 0
	return &c, nil
}

// CreateConversation appends a message and sets its ID and creation time.
func (s *Store) CreateConversation(ctx context.Context, c *Conversation) error {
	if !c.Role.Valid() {
		return fmt.Errorf("invalid role %q: %w", c.Role, ErrInvalid)
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (message_text, role, project_id, metadata, archived, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		c.MessageText, c.Role, nullInt(c.ProjectID), nullString(c.Metadata), now,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("conversation id: %w", err)
	}
	c.ID = id
	c.Archived = false
	c.CreatedAt = now
	return nil
}

// GetConversation returns the conversation with id or ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// ListConversations returns conversations matching f, newest first.
func (s *Store) ListConversations(ctx context.Context, f ConversationFilter) ([]*Conversation, error) {
	var w where
	if f.ProjectID != nil {
		w.add("project_id = ?", *f.ProjectID)
	}
	if !f.IncludeArchived {
		w.add("archived = 0")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	args := append(w.args, limit)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations"+w.String()+
			" ORDER BY created_at DESC, id DESC LIMIT ?", args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []*Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ArchiveConversation hides a conversation from default listings. It is the
// only mutation conversations support.
func (s *Store) ArchiveConversation(ctx context.Context, id int64) (*Conversation, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE conversations SET archived = 1 WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("archive conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("conversation %d: %w", id, ErrNotFound)
	}
	return s.GetConversation(ctx, id)
}
