package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Status is a kanban column. Only the three constants below are valid.
type Status string

const (
	StatusBacklog    Status = "Backlog"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusBacklog, StatusInProgress, StatusDone}

// Valid reports whether s is one of the three board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority orders tasks within a column.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is high, medium or low.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known author role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Project groups tasks, conversations, notes and files. Dependents reference
// it weakly: deleting a project orphans them.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
	Keywords    string    `json:"keywords,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectSummary is a project with its dependent counts, as listed on the
// projects page.
type ProjectSummary struct {
	Project
	TaskCount         int `json:"task_count"`
	ConversationCount int `json:"conversation_count"`
}

// ProjectPatch carries the fields of a partial project update.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
	Keywords    *string `json:"keywords,omitempty"`
}

// Task is a card on the board.
type Task struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         Status    `json:"status"`
	Priority       Priority  `json:"priority"`
	ProjectID      *int64    `json:"project_id"`
	DueDate        string    `json:"due_date,omitempty"`
	ConversationID *int64    `json:"conversation_id"`
	AutoCreated    bool      `json:"auto_created"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TaskPatch carries the fields of a partial task update. Nil pointers and
// unset OptionalIDs leave the stored value alone.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	ProjectID   OptionalID `json:"project_id,omitzero"`
	DueDate     *string    `json:"due_date,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && !p.ProjectID.Set && p.DueDate == nil
}

// TaskFilter controls which tasks ListTasks returns.
type TaskFilter struct {
	Status     *Status
	Priority   *Priority
	ProjectID  *int64
	Unassigned bool // only tasks without a project
	Limit      int
}

// Conversation is one logged message. Rows are append-only apart from
// archival.
type Conversation struct {
	ID          int64     `json:"id"`
	MessageText string    `json:"message_text"`
	Role        Role      `json:"role"`
	ProjectID   *int64    `json:"project_id"`
	Metadata    string    `json:"metadata,omitempty"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConversationFilter controls which conversations ListConversations returns.
type ConversationFilter struct {
	ProjectID       *int64
	IncludeArchived bool
	Limit           int // defaults to 100
}

// Note is a free-form project note.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	ProjectID *int64    `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotePatch carries the fields of a partial note update.
type NotePatch struct {
	Title     *string    `json:"title,omitempty"`
	Content   *string    `json:"content,omitempty"`
	ProjectID OptionalID `json:"project_id,omitzero"`
}

// File is the metadata row of an uploaded project file. Filename is the
// path relative to the upload directory.
type File struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type,omitempty"`
	Size         int64     `json:"size"`
	ProjectID    *int64    `json:"project_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Report is a generated daily report. DataJSON is omitted from listings.
type Report struct {
	ID        int64           `json:"id"`
	Date      string          `json:"date"`
	Title     string          `json:"title"`
	DataJSON  json.RawMessage `json:"data_json,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// OptionalID is a nullable foreign key in a patch body. Set distinguishes
// "absent" from an explicit null, which clears the reference.
type OptionalID struct {
	Set   bool
	Valid bool
	ID    int64
}

// SomeID returns an OptionalID that sets the reference to id.
func SomeID(id int64) OptionalID { return OptionalID{Set: true, Valid: true, ID: id} }

// NullID returns an OptionalID that clears the reference.
func NullID() OptionalID { return OptionalID{Set: true} }

// Ptr returns the value as a nullable id.
func (o OptionalID) Ptr() *int64 {
	if !o.Valid {
		return nil
	}
	id := o.ID
	return &id
}

// IsZero reports whether the field was absent; used by omitzero.
func (o OptionalID) IsZero() bool { return !o.Set }

// UnmarshalJSON accepts a number, a numeric string or null.
func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		o.Valid = false
		o.ID = 0
		return nil
	}
	if len(b) > 1 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			o.Valid = false
			return nil
		}
		b = []byte(s)
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	o.Valid = true
	o.ID = id
	return nil
}

// MarshalJSON renders the id or null.
func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(o.ID, 10)), nil
}
