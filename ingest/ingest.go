// Package ingest turns inbound chat messages into conversation records and,
// for explicit user commands, auto-created tasks.
package ingest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/openclaw/mission-control/classify"
	"github.com/openclaw/mission-control/server/ws"
	"github.com/openclaw/mission-control/store"
)

// Decode errors. Their messages are returned to webhook callers verbatim.
var (
	ErrInvalidJSON   = errors.New("Invalid JSON body")
	ErrMissingFields = errors.New("Missing required fields")
	ErrInvalidRole   = errors.New("invalid role")
)

// SignatureHeader carries the optional HMAC of the request body.
const SignatureHeader = "X-Webhook-Signature"

// Payload is a decoded webhook body.
type Payload struct {
	Message  string
	Role     store.Role
	Metadata string // compact JSON, a bare string, or empty
}

// Result is the webhook response body.
type Result struct {
	Success        bool   `json:"success"`
	ConversationID int64  `json:"conversation_id"`
	TaskCreated    bool   `json:"task_created"`
	TaskID         *int64 `json:"task_id"`
}

// Store is the persistence the service needs.
type Store interface {
	CreateConversation(ctx context.Context, c *store.Conversation) error
	CreateTask(ctx context.Context, t *store.Task) error
}

// Service classifies and persists inbound messages.
type Service struct {
	store      Store
	classifier *classify.Classifier
	events     ws.Publisher
	logger     *slog.Logger
}

// New creates a Service. A nil classifier uses the default rules and a nil
// publisher drops events.
func New(st Store, c *classify.Classifier, events ws.Publisher, logger *slog.Logger) *Service {
	if c == nil {
		c = classify.Default
	}
	if events == nil {
		events = ws.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, classifier: c, events: events, logger: logger}
}

// Decode validates a raw webhook body. message must be a string and role a
// non-empty known author role.
func Decode(body []byte) (Payload, error) {
	if !gjson.ValidBytes(body) {
		return Payload{}, ErrInvalidJSON
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Payload{}, ErrMissingFields
	}
	msg := root.Get("message")
	role := root.Get("role")
	if msg.Type != gjson.String || !truthy(role) {
		return Payload{}, ErrMissingFields
	}
	p := Payload{Message: msg.String(), Role: store.Role(role.String())}
	if role.Type != gjson.String || !p.Role.Valid() {
		return Payload{}, ErrInvalidRole
	}

	meta, err := metadataText(root.Get("metadata"))
	if err != nil {
		return Payload{}, err
	}
	p.Metadata = meta
	return p, nil
}

// truthy reports whether v is present and not null, false, 0 or "".
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	}
	return v.Exists()
}

// metadataText flattens the metadata value for storage. Falsy values are
// dropped, strings are kept as-is, anything else becomes compact JSON.
func metadataText(v gjson.Result) (string, error) {
	if !truthy(v) {
		return "", nil
	}
	switch v.Type {
	case gjson.String:
		return v.Str, nil
	case gjson.Number, gjson.True:
		return v.Raw, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
		return "", ErrInvalidJSON
	}
	return buf.String(), nil
}

// VerifySignature checks a "sha256=<hex>" HMAC of body under secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	sig := strings.TrimPrefix(signature, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}

// Sign returns the signature header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Ingest persists the message as a conversation and, when a user message
// carries an explicit task command, creates a linked task. A task failure
// after the conversation is stored is logged and reported as
// TaskCreated=false; the conversation is kept.
func (s *Service) Ingest(ctx context.Context, p Payload) (Result, error) {
	projectID := s.classifier.DetectProject(p.Message)

	conv := &store.Conversation{
		MessageText: p.Message,
		Role:        p.Role,
		ProjectID:   projectID,
		Metadata:    p.Metadata,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return Result{}, fmt.Errorf("store conversation: %w", err)
	}
	s.events.Publish(ws.ConversationCreated, conv)

	res := Result{Success: true, ConversationID: conv.ID}
	if p.Role != store.RoleUser {
		return res, nil
	}
	title := s.classifier.ExtractTaskTitle(p.Message)
	if title == nil {
		return res, nil
	}

	convID := conv.ID
	task := &store.Task{
		Title:          *title,
		Description:    p.Message,
		Status:         store.StatusBacklog,
		Priority:       classify.DetectPriority(p.Message),
		ProjectID:      projectID,
		ConversationID: &convID,
		AutoCreated:    true,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		s.logger.Error("auto-create task failed",
			slog.Int64("conversation_id", conv.ID),
			slog.Any("err", err),
		)
		return res, nil
	}
	s.events.Publish(ws.TaskCreated, task)
	s.logger.Info("task auto-created",
		slog.Int64("task_id", task.ID),
		slog.Int64("conversation_id", conv.ID),
		slog.String("priority", string(task.Priority)),
	)

	res.TaskCreated = true
	res.TaskID = &task.ID
	return res, nil
}
