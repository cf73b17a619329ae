package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/openclaw/mission-control/store"
)

type fakeStore struct {
	mu      sync.Mutex
	convs   []*store.Conversation
	tasks   []*store.Task
	taskErr error
}

func (f *fakeStore) CreateConversation(_ context.Context, c *store.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = int64(len(f.convs) + 1)
	f.convs = append(f.convs, c)
	return nil
}

func (f *fakeStore) CreateTask(_ context.Context, t *store.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taskErr != nil {
		return f.taskErr
	}
	t.ID = int64(len(f.tasks) + 100)
	f.tasks = append(f.tasks, t)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) Publish(eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  error
		wantMeta string
	}{
		{"invalid json", `{not json`, ErrInvalidJSON, ""},
		{"empty body", ``, ErrInvalidJSON, ""},
		{"null body", `null`, ErrMissingFields, ""},
		{"missing role", `{"message":"hi"}`, ErrMissingFields, ""},
		{"empty role", `{"message":"hi","role":""}`, ErrMissingFields, ""},
		{"non-string message", `{"message":5,"role":"user"}`, ErrMissingFields, ""},
		{"unknown role", `{"message":"hi","role":"robot"}`, ErrInvalidRole, ""},
		{"object metadata", `{"message":"hi","role":"user","metadata":{ "a" : 1 }}`, nil, `{"a":1}`},
		{"string metadata", `{"message":"hi","role":"user","metadata":"sms"}`, nil, "sms"},
		{"null metadata", `{"message":"hi","role":"user","metadata":null}`, nil, ""},
		{"empty message allowed", `{"message":"","role":"assistant"}`, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode([]byte(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && p.Metadata != tt.wantMeta {
				t.Errorf("Metadata = %q, want %q", p.Metadata, tt.wantMeta)
			}
		})
	}
}

func TestSignature(t *testing.T) {
	body := []byte(`{"message":"hi","role":"user"}`)
	sig := Sign("s3cret", body)
	if !VerifySignature("s3cret", body, sig) {
		t.Error("valid signature rejected")
	}
	if VerifySignature("other", body, sig) {
		t.Error("signature under wrong secret accepted")
	}
	if VerifySignature("s3cret", []byte(`{}`), sig) {
		t.Error("signature for different body accepted")
	}
	if VerifySignature("s3cret", body, "") {
		t.Error("empty signature accepted")
	}
}

func TestIngest_UserCommandCreatesTask(t *testing.T) {
	fs := &fakeStore{}
	pub := &recordingPublisher{}
	svc := New(fs, nil, pub, quietLogger())

	res, err := svc.Ingest(context.Background(), Payload{
		Message: "add task urgent fix moto brakes",
		Role:    store.RoleUser,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Success || !res.TaskCreated || res.TaskID == nil {
		t.Fatalf("res = %+v", res)
	}
	if len(fs.tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(fs.tasks))
	}
	task := fs.tasks[0]
	if task.Title != "urgent fix moto brakes" {
		t.Errorf("Title = %q", task.Title)
	}
	if task.Priority != store.PriorityHigh {
		t.Errorf("Priority = %q", task.Priority)
	}
	if task.ProjectID == nil || *task.ProjectID != 2 {
		t.Errorf("ProjectID = %v, want 2", task.ProjectID)
	}
	if !task.AutoCreated || task.ConversationID == nil || *task.ConversationID != res.ConversationID {
		t.Errorf("task not linked to conversation: %+v", task)
	}
	if task.Description != "add task urgent fix moto brakes" {
		t.Errorf("Description = %q", task.Description)
	}
	if len(pub.events) != 2 {
		t.Errorf("events = %v", pub.events)
	}
}

func TestIngest_AssistantNeverCreatesTask(t *testing.T) {
	fs := &fakeStore{}
	svc := New(fs, nil, nil, quietLogger())

	res, err := svc.Ingest(context.Background(), Payload{Message: "add task buy milk", Role: store.RoleAssistant})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.TaskCreated || res.TaskID != nil || len(fs.tasks) != 0 {
		t.Errorf("assistant message created a task: %+v", res)
	}
	if len(fs.convs) != 1 {
		t.Errorf("conversations = %d, want 1", len(fs.convs))
	}
}

func TestIngest_TaskFailureKeepsConversation(t *testing.T) {
	fs := &fakeStore{taskErr: errors.New("disk full")}
	svc := New(fs, nil, nil, quietLogger())

	res, err := svc.Ingest(context.Background(), Payload{Message: "todo: renew passport", Role: store.RoleUser})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Success || res.TaskCreated || res.TaskID != nil {
		t.Errorf("res = %+v", res)
	}
	if len(fs.convs) != 1 {
		t.Error("conversation should persist")
	}
}

func TestIngest_EndToEnd(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "mc.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	svc := New(st, nil, nil, quietLogger())
	ctx := context.Background()

	p, err := Decode([]byte(`{"message":"remind me to call the bank","role":"user"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	res, err := svc.Ingest(ctx, p)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.TaskCreated {
		t.Fatalf("res = %+v", res)
	}

	tasks, err := st.ListTasks(ctx, store.TaskFilter{Unassigned: true})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	got := tasks[0]
	if got.Title != "call the bank" || !got.AutoCreated {
		t.Errorf("task = %+v", got)
	}
	if got.ConversationID == nil || *got.ConversationID != res.ConversationID {
		t.Errorf("ConversationID = %v, want %d", got.ConversationID, res.ConversationID)
	}
}
