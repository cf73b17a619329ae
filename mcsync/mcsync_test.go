package mcsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openclaw/mission-control/ingest"
	"github.com/openclaw/mission-control/store"
)

func TestLog_Delivers(t *testing.T) {
	var got request
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != webhookPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		sig = r.Header.Get(ingest.SignatureHeader)
		json.NewDecoder(r.Body).Decode(&got)                                                       //nolint:errcheck
		io.WriteString(w, `{"success":true,"conversation_id":12,"task_created":true,"task_id":4}`) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	c.Secret = "k"
	res := c.Log(context.Background(), "add task buy oil", store.RoleUser, map[string]any{"channel": "telegram"})

	if res.ConversationID != 12 || !res.TaskCreated || res.TaskID == nil || *res.TaskID != 4 {
		t.Errorf("unexpected result %+v", res)
	}
	if got.Message != "add task buy oil" || got.Role != store.RoleUser || got.Metadata["channel"] != "telegram" {
		t.Errorf("unexpected request %+v", got)
	}
	if sig == "" {
		t.Error("expected signed request")
	}
}

func TestLog_RetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"success":true,"conversation_id":3,"task_created":false,"task_id":null}`) //nolint:errcheck
	}))
	defer srv.Close()

	res := New(srv.URL, nil).Log(context.Background(), "hi", store.RoleAssistant, nil)
	if res.ConversationID != 3 {
		t.Errorf("expected retry to succeed, got %+v", res)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestLog_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res := New(srv.URL, nil).Log(context.Background(), "hi", store.RoleUser, nil)
	if res.ConversationID != NotLogged {
		t.Errorf("expected NotLogged, got %d", res.ConversationID)
	}
	if calls.Load() != attempts {
		t.Errorf("expected %d attempts, got %d", attempts, calls.Load())
	}
}

func TestLog_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if res := New(url, nil).Log(context.Background(), "hi", store.RoleUser, nil); res.ConversationID != NotLogged {
		t.Errorf("expected NotLogged, got %+v", res)
	}
}

func TestLog_UndecodableSuccessIsNotResent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		io.WriteString(w, "<html>ok</html>") //nolint:errcheck
	}))
	defer srv.Close()

	res := New(srv.URL, nil).Log(context.Background(), "add task rotate tyres", store.RoleUser, nil)
	if res.ConversationID != NotLogged {
		t.Errorf("expected NotLogged, got %+v", res)
	}
	if calls.Load() != 1 {
		t.Errorf("accepted message was sent %d times", calls.Load())
	}
}
