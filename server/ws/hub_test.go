package ws

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHub_ServeSSE_DeliversEvents(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeSSE))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	first, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read connected: %v", err)
	}
	if !strings.Contains(first, `"connected"`) {
		t.Fatalf("first line = %q", first)
	}

	// The client registers before the connected frame is flushed.
	if n := hub.ClientCount(); n != 1 {
		t.Fatalf("ClientCount = %d, want 1", n)
	}
	hub.Publish(TaskCreated, map[string]int{"id": 7})

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		if strings.HasPrefix(line, "data: ") && strings.Contains(line, TaskCreated) {
			if !strings.Contains(line, `"id":7`) {
				t.Errorf("event line = %q", line)
			}
			return
		}
	}
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(ProjectDeleted, nil)
	if hub.ClientCount() != 0 {
		t.Error("expected no clients")
	}
}

func TestNop_Publish(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish(TaskDeleted, 1)
}
