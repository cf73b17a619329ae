package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openclaw/mission-control/store"
)

func TestClient_ListTasksEncodesQuery(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"data":[{"id":3,"title":"a","status":"Done","priority":"low"}]}`) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok")
	tasks, err := c.ListTasks(context.Background(), TaskQuery{Status: store.StatusDone, ProjectID: "none"})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != 3 || tasks[0].Status != store.StatusDone {
		t.Errorf("unexpected tasks %+v", tasks)
	}
	if gotQuery != "project_id=none&status=Done" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
}

func TestClient_UpdateTaskSendsPatch(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/tasks/9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck
		io.WriteString(w, `{"success":true,"data":{"id":9,"title":"t","status":"Done","priority":"medium"}}`) //nolint:errcheck
	}))
	defer srv.Close()

	done := store.StatusDone
	task, err := New(srv.URL, "").UpdateTask(context.Background(), 9, store.TaskPatch{Status: &done})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if task.Status != store.StatusDone {
		t.Errorf("unexpected status %q", task.Status)
	}
	if len(body) != 1 || body["status"] != "Done" {
		t.Errorf("expected only status in patch body, got %v", body)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"success":false,"error":"Task not found"}`) //nolint:errcheck
	}))
	defer srv.Close()

	err := New(srv.URL, "").DeleteTask(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != "Task not found" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_LoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"success":true,"data":{"token":"jwt-abc"}}`) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	tok, err := c.Login(context.Background(), "admin", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok != "jwt-abc" || c.Token != "jwt-abc" {
		t.Errorf("expected token stored, got %q / %q", tok, c.Token)
	}
}
