// Package client is a typed HTTP client for the mission control API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/openclaw/mission-control/store"
)

// DefaultServer is the address mission control listens on by default.
const DefaultServer = "http://localhost:3000"

// APIError is a non-2xx response. Message is the envelope's error text when
// the server sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client holds HTTP client state for API calls.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New returns a client for baseURL with a 15s request timeout.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends a JSON request and decodes the envelope's data into v (may be
// nil).
func (c *Client) do(ctx context.Context, method, path string, body, v any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 400 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if v == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Status reports server status and version.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Login exchanges credentials for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

// TaskQuery filters ListTasks. ProjectID "none" selects unassigned tasks.
type TaskQuery struct {
	Status    store.Status
	Priority  store.Priority
	ProjectID string
}

func (q TaskQuery) encode() string {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Priority != "" {
		v.Set("priority", string(q.Priority))
	}
	if q.ProjectID != "" {
		v.Set("project_id", q.ProjectID)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListTasks returns tasks newest first.
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]*store.Task, error) {
	var tasks []*store.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks"+q.encode(), nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// NewTask is the body of a task creation.
type NewTask struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      store.Status   `json:"status,omitempty"`
	Priority    store.Priority `json:"priority,omitempty"`
	ProjectID   *int64         `json:"project_id,omitempty"`
	DueDate     string         `json:"due_date,omitempty"`
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, t NewTask) (*store.Task, error) {
	var out store.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id int64, p store.TaskPatch) (*store.Task, error) {
	var out store.Task
	if err := c.do(ctx, http.MethodPatch, "/api/tasks/"+strconv.FormatInt(id, 10), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+strconv.FormatInt(id, 10), nil, nil)
}

// ListProjects returns projects with their task and conversation counts.
func (c *Client) ListProjects(ctx context.Context) ([]*store.ProjectSummary, error) {
	var projects []*store.ProjectSummary
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}
