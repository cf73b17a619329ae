// Package api implements the dashboard's REST handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openclaw/mission-control/external"
	"github.com/openclaw/mission-control/ingest"
	"github.com/openclaw/mission-control/server/ws"
	"github.com/openclaw/mission-control/store"
)

// Store is the persistence the handlers need. *store.Store implements it.
type Store interface {
	CreateTask(ctx context.Context, t *store.Task) error
	GetTask(ctx context.Context, id int64) (*store.Task, error)
	ListTasks(ctx context.Context, f store.TaskFilter) ([]*store.Task, error)
	UpdateTask(ctx context.Context, id int64, p store.TaskPatch) (*store.Task, error)
	DeleteTask(ctx context.Context, id int64) error

	CreateProject(ctx context.Context, p *store.Project) error
	GetProject(ctx context.Context, id int64) (*store.Project, error)
	ListProjects(ctx context.Context) ([]*store.ProjectSummary, error)
	UpdateProject(ctx context.Context, id int64, p store.ProjectPatch) (*store.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	CreateConversation(ctx context.Context, c *store.Conversation) error
	GetConversation(ctx context.Context, id int64) (*store.Conversation, error)
	ListConversations(ctx context.Context, f store.ConversationFilter) ([]*store.Conversation, error)
	ArchiveConversation(ctx context.Context, id int64) (*store.Conversation, error)

	CreateNote(ctx context.Context, n *store.Note) error
	GetNote(ctx context.Context, id int64) (*store.Note, error)
	ListNotes(ctx context.Context, projectID *int64) ([]*store.Note, error)
	UpdateNote(ctx context.Context, id int64, p store.NotePatch) (*store.Note, error)
	DeleteNote(ctx context.Context, id int64) error

	CreateFile(ctx context.Context, f *store.File) error
	GetFile(ctx context.Context, id int64) (*store.File, error)
	ListFiles(ctx context.Context, projectID int64) ([]*store.File, error)
	DeleteFile(ctx context.Context, id int64) error

	CreateReport(ctx context.Context, r *store.Report) error
	GetReport(ctx context.Context, id int64) (*store.Report, error)
	ListReports(ctx context.Context) ([]*store.Report, error)
}

// External groups the outside data sources. Nil members disable their
// routes with 503.
type External struct {
	Calendar          *external.Calendar
	Cron              *external.Cron
	Finance           *external.Finance
	Health            *external.Health
	Docs              *external.Docs
	PortfolioSnapshot string
	ThemeSnapshot     string
}

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Store          Store
	Ingest         *ingest.Service
	WebhookSecret  string
	UploadDir      string
	MaxUploadBytes int64
	External       External
	Events         ws.Publisher
	Logger         *slog.Logger
	Version        string
	StartAt        time.Time
}

func (h *Handlers) events() ws.Publisher {
	if h.Events == nil {
		return ws.Nop{}
	}
	return h.Events
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// RegisterPublic registers the routes that never require a token.
func (h *Handlers) RegisterPublic(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("POST /api/webhook", h.webhook)
	mux.HandleFunc("POST /api/webhook/openclaw", h.webhook)
}

// RegisterRoutes registers the dashboard API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/{id}", h.getTask)
	mux.HandleFunc("PUT /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.deleteTask)

	mux.HandleFunc("GET /api/projects", h.listProjects)
	mux.HandleFunc("POST /api/projects", h.createProject)
	mux.HandleFunc("GET /api/projects/{id}", h.getProject)
	mux.HandleFunc("PATCH /api/projects/{id}", h.updateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.deleteProject)
	mux.HandleFunc("GET /api/projects/{id}/tasks", h.listProjectTasks)
	mux.HandleFunc("POST /api/projects/{id}/tasks", h.createProjectTask)
	mux.HandleFunc("GET /api/projects/{id}/conversations", h.listProjectConversations)
	mux.HandleFunc("POST /api/projects/{id}/conversations", h.createProjectConversation)
	mux.HandleFunc("GET /api/projects/{id}/notes", h.listProjectNotes)
	mux.HandleFunc("POST /api/projects/{id}/notes", h.createProjectNote)
	mux.HandleFunc("GET /api/projects/{id}/files", h.listProjectFiles)
	mux.HandleFunc("POST /api/projects/{id}/files", h.uploadProjectFile)

	mux.HandleFunc("GET /api/conversations", h.listConversations)
	mux.HandleFunc("POST /api/conversations", h.createConversation)
	mux.HandleFunc("GET /api/conversations/{id}", h.getConversation)
	mux.HandleFunc("POST /api/conversations/{id}/archive", h.archiveConversation)
	mux.HandleFunc("POST /api/conversations/{id}/create-task", h.createTaskFromConversation)

	mux.HandleFunc("GET /api/notes", h.listNotes)
	mux.HandleFunc("POST /api/notes", h.createNote)
	mux.HandleFunc("GET /api/notes/{id}", h.getNote)
	mux.HandleFunc("PATCH /api/notes/{id}", h.updateNote)
	mux.HandleFunc("DELETE /api/notes/{id}", h.deleteNote)

	mux.HandleFunc("GET /api/files/{id}", h.downloadFile)
	mux.HandleFunc("DELETE /api/files/{id}", h.deleteFile)

	mux.HandleFunc("GET /api/reports", h.listReports)
	mux.HandleFunc("POST /api/reports", h.createReport)
	mux.HandleFunc("GET /api/reports/{id}", h.getReport)

	mux.HandleFunc("GET /api/calendar", h.listCalendar)
	mux.HandleFunc("POST /api/calendar", h.createCalendarEvent)
	mux.HandleFunc("GET /api/cron/jobs", h.listCronJobs)
	mux.HandleFunc("GET /api/cron/jobs/{id}/runs", h.listCronRuns)
	mux.HandleFunc("GET /api/finance/summary", h.financeSummary)
	mux.HandleFunc("GET /api/finance/accounts", h.financeAccounts)
	mux.HandleFunc("GET /api/finance/{portfolioId}", h.financePortfolio)
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /api/investments/portfolio", h.investmentsPortfolio)
	mux.HandleFunc("GET /api/investments/themes", h.investmentsThemes)
	mux.HandleFunc("GET /api/docs", h.readDoc)
}

// envelope is the shape of every API response except the webhook's.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData writes a success envelope around data.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeOK writes a success envelope without data.
func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// writeStoreError maps store sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error, entity string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, capitalize(entity)+" not found")
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, strings.TrimSuffix(err.Error(), ": "+store.ErrInvalid.Error()))
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pathID parses the {id} path segment. It writes a 400 and returns false
// when the segment is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request, entity string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+entity+" id")
		return 0, false
	}
	return id, true
}

// decodeBody decodes the JSON request body into v, writing a 400 on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// queryInt64 parses an optional numeric query parameter.
func queryInt64(r *http.Request, key string) (*int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// --- Status ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	data := map[string]any{
		"status":  "ok",
		"version": h.Version,
	}
	if !h.StartAt.IsZero() {
		data["uptime_seconds"] = int64(time.Since(h.StartAt).Seconds())
	}
	writeData(w, http.StatusOK, data)
}
