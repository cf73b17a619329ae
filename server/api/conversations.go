package api

import (
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/openclaw/mission-control/server/ws"
	"github.com/openclaw/mission-control/store"
)

func (h *Handlers) listConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.ConversationFilter

	pid, err := queryInt64(r, "project_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	f.ProjectID = pid
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	f.IncludeArchived = q.Get("archived") == "true"

	convs, err := h.Store.ListConversations(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, convs)
}

func (h *Handlers) createConversation(w http.ResponseWriter, r *http.Request) {
	var c store.Conversation
	if !decodeBody(w, r, &c) {
		return
	}
	c.ID = 0
	c.Archived = false
	h.insertConversation(w, r, &c)
}

func (h *Handlers) insertConversation(w http.ResponseWriter, r *http.Request, c *store.Conversation) {
	if c.Role == "" {
		c.Role = store.RoleUser
	}
	if err := h.Store.CreateConversation(r.Context(), c); err != nil {
		writeStoreError(w, err, "conversation")
		return
	}
	h.events().Publish(ws.ConversationCreated, c)
	writeData(w, http.StatusCreated, c)
}

func (h *Handlers) getConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "conversation")
	if !ok {
		return
	}
	c, err := h.Store.GetConversation(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "conversation")
		return
	}
	writeData(w, http.StatusOK, c)
}

func (h *Handlers) archiveConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "conversation")
	if !ok {
		return
	}
	c, err := h.Store.ArchiveConversation(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "conversation")
		return
	}
	writeData(w, http.StatusOK, c)
}

type conversationTaskInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Priority    store.Priority `json:"priority"`
}

// createTaskFromConversation turns a logged message into a task by hand.
// The task inherits the conversation's project and is marked auto-created.
func (h *Handlers) createTaskFromConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "conversation")
	if !ok {
		return
	}
	conv, err := h.Store.GetConversation(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "conversation")
		return
	}
	var in conversationTaskInput
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	convID := conv.ID
	t := &store.Task{
		Title:          in.Title,
		Description:    in.Description,
		Status:         normalizeStatus(in.Status),
		Priority:       in.Priority,
		ProjectID:      conv.ProjectID,
		ConversationID: &convID,
		AutoCreated:    true,
	}
	h.insertTask(w, r, t)
}

// normalizeStatus title-cases free-form status input, so "in progress"
// becomes "In Progress". Empty input is Backlog.
func normalizeStatus(s string) store.Status {
	s = strings.TrimSpace(s)
	if s == "" {
		return store.StatusBacklog
	}
	return store.Status(cases.Title(language.Und).String(s))
}
