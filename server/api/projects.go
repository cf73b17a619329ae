package api

import (
	"net/http"

	"github.com/openclaw/mission-control/server/ws"
	"github.com/openclaw/mission-control/store"
)

func (h *Handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, projects)
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var p store.Project
	if !decodeBody(w, r, &p) {
		return
	}
	p.ID = 0
	if err := h.Store.CreateProject(r.Context(), &p); err != nil {
		writeStoreError(w, err, "project")
		return
	}
	h.events().Publish(ws.ProjectCreated, p)
	writeData(w, http.StatusCreated, p)
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "project")
	if !ok {
		return
	}
	p, err := h.Store.GetProject(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "project")
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *Handlers) updateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "project")
	if !ok {
		return
	}
	var patch store.ProjectPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	p, err := h.Store.UpdateProject(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, err, "project")
		return
	}
	h.events().Publish(ws.ProjectUpdated, p)
	writeData(w, http.StatusOK, p)
}

// deleteProject removes the project. Its tasks, conversations, notes and
// files stay, unassigned.
func (h *Handlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "project")
	if !ok {
		return
	}
	if err := h.Store.DeleteProject(r.Context(), id); err != nil {
		writeStoreError(w, err, "project")
		return
	}
	h.events().Publish(ws.ProjectDeleted, map[string]int64{"id": id})
	writeOK(w)
}

// projectFromPath resolves {id} to an existing project, writing 400 or 404
// when it cannot.
func (h *Handlers) projectFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(w, r, "project")
	if !ok {
		return 0, false
	}
	if _, err := h.Store.GetProject(r.Context(), id); err != nil {
		writeStoreError(w, err, "project")
		return 0, false
	}
	return id, true
}

func (h *Handlers) listProjectTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "project")
	if !ok {
		return
	}
	tasks, err := h.Store.ListTasks(r.Context(), store.TaskFilter{ProjectID: &id})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, tasks)
}

func (h *Handlers) createProjectTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectFromPath(w, r)
	if !ok {
		return
	}
	var in taskInput
	if !decodeBody(w, r, &in) {
		return
	}
	t := in.task()
	t.ProjectID = &id
	h.insertTask(w, r, t)
}

func (h *Handlers) listProjectConversations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "project")
	if !ok {
		return
	}
	f := store.ConversationFilter{ProjectID: &id, IncludeArchived: r.URL.Query().Get("archived") == "true"}
	convs, err := h.Store.ListConversations(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, convs)
}

func (h *Handlers) createProjectConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectFromPath(w, r)
	if !ok {
		return
	}
	var c store.Conversation
	if !decodeBody(w, r, &c) {
		return
	}
	c.ID = 0
	c.ProjectID = &id
	h.insertConversation(w, r, &c)
}

func (h *Handlers) listProjectNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "project")
	if !ok {
		return
	}
	notes, err := h.Store.ListNotes(r.Context(), &id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, notes)
}

func (h *Handlers) createProjectNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.projectFromPath(w, r)
	if !ok {
		return
	}
	var n store.Note
	if !decodeBody(w, r, &n) {
		return
	}
	n.ID = 0
	n.ProjectID = &id
	h.insertNote(w, r, &n)
}
