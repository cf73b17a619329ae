package api

import (
	"net/http"

	"github.com/openclaw/mission-control/server/ws"
	"github.com/openclaw/mission-control/store"
)

// taskInput is the body accepted by POST /api/tasks. project_id may be a
// number, a numeric string or null.
type taskInput struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      store.Status     `json:"status"`
	Priority    store.Priority   `json:"priority"`
	ProjectID   store.OptionalID `json:"project_id"`
	DueDate     string           `json:"due_date"`
}

func (in taskInput) task() *store.Task {
	return &store.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		ProjectID:   in.ProjectID.Ptr(),
		DueDate:     in.DueDate,
	}
}

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.TaskFilter

	if s := q.Get("status"); s != "" {
		st := store.Status(s)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = &st
	}
	if p := q.Get("priority"); p != "" {
		pr := store.Priority(p)
		if !pr.Valid() {
			writeError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		filter.Priority = &pr
	}
	if q.Get("project_id") == "none" {
		filter.Unassigned = true
	} else {
		pid, err := queryInt64(r, "project_id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid project id")
			return
		}
		filter.ProjectID = pid
	}

	tasks, err := h.Store.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, tasks)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var in taskInput
	if !decodeBody(w, r, &in) {
		return
	}
	h.insertTask(w, r, in.task())
}

func (h *Handlers) insertTask(w http.ResponseWriter, r *http.Request, t *store.Task) {
	if err := h.Store.CreateTask(r.Context(), t); err != nil {
		writeStoreError(w, err, "task")
		return
	}
	h.events().Publish(ws.TaskCreated, t)
	writeData(w, http.StatusCreated, t)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}
	t, err := h.Store.GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "task")
		return
	}
	writeData(w, http.StatusOK, t)
}

// updateTask applies a partial update. Only fields present in the body
// change; an explicit "project_id": null unassigns the task.
func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}
	var patch store.TaskPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	t, err := h.Store.UpdateTask(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, err, "task")
		return
	}
	if !patch.Empty() {
		h.events().Publish(ws.TaskUpdated, t)
	}
	writeData(w, http.StatusOK, t)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}
	if err := h.Store.DeleteTask(r.Context(), id); err != nil {
		writeStoreError(w, err, "task")
		return
	}
	h.events().Publish(ws.TaskDeleted, map[string]int64{"id": id})
	writeOK(w)
}
