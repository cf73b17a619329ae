package api

import (
	"net/http"

	"github.com/openclaw/mission-control/server/ws"
	"github.com/openclaw/mission-control/store"
)

type noteInput struct {
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	ProjectID store.OptionalID `json:"project_id"`
}

func (h *Handlers) listNotes(w http.ResponseWriter, r *http.Request) {
	pid, err := queryInt64(r, "project_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	notes, err := h.Store.ListNotes(r.Context(), pid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, notes)
}

func (h *Handlers) createNote(w http.ResponseWriter, r *http.Request) {
	var in noteInput
	if !decodeBody(w, r, &in) {
		return
	}
	h.insertNote(w, r, &store.Note{Title: in.Title, Content: in.Content, ProjectID: in.ProjectID.Ptr()})
}

func (h *Handlers) insertNote(w http.ResponseWriter, r *http.Request, n *store.Note) {
	if err := h.Store.CreateNote(r.Context(), n); err != nil {
		writeStoreError(w, err, "note")
		return
	}
	h.events().Publish(ws.NoteChanged, n)
	writeData(w, http.StatusCreated, n)
}

func (h *Handlers) getNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "note")
	if !ok {
		return
	}
	n, err := h.Store.GetNote(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "note")
		return
	}
	writeData(w, http.StatusOK, n)
}

func (h *Handlers) updateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "note")
	if !ok {
		return
	}
	var patch store.NotePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	n, err := h.Store.UpdateNote(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, err, "note")
		return
	}
	h.events().Publish(ws.NoteChanged, n)
	writeData(w, http.StatusOK, n)
}

func (h *Handlers) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "note")
	if !ok {
		return
	}
	if err := h.Store.DeleteNote(r.Context(), id); err != nil {
		writeStoreError(w, err, "note")
		return
	}
	h.events().Publish(ws.NoteChanged, map[string]any{"id": id, "deleted": true})
	writeOK(w)
}
