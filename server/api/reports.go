package api

import (
	"net/http"

	"github.com/openclaw/mission-control/store"
)

func (h *Handlers) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Store.ListReports(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, reports)
}

func (h *Handlers) createReport(w http.ResponseWriter, r *http.Request) {
	var rep store.Report
	if !decodeBody(w, r, &rep) {
		return
	}
	rep.ID = 0
	if err := h.Store.CreateReport(r.Context(), &rep); err != nil {
		writeStoreError(w, err, "report")
		return
	}
	writeData(w, http.StatusCreated, rep)
}

func (h *Handlers) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "report")
	if !ok {
		return
	}
	rep, err := h.Store.GetReport(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "report")
		return
	}
	writeData(w, http.StatusOK, rep)
}
