package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/openclaw/mission-control/external"
)

// writeExternalError reports an adapter failure. A failed subprocess is
// reported by its stderr, or "Command failed" when it wrote none.
func writeExternalError(w http.ResponseWriter, err error) {
	var exitErr *external.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(exitErr.Stderr)
		if msg == "" {
			msg = "Command failed"
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func unavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, what+" is not configured")
}

// --- Calendar ---

// listCalendar always answers 200; an inaccessible calendar is reported in
// the list's error field.
func (h *Handlers) listCalendar(w http.ResponseWriter, r *http.Request) {
	if h.External.Calendar == nil {
		unavailable(w, "calendar")
		return
	}
	writeData(w, http.StatusOK, h.External.Calendar.List(r.Context()))
}

func (h *Handlers) createCalendarEvent(w http.ResponseWriter, r *http.Request) {
	if h.External.Calendar == nil {
		unavailable(w, "calendar")
		return
	}
	var ev external.NewEvent
	if !decodeBody(w, r, &ev) {
		return
	}
	created, err := h.External.Calendar.Create(r.Context(), ev)
	if err != nil {
		writeExternalError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

// --- Cron ---

func (h *Handlers) listCronJobs(w http.ResponseWriter, r *http.Request) {
	if h.External.Cron == nil {
		unavailable(w, "cron")
		return
	}
	jobs, err := h.External.Cron.Jobs(r.Context())
	if err != nil {
		writeExternalError(w, err)
		return
	}
	writeData(w, http.StatusOK, jobs)
}

func (h *Handlers) listCronRuns(w http.ResponseWriter, r *http.Request) {
	if h.External.Cron == nil {
		unavailable(w, "cron")
		return
	}
	runs, err := h.External.Cron.Runs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeExternalError(w, err)
		return
	}
	writeData(w, http.StatusOK, runs)
}

// --- Finance ---

func (h *Handlers) financeSummary(w http.ResponseWriter, r *http.Request) {
	if h.External.Finance == nil {
		unavailable(w, "finance")
		return
	}
	sum, err := h.External.Finance.Summary(r.Context())
	if err != nil {
		writeExternalError(w, err)
		return
	}
	writeData(w, http.StatusOK, sum)
}

func (h *Handlers) financeAccounts(w http.ResponseWriter, r *http.Request) {
	if h.External.Finance == nil {
		unavailable(w, "finance")
		return
	}
	report, err := h.External.Finance.Accounts(r.Context())
	if err != nil {
		writeExternalError(w, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (h *Handlers) financePortfolio(w http.ResponseWriter, r *http.Request) {
	if h.External.Finance == nil {
		unavailable(w, "finance")
		return
	}
	id := r.PathValue("portfolioId")
	p, ok := h.External.Finance.Portfolio(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Portfolio not found: "+id)
		return
	}
	detail, err := h.External.Finance.Holdings(r.Context(), p)
	if err != nil {
		writeExternalError(w, err)
		return
	}
	writeData(w, http.StatusOK, detail)
}

// --- Snapshots ---

func (h *Handlers) health(w http.ResponseWriter, _ *http.Request) {
	if h.External.Health == nil {
		unavailable(w, "health")
		return
	}
	writeData(w, http.StatusOK, h.External.Health.Report())
}

func (h *Handlers) investmentsPortfolio(w http.ResponseWriter, _ *http.Request) {
	h.serveSnapshot(w, h.External.PortfolioSnapshot, "Portfolio data not found")
}

func (h *Handlers) investmentsThemes(w http.ResponseWriter, _ *http.Request) {
	h.serveSnapshot(w, h.External.ThemeSnapshot, "Theme data not found")
}

func (h *Handlers) serveSnapshot(w http.ResponseWriter, path, missing string) {
	if path == "" {
		writeError(w, http.StatusNotFound, missing)
		return
	}
	data, err := external.ReadSnapshot(path)
	if errors.Is(err, external.ErrNotFound) {
		writeError(w, http.StatusNotFound, missing)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, http.StatusOK, data)
}

// --- Docs ---

func (h *Handlers) readDoc(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeError(w, http.StatusBadRequest, "No path provided")
		return
	}
	if h.External.Docs == nil {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}
	content, err := h.External.Docs.Read(p)
	switch {
	case errors.Is(err, external.ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, external.ErrNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeData(w, http.StatusOK, map[string]string{"content": content})
	}
}
