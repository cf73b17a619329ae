package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/openclaw/mission-control/ingest"
)

const maxWebhookBody = 1 << 20

// webhook logs an inbound chat message and may auto-create a task. Its
// success body is flat rather than enveloped.
func (h *Handlers) webhook(w http.ResponseWriter, r *http.Request) {
	if h.Ingest == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, ingest.ErrInvalidJSON.Error())
		return
	}
	if h.WebhookSecret != "" && !ingest.VerifySignature(h.WebhookSecret, body, r.Header.Get(ingest.SignatureHeader)) {
		h.logger().Warn("webhook signature mismatch", slog.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	payload, err := ingest.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Ingest.Ingest(r.Context(), payload)
	if err != nil {
		h.logger().Error("webhook ingest failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
