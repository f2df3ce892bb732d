package handler

import (
	"log/slog"
	"net/http"

	"boardsync/internal/httputil"
	"boardsync/internal/syncer"
)

// SyncHandler exposes the sync engine's read-only status and the retry
// trigger bound to the most recent failed operation.
type SyncHandler struct {
	engine *syncer.Engine
	logger *slog.Logger
}

// NewSyncHandler creates a new sync status handler
func NewSyncHandler(engine *syncer.Engine, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, logger: logger}
}

// Status returns {state, pendingCount, lastError, online}.
// GET /api/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.engine.Status())
}

// Retry replays the most recently failed operation verbatim.
// POST /api/sync/retry
func (h *SyncHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Retry(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.engine.Status())
}
