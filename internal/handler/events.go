package handler

import (
	"log/slog"
	"net/http"
	"time"

	"boardsync/internal/handler/sse"
	"boardsync/internal/httputil"
	"boardsync/internal/store"
)

// EventsHandler streams a board's card snapshots to UI clients over
// SSE, bridging the store's subscription primitive. The subscription is
// the source of truth for displayed data; the sync status indicator is
// only cosmetic on top of it.
type EventsHandler struct {
	adapter store.Adapter
	colls   *store.Collections
	logger  *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(adapter store.Adapter, colls *store.Collections, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		adapter: adapter,
		colls:   colls,
		logger:  logger,
	}
}

// StreamBoard streams snapshots of a board's live cards until the
// client disconnects.
// GET /api/boards/{id}/events
func (h *EventsHandler) StreamBoard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	boardID := r.PathValue("id")

	writer, err := sse.NewEventWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub, err := h.adapter.Subscribe(r.Context(), store.Query{
		Collection: h.colls.Cards,
		Filters: []store.Filter{
			{Field: "boardId", Op: store.OpEqual, Value: boardID},
			{Field: "archived", Op: store.OpEqual, Value: false},
		},
		OrderBy: "order",
	})
	if err != nil {
		handleError(w, err)
		return
	}
	defer sub.Close()

	keepAlive := sse.NewTickerKeepAlive(10 * time.Second)
	stopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if snap.Err != nil {
				h.logger.Warn("board stream snapshot failed", "board_id", boardID, "error", snap.Err)
				writer.WriteEvent("error", map[string]string{"detail": "snapshot failed"})
				return
			}
			if err := writer.WriteEvent("cards", snap.Docs); err != nil {
				h.logger.Debug("board stream client gone", "board_id", boardID, "error", err)
				return
			}
		case <-stopped:
			return
		case <-r.Context().Done():
			return
		}
	}
}
