package handler

import (
	"context"
	"log/slog"
	"net/http"

	"boardsync/internal/board"
	"boardsync/internal/domain/models"
	"boardsync/internal/httputil"
	"boardsync/internal/syncer"
)

// CardHandler handles column and card HTTP requests.
type CardHandler struct {
	service *board.Service
	engine  *syncer.Engine
	logger  *slog.Logger
}

// NewCardHandler creates a new card handler
func NewCardHandler(service *board.Service, engine *syncer.Engine, logger *slog.Logger) *CardHandler {
	return &CardHandler{
		service: service,
		engine:  engine,
		logger:  logger,
	}
}

// CreateColumn appends a column to a board.
// POST /api/boards/{id}/columns
func (h *CardHandler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	var req struct {
		Name string `json:"name"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	column, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.Column, error) {
		return h.service.CreateColumn(ctx, boardID, req.Name, userID)
	}, "could not create column")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, column)
}

// ReorderColumns assigns a new column order on a board.
// PUT /api/boards/{id}/columns/order
func (h *CardHandler) ReorderColumns(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	var req struct {
		ColumnIDs []string `json:"columnIds"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		return h.service.ReorderColumns(ctx, boardID, req.ColumnIDs, userID)
	}, "could not reorder columns")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCard creates a card in a column.
// POST /api/cards
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req board.CreateCardRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	card, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.Card, error) {
		return h.service.CreateCard(ctx, &req)
	}, "could not create card")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, card)
}

// MoveCard moves a card between columns of its board. After a move on a
// sub-board, the parent card's approval counters are recomputed.
// POST /api/cards/{id}/move
func (h *CardHandler) MoveCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cardID := r.PathValue("id")

	var req struct {
		ColumnID string `json:"columnId"`
		Order    int    `json:"order"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		if err := h.service.MoveCard(ctx, cardID, req.ColumnID, req.Order, userID); err != nil {
			return err
		}
		return h.service.RefreshParentCounters(ctx, cardID)
	}, "could not move card")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveCard soft-deletes a card, then refreshes parent counters.
// POST /api/cards/{id}/archive
func (h *CardHandler) ArchiveCard(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

// RestoreCard reverses a soft delete, then refreshes parent counters.
// POST /api/cards/{id}/restore
func (h *CardHandler) RestoreCard(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *CardHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cardID := r.PathValue("id")

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		var opErr error
		if archived {
			opErr = h.service.ArchiveCard(ctx, cardID, userID)
		} else {
			opErr = h.service.RestoreCard(ctx, cardID, userID)
		}
		if opErr != nil {
			return opErr
		}
		return h.service.RefreshParentCounters(ctx, cardID)
	}, "could not update card")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportCards bulk-creates cards in a column.
// POST /api/boards/{id}/import
func (h *CardHandler) ImportCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	var req struct {
		ColumnID string             `json:"columnId"`
		Cards    []board.ImportCard `json:"cards"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	imported, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (int, error) {
		return h.service.ImportCards(ctx, boardID, req.ColumnID, req.Cards, userID)
	}, "could not import cards")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

// AddComment appends a comment to a card.
// POST /api/cards/{id}/comments
func (h *CardHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cardID := r.PathValue("id")

	var req struct {
		Body string `json:"body"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.Comment, error) {
		return h.service.AddComment(ctx, cardID, userID, req.Body)
	}, "could not add comment")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, comment)
}

// ListComments returns a card's comments.
// GET /api/cards/{id}/comments
func (h *CardHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	comments, err := h.service.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, comments)
}
