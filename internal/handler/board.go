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

// BoardHandler handles board HTTP requests.
type BoardHandler struct {
	service *board.Service
	engine  *syncer.Engine
	logger  *slog.Logger
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(service *board.Service, engine *syncer.Engine, logger *slog.Logger) *BoardHandler {
	return &BoardHandler{
		service: service,
		engine:  engine,
		logger:  logger,
	}
}

// HealthCheck responds 200 for load balancer probes.
// GET /health
func (h *BoardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateBoard creates a top-level board.
// POST /api/boards
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req board.CreateBoardRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OwnerID = userID

	created, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.Board, error) {
		return h.service.CreateBoard(ctx, &req)
	}, "could not create board")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, created)
}

// GetBoard fetches one board.
// GET /api/boards/{id}
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	b, err := h.service.GetBoard(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, b)
}

// ListBoards lists the requester's live boards.
// GET /api/boards
func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	boards, err := h.service.ListBoardsForUser(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, boards)
}

// UpdateBoard renames a board or changes its approval column.
// PATCH /api/boards/{id}
func (h *BoardHandler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	var req struct {
		Name               *string `json:"name"`
		ApprovalColumnName *string `json:"approvalColumnName"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		if req.Name != nil {
			if err := h.service.RenameBoard(ctx, boardID, *req.Name, userID); err != nil {
				return err
			}
		}
		if req.ApprovalColumnName != nil {
			if err := h.service.SetApprovalColumnName(ctx, boardID, *req.ApprovalColumnName, userID); err != nil {
				return err
			}
		}
		return nil
	}, "could not update board")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"id": boardID})
}

// ArchiveBoard soft-deletes a board.
// POST /api/boards/{id}/archive
func (h *BoardHandler) ArchiveBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		return h.service.ArchiveBoard(ctx, boardID, userID)
	}, "could not archive board")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreBoard reverses a soft delete.
// POST /api/boards/{id}/restore
func (h *BoardHandler) RestoreBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		return h.service.RestoreBoard(ctx, boardID, userID)
	}, "could not restore board")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteBoard is the explicit permanent-delete path.
// DELETE /api/boards/{id}
func (h *BoardHandler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		return h.service.PermanentlyDeleteBoard(ctx, boardID, userID)
	}, "could not delete board")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTemplateBoard creates a template blueprint for a board.
// POST /api/boards/{id}/templates
func (h *BoardHandler) CreateTemplateBoard(w http.ResponseWriter, r *http.Request) {
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

	template, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.Board, error) {
		return h.service.CreateTemplateBoard(ctx, boardID, req.Name, userID)
	}, "could not create template")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, template)
}
