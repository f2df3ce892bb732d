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

// SubBoardHandler handles the sub-board lifecycle: create, create from
// a blueprint, clone from a template board, unlink, recount.
type SubBoardHandler struct {
	service    *board.Service
	engine     *syncer.Engine
	blueprints map[string]*models.TemplateSpec
	logger     *slog.Logger
}

// NewSubBoardHandler creates a new sub-board handler. blueprints maps
// names to YAML-loaded template specs; may be empty.
func NewSubBoardHandler(service *board.Service, engine *syncer.Engine, blueprints map[string]*models.TemplateSpec, logger *slog.Logger) *SubBoardHandler {
	return &SubBoardHandler{
		service:    service,
		engine:     engine,
		blueprints: blueprints,
		logger:     logger,
	}
}

// CreateSubBoard creates an empty sub-board under a card.
// POST /api/cards/{id}/subboard
func (h *SubBoardHandler) CreateSubBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cardID := r.PathValue("id")

	var req struct {
		ParentBoardID      string `json:"parentBoardId"`
		Name               string `json:"name"`
		ApprovalColumnName string `json:"approvalColumnName,omitempty"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.Board, error) {
		return h.service.CreateSubBoard(ctx, cardID, req.ParentBoardID, req.Name, userID, req.ApprovalColumnName)
	}, "could not create sub-board")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, sub)
}

// CreateFromBlueprint materializes a named YAML blueprint, or an inline
// template spec, as a sub-board under the card.
// POST /api/cards/{id}/subboard/from-template
func (h *SubBoardHandler) CreateFromBlueprint(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cardID := r.PathValue("id")

	var req struct {
		ParentBoardID string               `json:"parentBoardId"`
		Blueprint     string               `json:"blueprint,omitempty"`
		Template      *models.TemplateSpec `json:"template,omitempty"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tmpl := req.Template
	if tmpl == nil {
		var ok bool
		tmpl, ok = h.blueprints[req.Blueprint]
		if !ok {
			httputil.RespondError(w, http.StatusNotFound, "unknown blueprint "+req.Blueprint)
			return
		}
	}

	sub, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.Board, error) {
		return h.service.CreateSubBoardFromTemplate(ctx, cardID, req.ParentBoardID, tmpl, userID)
	}, "could not create sub-board from template")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, sub)
}

// CloneTemplateBoard clones an existing template board's live columns
// and cards as a new sub-board under the card.
// POST /api/cards/{id}/subboard/clone
func (h *SubBoardHandler) CloneTemplateBoard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cardID := r.PathValue("id")

	var req struct {
		ParentBoardID   string `json:"parentBoardId"`
		TemplateBoardID string `json:"templateBoardId"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.Board, error) {
		return h.service.CloneTemplateBoardAsSubBoard(ctx, req.TemplateBoardID, cardID, req.ParentBoardID, userID)
	}, "could not clone template board")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, sub)
}

// RemoveSubBoard unlinks the card's sub-board (archive, never delete).
// DELETE /api/cards/{id}/subboard
func (h *SubBoardHandler) RemoveSubBoard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	cardID := r.PathValue("id")

	var req struct {
		ParentBoardID string `json:"parentBoardId"`
		SubBoardID    string `json:"subBoardId"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		return h.service.RemoveSubBoard(ctx, req.ParentBoardID, cardID, req.SubBoardID)
	}, "could not remove sub-board")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recount recomputes the card's approval counters from its sub-board.
// POST /api/cards/{id}/recount
func (h *SubBoardHandler) Recount(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	cardID := r.PathValue("id")

	var req struct {
		ParentBoardID string `json:"parentBoardId"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		return h.service.RecalculateAndUpdateApprovedCount(ctx, req.ParentBoardID, cardID)
	}, "could not recompute counters")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
