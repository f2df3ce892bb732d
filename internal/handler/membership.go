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

// ProfileResolver resolves member ids to stored user profiles in bulk.
type ProfileResolver interface {
	ResolveIDs(ctx context.Context, userIDs []string) ([]*models.UserProfile, error)
}

// MembershipHandler handles member list/add/remove requests. Add and
// remove trigger recursive propagation to sub-boards and templates
// after the direct mutation succeeds.
type MembershipHandler struct {
	service  *board.Service
	profiles ProfileResolver
	engine   *syncer.Engine
	logger   *slog.Logger
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(service *board.Service, profiles ProfileResolver, engine *syncer.Engine, logger *slog.Logger) *MembershipHandler {
	return &MembershipHandler{
		service:  service,
		profiles: profiles,
		engine:   engine,
		logger:   logger,
	}
}

// ListMembers returns the resolved profiles of the board's members.
// GET /api/boards/{id}/members
func (h *MembershipHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	b, err := h.service.GetBoard(r.Context(), boardID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	members, err := h.profiles.ResolveIDs(r.Context(), b.MemberIDs)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, members)
}

// AddMember invites a user by email.
// POST /api/boards/{id}/members
func (h *MembershipHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")

	var req struct {
		Email string `json:"email"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inviter := &models.InviterInfo{UserID: userID}
	added, err := syncer.WithResult(r.Context(), h.engine, func(ctx context.Context) (*models.UserProfile, error) {
		return h.service.AddMember(ctx, boardID, req.Email, inviter)
	}, "could not add member")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, added)
}

// RemoveMember removes a user from the board and its descendants.
// DELETE /api/boards/{id}/members/{userId}
func (h *MembershipHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	boardID := r.PathValue("id")
	memberID := r.PathValue("userId")

	err := h.engine.WithSync(r.Context(), func(ctx context.Context) error {
		return h.service.RemoveMember(ctx, boardID, memberID, userID)
	}, "could not remove member")
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
