package board

import (
	"context"
	"fmt"
	"slices"
	"time"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// AddMember resolves email to a user and adds them to the board's
// member set, then propagates the addition to every descendant board
// (sub-boards and templates, recursively) so a user who can see a
// parent board can see everything nested under it. Idempotent: adding
// a user who is already a member everywhere changes nothing.
func (s *Service) AddMember(ctx context.Context, boardID, email string, inviter *models.InviterInfo) (*models.UserProfile, error) {
	b, err := s.getBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if inviter != nil {
		if err := requireMember(b, inviter.UserID); err != nil {
			return nil, err
		}
	}

	user, err := s.users.ResolveEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("resolve invitee %s: %w", email, err)
	}

	if !b.HasMember(user.ID) {
		members := append(append([]string(nil), b.MemberIDs...), user.ID)
		err := s.adapter.Update(ctx, s.colls.Boards, boardID, map[string]any{
			"memberIds": members,
			"updatedAt": time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("member added", "board_id", boardID, "user_id", user.ID)
	}

	// The direct mutation is committed; descendant propagation runs
	// after it and never rolls it back.
	s.propagateAdd(ctx, boardID, user.ID)
	return user, nil
}

// RemoveMember removes userID from the board's member set and
// propagates the removal to every descendant board. The board owner
// cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, boardID, userID, requestingUserID string) error {
	b, err := s.getBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := requireMember(b, requestingUserID); err != nil {
		return err
	}
	if userID == b.OwnerID {
		return &domain.ForbiddenError{
			Message: fmt.Sprintf("user %s owns board %s and cannot be removed", userID, boardID),
		}
	}

	if b.HasMember(userID) {
		members := slices.DeleteFunc(append([]string(nil), b.MemberIDs...), func(id string) bool {
			return id == userID
		})
		err := s.adapter.Update(ctx, s.colls.Boards, boardID, map[string]any{
			"memberIds": members,
			"updatedAt": time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		s.logger.Info("member removed", "board_id", boardID, "user_id", userID)
	}

	s.propagateRemove(ctx, boardID, userID)
	return nil
}

// childBoards returns the live boards directly nested under boardID:
// its sub-boards unioned with its templates. The parent/child edge is
// established only at creation time and a board has at most one parent
// edge, so the descendant graph is a tree and traversal terminates.
func (s *Service) childBoards(ctx context.Context, boardID string) ([]models.Board, error) {
	subDocs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Boards,
		Filters: []store.Filter{
			{Field: "parentBoardId", Op: store.OpEqual, Value: boardID},
			{Field: "archived", Op: store.OpEqual, Value: false},
		},
	})
	if err != nil {
		return nil, err
	}
	tmplDocs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Boards,
		Filters: []store.Filter{
			{Field: "templateForBoardId", Op: store.OpEqual, Value: boardID},
			{Field: "archived", Op: store.OpEqual, Value: false},
		},
	})
	if err != nil {
		return nil, err
	}

	var children []models.Board
	for _, doc := range append(subDocs, tmplDocs...) {
		var child models.Board
		if err := doc.DataTo(&child); err != nil {
			return nil, err
		}
		child.ID = doc.ID
		children = append(children, child)
	}
	return children, nil
}

// propagateAdd applies a membership addition to every descendant board.
//
// A failure on one child is logged and skipped: the parent mutation has
// already been committed and sibling subtrees are independent, so the
// traversal keeps going. This leaves a temporary inconsistency window
// for the failed subtree (eventual consistency, re-converged by the
// next membership change), never a rolled-back parent.
func (s *Service) propagateAdd(ctx context.Context, boardID, userID string) {
	children, err := s.childBoards(ctx, boardID)
	if err != nil {
		s.logger.Warn("membership propagation query failed",
			"board_id", boardID, "user_id", userID, "error", err)
		return
	}

	for _, child := range children {
		if !child.HasMember(userID) {
			members := append(append([]string(nil), child.MemberIDs...), userID)
			err := s.adapter.Update(ctx, s.colls.Boards, child.ID, map[string]any{
				"memberIds": members,
				"updatedAt": time.Now().UTC(),
			})
			if err != nil {
				s.logger.Warn("membership propagation failed",
					"board_id", child.ID, "user_id", userID, "error", err)
				continue
			}
		}
		s.propagateAdd(ctx, child.ID, userID)
	}
}

// propagateRemove applies a membership removal to every descendant
// board. A child board's owner is never removed even when the same user
// lost access to the parent: ownership is sticky, so the traversal only
// descends past such a board without touching its member set.
func (s *Service) propagateRemove(ctx context.Context, boardID, userID string) {
	children, err := s.childBoards(ctx, boardID)
	if err != nil {
		s.logger.Warn("membership propagation query failed",
			"board_id", boardID, "user_id", userID, "error", err)
		return
	}

	for _, child := range children {
		if child.HasMember(userID) && child.OwnerID != userID {
			members := slices.DeleteFunc(append([]string(nil), child.MemberIDs...), func(id string) bool {
				return id == userID
			})
			err := s.adapter.Update(ctx, s.colls.Boards, child.ID, map[string]any{
				"memberIds": members,
				"updatedAt": time.Now().UTC(),
			})
			if err != nil {
				s.logger.Warn("membership propagation failed",
					"board_id", child.ID, "user_id", userID, "error", err)
				continue
			}
		}
		s.propagateRemove(ctx, child.ID, userID)
	}
}
