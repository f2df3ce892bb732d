package board

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"boardsync/internal/config"
	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// CreateBoardRequest creates a top-level board owned by the requester.
type CreateBoardRequest struct {
	Name               string `json:"name"`
	OwnerID            string `json:"ownerId"`
	ApprovalColumnName string `json:"approvalColumnName,omitempty"`
}

func (r CreateBoardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, config.MaxBoardNameLength)),
		validation.Field(&r.OwnerID, validation.Required),
	)
}

// CreateBoard creates a normal board. The owner is always a member.
func (s *Service) CreateBoard(ctx context.Context, req *CreateBoardRequest) (*models.Board, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	created, updated := timestamps()
	board := &models.Board{
		ID:                 newID(),
		Name:               req.Name,
		OwnerID:            req.OwnerID,
		MemberIDs:          []string{req.OwnerID},
		ApprovalColumnName: req.ApprovalColumnName,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
	if err := s.setBoard(ctx, board); err != nil {
		return nil, err
	}

	s.logger.Info("board created", "board_id", board.ID, "owner_id", board.OwnerID)
	return board, nil
}

// CreateTemplateBoard creates a reusable blueprint board tied to
// parentBoardID. A parent board may have many templates; cloning one
// later produces a brand-new sub-board with copied columns and cards.
func (s *Service) CreateTemplateBoard(ctx context.Context, parentBoardID, name, requestingUserID string) (*models.Board, error) {
	parent, err := s.getBoard(ctx, parentBoardID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(parent, requestingUserID); err != nil {
		return nil, err
	}

	created, updated := timestamps()
	template := &models.Board{
		ID:                 newID(),
		Name:               truncateName(name, config.MaxBoardNameLength),
		OwnerID:            requestingUserID,
		MemberIDs:          append([]string(nil), parent.MemberIDs...),
		IsTemplate:         true,
		TemplateForBoardID: parentBoardID,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
	if err := s.setBoard(ctx, template); err != nil {
		return nil, err
	}

	s.logger.Info("template board created", "template_id", template.ID, "parent_board_id", parentBoardID)
	return template, nil
}

// GetBoard fetches a board; the requester must be a member.
func (s *Service) GetBoard(ctx context.Context, boardID, requestingUserID string) (*models.Board, error) {
	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(board, requestingUserID); err != nil {
		return nil, err
	}
	return board, nil
}

// ListBoardsForUser returns all live boards the user is a member of.
func (s *Service) ListBoardsForUser(ctx context.Context, userID string) ([]models.Board, error) {
	docs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Boards,
		Filters: []store.Filter{
			{Field: "memberIds", Op: store.OpArrayContains, Value: userID},
			{Field: "archived", Op: store.OpEqual, Value: false},
		},
	})
	if err != nil {
		return nil, err
	}

	boards := make([]models.Board, 0, len(docs))
	for _, doc := range docs {
		var b models.Board
		if err := doc.DataTo(&b); err != nil {
			return nil, err
		}
		b.ID = doc.ID
		boards = append(boards, b)
	}
	return boards, nil
}

// RenameBoard renames a board.
func (s *Service) RenameBoard(ctx context.Context, boardID, name, requestingUserID string) error {
	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := requireMember(board, requestingUserID); err != nil {
		return err
	}

	return s.adapter.Update(ctx, s.colls.Boards, boardID, map[string]any{
		"name":      truncateName(name, config.MaxBoardNameLength),
		"updatedAt": time.Now().UTC(),
	})
}

// SetApprovalColumnName overrides which column counts as "approved" on
// parent cards. Counters are not recomputed here; callers trigger
// RecalculateAndUpdateApprovedCount on the parent card afterwards.
func (s *Service) SetApprovalColumnName(ctx context.Context, boardID, columnName, requestingUserID string) error {
	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := requireMember(board, requestingUserID); err != nil {
		return err
	}

	return s.adapter.Update(ctx, s.colls.Boards, boardID, map[string]any{
		"approvalColumnName": columnName,
		"updatedAt":          time.Now().UTC(),
	})
}

// ArchiveBoard soft-deletes a board. Archiving an already-archived
// board is a no-op.
func (s *Service) ArchiveBoard(ctx context.Context, boardID, requestingUserID string) error {
	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := requireMember(board, requestingUserID); err != nil {
		return err
	}
	if board.Archived {
		return nil
	}

	return s.adapter.Update(ctx, s.colls.Boards, boardID, map[string]any{
		"archived":  true,
		"updatedAt": time.Now().UTC(),
	})
}

// RestoreBoard reverses a soft delete.
func (s *Service) RestoreBoard(ctx context.Context, boardID, requestingUserID string) error {
	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := requireMember(board, requestingUserID); err != nil {
		return err
	}
	if !board.Archived {
		return nil
	}

	return s.adapter.Update(ctx, s.colls.Boards, boardID, map[string]any{
		"archived":  false,
		"updatedAt": time.Now().UTC(),
	})
}
