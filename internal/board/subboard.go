package board

import (
	"context"
	"fmt"
	"time"

	"boardsync/internal/config"
	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// CreateSubBoard creates a board nested under parentCardID. The new
// board inherits the parent board's full member set (not just the
// creator) and is owned by the requester. On success the parent card's
// link and counters are set in one atomic update.
//
// A card that already links a sub-board rejects the create with a
// conflict. Known gap: the check and the link are separate writes with
// no compare-and-swap on the card's subBoardId, so two users racing
// through the check window can both succeed. The later write wins and
// the other board becomes an orphan still pointing at the card via
// parentCardId.
func (s *Service) CreateSubBoard(ctx context.Context, parentCardID, parentBoardID, name, requestingUserID, approvalColumnName string) (*models.Board, error) {
	parent, err := s.getBoard(ctx, parentBoardID)
	if err != nil {
		return nil, fmt.Errorf("parent board: %w", err)
	}
	if err := requireMember(parent, requestingUserID); err != nil {
		return nil, err
	}
	if err := s.requireUnlinkedCard(ctx, parentCardID); err != nil {
		return nil, err
	}

	created, updated := timestamps()
	sub := &models.Board{
		ID:                 newID(),
		Name:               truncateName(name, config.MaxBoardNameLength),
		OwnerID:            requestingUserID,
		MemberIDs:          append([]string(nil), parent.MemberIDs...),
		ParentCardID:       parentCardID,
		ParentBoardID:      parentBoardID,
		ApprovalColumnName: approvalColumnName,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
	if err := s.setBoard(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.linkSubBoard(ctx, parentCardID, sub.ID, 0, 0); err != nil {
		return nil, err
	}

	s.logger.Info("sub-board created",
		"sub_board_id", sub.ID, "parent_card_id", parentCardID, "parent_board_id", parentBoardID)
	return sub, nil
}

// CreateSubBoardFromTemplate creates a sub-board and materializes the
// blueprint's columns and seed cards inside it. Columns are created
// first so their assigned ids are known before the cards that reference
// them. The parent card's total counter is seeded to the number of
// seed cards; approved starts at 0 regardless of which column the seeds
// land in. Approval is computed going forward, not retroactively.
func (s *Service) CreateSubBoardFromTemplate(ctx context.Context, parentCardID, parentBoardID string, tmpl *models.TemplateSpec, requestingUserID string) (*models.Board, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("%w: template spec required", domain.ErrValidation)
	}

	parent, err := s.getBoard(ctx, parentBoardID)
	if err != nil {
		return nil, fmt.Errorf("parent board: %w", err)
	}
	if err := requireMember(parent, requestingUserID); err != nil {
		return nil, err
	}
	if err := s.requireUnlinkedCard(ctx, parentCardID); err != nil {
		return nil, err
	}

	created, updated := timestamps()
	sub := &models.Board{
		ID:                 newID(),
		Name:               truncateName(tmpl.Name, config.MaxBoardNameLength),
		OwnerID:            requestingUserID,
		MemberIDs:          append([]string(nil), parent.MemberIDs...),
		ParentCardID:       parentCardID,
		ParentBoardID:      parentBoardID,
		ApprovalColumnName: tmpl.ApprovalColumnName,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
	if err := s.setBoard(ctx, sub); err != nil {
		return nil, err
	}

	seeded := 0
	for order, tmplCol := range tmpl.Columns {
		column := &models.Column{
			ID:        newID(),
			BoardID:   sub.ID,
			Name:      truncateName(tmplCol.Name, config.MaxColumnNameLength),
			Order:     order,
			CreatedAt: created,
			UpdatedAt: updated,
		}
		if err := s.setColumn(ctx, column); err != nil {
			return nil, err
		}

		for cardOrder, seed := range tmplCol.Cards {
			card := &models.Card{
				ID:          newID(),
				BoardID:     sub.ID,
				ColumnID:    column.ID,
				Title:       truncateName(seed.Title, config.MaxCardTitleLength),
				Description: seed.Description,
				Order:       cardOrder,
				CreatedAt:   created,
				UpdatedAt:   updated,
			}
			if err := s.setCard(ctx, card); err != nil {
				return nil, err
			}
			seeded++
		}
	}

	if err := s.linkSubBoard(ctx, parentCardID, sub.ID, 0, seeded); err != nil {
		return nil, err
	}

	s.logger.Info("sub-board created from template",
		"sub_board_id", sub.ID, "parent_card_id", parentCardID, "seed_cards", seeded)
	return sub, nil
}

// CloneTemplateBoardAsSubBoard copies an existing template board's live
// columns and cards into a brand-new sub-board under parentCardID.
// Column ids are remapped old to new; a card whose column fails to map
// is skipped rather than cloned dangling (should not occur for an
// internally-consistent template). Attachments are not copied.
func (s *Service) CloneTemplateBoardAsSubBoard(ctx context.Context, templateBoardID, parentCardID, parentBoardID, requestingUserID string) (*models.Board, error) {
	parent, err := s.getBoard(ctx, parentBoardID)
	if err != nil {
		return nil, fmt.Errorf("parent board: %w", err)
	}
	if err := requireMember(parent, requestingUserID); err != nil {
		return nil, err
	}
	if err := s.requireUnlinkedCard(ctx, parentCardID); err != nil {
		return nil, err
	}

	template, err := s.getBoard(ctx, templateBoardID)
	if err != nil {
		return nil, fmt.Errorf("template board: %w", err)
	}

	templateColumns, err := s.liveColumns(ctx, templateBoardID)
	if err != nil {
		return nil, err
	}
	templateCards, err := s.liveCards(ctx, templateBoardID)
	if err != nil {
		return nil, err
	}

	created, updated := timestamps()
	sub := &models.Board{
		ID:                 newID(),
		Name:               truncateName(template.Name, config.MaxBoardNameLength),
		OwnerID:            requestingUserID,
		MemberIDs:          append([]string(nil), parent.MemberIDs...),
		ParentCardID:       parentCardID,
		ParentBoardID:      parentBoardID,
		ApprovalColumnName: template.ApprovalColumnName,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
	if err := s.setBoard(ctx, sub); err != nil {
		return nil, err
	}

	columnIDMap := make(map[string]string, len(templateColumns))
	for _, tmplCol := range templateColumns {
		column := &models.Column{
			ID:        newID(),
			BoardID:   sub.ID,
			Name:      tmplCol.Name,
			Order:     tmplCol.Order,
			CreatedAt: created,
			UpdatedAt: updated,
		}
		if err := s.setColumn(ctx, column); err != nil {
			return nil, err
		}
		columnIDMap[tmplCol.ID] = column.ID
	}

	cloned := 0
	for _, tmplCard := range templateCards {
		newColumnID, ok := columnIDMap[tmplCard.ColumnID]
		if !ok {
			s.logger.Warn("skipping card with unmapped column",
				"template_board_id", templateBoardID, "card_id", tmplCard.ID, "column_id", tmplCard.ColumnID)
			continue
		}
		card := &models.Card{
			ID:          newID(),
			BoardID:     sub.ID,
			ColumnID:    newColumnID,
			Title:       tmplCard.Title,
			Description: tmplCard.Description,
			Order:       tmplCard.Order,
			CreatedAt:   created,
			UpdatedAt:   updated,
		}
		if err := s.setCard(ctx, card); err != nil {
			return nil, err
		}
		cloned++
	}

	if err := s.linkSubBoard(ctx, parentCardID, sub.ID, 0, cloned); err != nil {
		return nil, err
	}

	s.logger.Info("template board cloned as sub-board",
		"template_board_id", templateBoardID, "sub_board_id", sub.ID, "cards", cloned)
	return sub, nil
}

// RemoveSubBoard severs the link from the parent's perspective: the
// card's subBoardId and both counters are cleared, and the child board
// is archived, never hard-deleted. The child keeps its parentCardId for
// audit and potential recovery.
func (s *Service) RemoveSubBoard(ctx context.Context, parentBoardID, parentCardID, subBoardID string) error {
	err := s.adapter.Update(ctx, s.colls.Cards, parentCardID, map[string]any{
		"subBoardId":            store.DeleteField,
		"subBoardApprovedCount": store.DeleteField,
		"subBoardTotalCount":    store.DeleteField,
		"updatedAt":             time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("unlink parent card: %w", err)
	}

	err = s.adapter.Update(ctx, s.colls.Boards, subBoardID, map[string]any{
		"archived":  true,
		"updatedAt": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("archive sub-board: %w", err)
	}

	s.logger.Info("sub-board removed",
		"sub_board_id", subBoardID, "parent_card_id", parentCardID, "parent_board_id", parentBoardID)
	return nil
}

// linkSubBoard sets the parent card's link and counters in one update.
// requireUnlinkedCard fetches the parent card and rejects the create
// when it already links a live sub-board. At most one live sub-board
// per card; the existing one must be removed first.
func (s *Service) requireUnlinkedCard(ctx context.Context, cardID string) error {
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return fmt.Errorf("parent card: %w", err)
	}
	if card.HasSubBoard() {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("card %s already has a sub-board", cardID),
			ResourceType: "board",
			ResourceID:   card.SubBoardID,
		}
	}
	return nil
}

func (s *Service) linkSubBoard(ctx context.Context, parentCardID, subBoardID string, approved, total int) error {
	err := s.adapter.Update(ctx, s.colls.Cards, parentCardID, map[string]any{
		"subBoardId":            subBoardID,
		"subBoardApprovedCount": approved,
		"subBoardTotalCount":    total,
		"updatedAt":             time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("link sub-board to parent card: %w", err)
	}
	return nil
}
