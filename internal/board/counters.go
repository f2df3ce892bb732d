package board

import (
	"context"
	"fmt"
	"time"
)

// RecalculateAndUpdateApprovedCount recomputes the parent card's
// approval counters from the true state of its linked sub-board and
// writes both back in one update. It is the single source of truth for
// the counters: callers invoke it after any mutation that can change a
// sub-board card's column or archived state (move, archive, restore,
// approval column rename). It does not subscribe to changes itself.
//
// "Approved" means sitting in the sub-board's approval-named column.
// If that column cannot be found (renamed or deleted), approved is 0,
// not an error. A card without a live sub-board link is a no-op.
func (s *Service) RecalculateAndUpdateApprovedCount(ctx context.Context, parentBoardID, parentCardID string) error {
	return s.recalculate(ctx, parentCardID)
}

// RefreshParentCounters recomputes the parent card's counters when
// cardID lives on a sub-board; for cards of normal boards it is a
// no-op. Convenient for callers that just mutated a card and do not
// know whether its board is nested.
func (s *Service) RefreshParentCounters(ctx context.Context, cardID string) error {
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return err
	}
	b, err := s.getBoard(ctx, card.BoardID)
	if err != nil {
		return err
	}
	if !b.IsSubBoard() {
		return nil
	}
	return s.RecalculateAndUpdateApprovedCount(ctx, b.ParentBoardID, b.ParentCardID)
}

func (s *Service) recalculate(ctx context.Context, parentCardID string) error {
	card, err := s.getCard(ctx, parentCardID)
	if err != nil {
		return fmt.Errorf("parent card: %w", err)
	}
	if !card.HasSubBoard() {
		return nil
	}

	sub, err := s.getBoard(ctx, card.SubBoardID)
	if err != nil {
		return fmt.Errorf("sub-board: %w", err)
	}

	columns, err := s.liveColumns(ctx, sub.ID)
	if err != nil {
		return err
	}
	approvalColumnID := ""
	for _, col := range columns {
		if col.Name == sub.ApprovalColumn() {
			approvalColumnID = col.ID
			break
		}
	}

	cards, err := s.liveCards(ctx, sub.ID)
	if err != nil {
		return err
	}

	total := len(cards)
	approved := 0
	if approvalColumnID != "" {
		for _, c := range cards {
			if c.ColumnID == approvalColumnID {
				approved++
			}
		}
	}

	err = s.adapter.Update(ctx, s.colls.Cards, parentCardID, map[string]any{
		"subBoardApprovedCount": approved,
		"subBoardTotalCount":    total,
		"updatedAt":             time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}

	s.logger.Debug("approval counters recomputed",
		"parent_card_id", parentCardID, "approved", approved, "total", total)
	return nil
}
