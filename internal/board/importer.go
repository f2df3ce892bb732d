package board

import (
	"context"
	"fmt"

	"boardsync/internal/config"
	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// ImportCard is one card of a bulk import.
type ImportCard struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ImportCards bulk-creates cards in one column, splitting the writes
// into atomic batches no larger than the store's per-batch document
// limit. Each batch is all-or-nothing, so a failure can leave earlier
// whole batches applied but never a partially applied batch: the card
// count stays consistent with some batch-aligned prefix of the import.
func (s *Service) ImportCards(ctx context.Context, boardID, columnID string, cards []ImportCard, requestingUserID string) (int, error) {
	b, err := s.getBoard(ctx, boardID)
	if err != nil {
		return 0, err
	}
	if err := requireMember(b, requestingUserID); err != nil {
		return 0, err
	}
	column, err := s.getColumn(ctx, columnID)
	if err != nil {
		return 0, err
	}
	if column.BoardID != boardID {
		return 0, fmt.Errorf("%w: column %s does not belong to board %s",
			domain.ErrValidation, columnID, boardID)
	}

	existing, err := s.liveCards(ctx, boardID)
	if err != nil {
		return 0, err
	}
	nextOrder := 0
	for _, c := range existing {
		if c.ColumnID == columnID && c.Order >= nextOrder {
			nextOrder = c.Order + 1
		}
	}

	created, updated := timestamps()
	imported := 0
	batch := s.adapter.NewBatch()
	for i, ic := range cards {
		card := &models.Card{
			ID:          newID(),
			BoardID:     boardID,
			ColumnID:    columnID,
			Title:       truncateName(ic.Title, config.MaxCardTitleLength),
			Description: ic.Description,
			Order:       nextOrder + i,
			CreatedAt:   created,
			UpdatedAt:   updated,
		}
		fields, err := store.FieldsOf(card)
		if err != nil {
			return imported, err
		}
		batch.Set(s.colls.Cards, card.ID, fields)

		if batch.Len() >= config.MaxBatchDocuments {
			if err := batch.Commit(ctx); err != nil {
				return imported, fmt.Errorf("commit import batch: %w", err)
			}
			imported += batch.Len()
			batch = s.adapter.NewBatch()
		}
	}
	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return imported, fmt.Errorf("commit import batch: %w", err)
		}
		imported += batch.Len()
	}

	s.logger.Info("cards imported", "board_id", boardID, "column_id", columnID, "count", imported)
	return imported, nil
}
