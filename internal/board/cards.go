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

// liveCards returns the board's non-archived cards.
func (s *Service) liveCards(ctx context.Context, boardID string) ([]models.Card, error) {
	docs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Cards,
		Filters: []store.Filter{
			{Field: "boardId", Op: store.OpEqual, Value: boardID},
			{Field: "archived", Op: store.OpEqual, Value: false},
		},
	})
	if err != nil {
		return nil, err
	}

	cards := make([]models.Card, 0, len(docs))
	for _, doc := range docs {
		var card models.Card
		if err := doc.DataTo(&card); err != nil {
			return nil, err
		}
		card.ID = doc.ID
		cards = append(cards, card)
	}
	return cards, nil
}

// CreateCardRequest creates a card at the end of a column.
type CreateCardRequest struct {
	BoardID     string `json:"boardId"`
	ColumnID    string `json:"columnId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"-"`
}

func (r CreateCardRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BoardID, validation.Required),
		validation.Field(&r.ColumnID, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, config.MaxCardTitleLength)),
	)
}

// CreateCard creates a card in the given column.
func (s *Service) CreateCard(ctx context.Context, req *CreateCardRequest) (*models.Card, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	b, err := s.getBoard(ctx, req.BoardID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(b, req.UserID); err != nil {
		return nil, err
	}
	column, err := s.getColumn(ctx, req.ColumnID)
	if err != nil {
		return nil, err
	}
	if column.BoardID != req.BoardID {
		return nil, fmt.Errorf("%w: column %s does not belong to board %s",
			domain.ErrValidation, req.ColumnID, req.BoardID)
	}

	siblings, err := s.liveCards(ctx, req.BoardID)
	if err != nil {
		return nil, err
	}
	nextOrder := 0
	for _, c := range siblings {
		if c.ColumnID == req.ColumnID && c.Order >= nextOrder {
			nextOrder = c.Order + 1
		}
	}

	created, updated := timestamps()
	card := &models.Card{
		ID:          newID(),
		BoardID:     req.BoardID,
		ColumnID:    req.ColumnID,
		Title:       truncateName(req.Title, config.MaxCardTitleLength),
		Description: req.Description,
		Order:       nextOrder,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}
	if err := s.setCard(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

// MoveCard moves a card into a column (possibly on the same board only;
// cross-board moves are not supported). If the card's board is a
// sub-board, the caller follows up with a counter recompute on the
// parent card, since a move into or out of the approval column changes
// the approved count.
func (s *Service) MoveCard(ctx context.Context, cardID, targetColumnID string, order int, requestingUserID string) error {
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return err
	}
	b, err := s.getBoard(ctx, card.BoardID)
	if err != nil {
		return err
	}
	if err := requireMember(b, requestingUserID); err != nil {
		return err
	}

	column, err := s.getColumn(ctx, targetColumnID)
	if err != nil {
		return err
	}
	if column.BoardID != card.BoardID {
		return fmt.Errorf("%w: column %s does not belong to board %s",
			domain.ErrValidation, targetColumnID, card.BoardID)
	}

	return s.adapter.Update(ctx, s.colls.Cards, cardID, map[string]any{
		"columnId":  targetColumnID,
		"order":     order,
		"updatedAt": time.Now().UTC(),
	})
}

// UpdateCardText updates title/description.
func (s *Service) UpdateCardText(ctx context.Context, cardID, title, description, requestingUserID string) error {
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return err
	}
	b, err := s.getBoard(ctx, card.BoardID)
	if err != nil {
		return err
	}
	if err := requireMember(b, requestingUserID); err != nil {
		return err
	}

	return s.adapter.Update(ctx, s.colls.Cards, cardID, map[string]any{
		"title":       truncateName(title, config.MaxCardTitleLength),
		"description": description,
		"updatedAt":   time.Now().UTC(),
	})
}

// ArchiveCard soft-deletes a card. Re-applying to an already-archived
// card is a no-op.
func (s *Service) ArchiveCard(ctx context.Context, cardID, requestingUserID string) error {
	return s.setCardArchived(ctx, cardID, requestingUserID, true)
}

// RestoreCard reverses a soft delete.
func (s *Service) RestoreCard(ctx context.Context, cardID, requestingUserID string) error {
	return s.setCardArchived(ctx, cardID, requestingUserID, false)
}

func (s *Service) setCardArchived(ctx context.Context, cardID, requestingUserID string, archived bool) error {
	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return err
	}
	b, err := s.getBoard(ctx, card.BoardID)
	if err != nil {
		return err
	}
	if err := requireMember(b, requestingUserID); err != nil {
		return err
	}
	if card.Archived == archived {
		return nil
	}

	return s.adapter.Update(ctx, s.colls.Cards, cardID, map[string]any{
		"archived":  archived,
		"updatedAt": time.Now().UTC(),
	})
}

// ReorderCards assigns fresh dense orders within one column following
// the given id sequence.
func (s *Service) ReorderCards(ctx context.Context, columnID string, orderedIDs []string, requestingUserID string) error {
	column, err := s.getColumn(ctx, columnID)
	if err != nil {
		return err
	}
	b, err := s.getBoard(ctx, column.BoardID)
	if err != nil {
		return err
	}
	if err := requireMember(b, requestingUserID); err != nil {
		return err
	}

	cards, err := s.liveCards(ctx, column.BoardID)
	if err != nil {
		return err
	}
	inColumn := make(map[string]bool)
	for _, c := range cards {
		if c.ColumnID == columnID {
			inColumn[c.ID] = true
		}
	}

	now := time.Now().UTC()
	batch := s.adapter.NewBatch()
	for i, id := range orderedIDs {
		if !inColumn[id] {
			return fmt.Errorf("card %s is not a live card of column %s", id, columnID)
		}
		batch.Update(s.colls.Cards, id, map[string]any{"order": i, "updatedAt": now})
	}
	return batch.Commit(ctx)
}
