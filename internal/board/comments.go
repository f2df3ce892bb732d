package board

import (
	"context"
	"fmt"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// AddComment appends a comment to a card and bumps the card's comment
// count with the store's atomic increment: concurrent commenters both
// land, unlike a read-modify-write counter.
func (s *Service) AddComment(ctx context.Context, cardID, authorID, body string) (*models.Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: comment body required", domain.ErrValidation)
	}

	card, err := s.getCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	b, err := s.getBoard(ctx, card.BoardID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(b, authorID); err != nil {
		return nil, err
	}

	created, _ := timestamps()
	comment := &models.Comment{
		ID:        newID(),
		CardID:    cardID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: created,
	}
	fields, err := store.FieldsOf(comment)
	if err != nil {
		return nil, err
	}
	if err := s.adapter.Set(ctx, s.colls.Comments, comment.ID, fields); err != nil {
		return nil, err
	}

	err = s.adapter.Update(ctx, s.colls.Cards, cardID, map[string]any{
		"commentCount": store.Increment(1),
	})
	if err != nil {
		return nil, fmt.Errorf("bump comment count: %w", err)
	}
	return comment, nil
}

// DeleteComment removes a comment and decrements the card's count.
func (s *Service) DeleteComment(ctx context.Context, commentID, requestingUserID string) error {
	doc, err := s.adapter.Get(ctx, s.colls.Comments, commentID)
	if err != nil {
		return err
	}
	var comment models.Comment
	if err := doc.DataTo(&comment); err != nil {
		return err
	}
	if comment.AuthorID != requestingUserID {
		return &domain.ForbiddenError{
			Message: fmt.Sprintf("user %s did not author comment %s", requestingUserID, commentID),
		}
	}

	if err := s.adapter.DeleteDoc(ctx, s.colls.Comments, commentID); err != nil {
		return err
	}
	return s.adapter.Update(ctx, s.colls.Cards, comment.CardID, map[string]any{
		"commentCount": store.Increment(-1),
	})
}

// ListComments returns a card's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, cardID string) ([]models.Comment, error) {
	docs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Comments,
		Filters: []store.Filter{
			{Field: "cardId", Op: store.OpEqual, Value: cardID},
		},
		OrderBy: "createdAt",
	})
	if err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		var c models.Comment
		if err := doc.DataTo(&c); err != nil {
			return nil, err
		}
		c.ID = doc.ID
		comments = append(comments, c)
	}
	return comments, nil
}
