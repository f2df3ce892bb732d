package board

import (
	"context"
	"fmt"

	"boardsync/internal/config"
	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// PermanentlyDeleteBoard is the explicit hard-delete path: it removes
// the board and all descendant data, deepest first. Descendant boards
// go before this board, a card's comments before the card, a column's
// cards (archived ones included) before the column. Only the board
// owner may invoke it. Soft delete (archive) is the normal lifecycle;
// nothing is ever hard-deleted implicitly.
func (s *Service) PermanentlyDeleteBoard(ctx context.Context, boardID, requestingUserID string) error {
	b, err := s.getBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if b.OwnerID != requestingUserID {
		return &domain.ForbiddenError{
			Message: fmt.Sprintf("only the owner may permanently delete board %s", boardID),
		}
	}
	return s.purgeBoard(ctx, boardID)
}

func (s *Service) purgeBoard(ctx context.Context, boardID string) error {
	// Descendant boards first, archived ones included: the purge has to
	// take orphaned and unlinked sub-boards with it.
	children, err := s.allChildBoards(ctx, boardID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.purgeBoard(ctx, child.ID); err != nil {
			return err
		}
	}

	deleter := newChunkedDeleter(s.adapter)

	cards, err := s.allCards(ctx, boardID)
	if err != nil {
		return err
	}
	for _, card := range cards {
		commentDocs, err := s.adapter.GetDocs(ctx, store.Query{
			Collection: s.colls.Comments,
			Filters:    []store.Filter{{Field: "cardId", Op: store.OpEqual, Value: card.ID}},
		})
		if err != nil {
			return err
		}
		for _, c := range commentDocs {
			if err := deleter.delete(ctx, s.colls.Comments, c.ID); err != nil {
				return err
			}
		}
		if err := deleter.delete(ctx, s.colls.Cards, card.ID); err != nil {
			return err
		}
	}

	columnDocs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Columns,
		Filters:    []store.Filter{{Field: "boardId", Op: store.OpEqual, Value: boardID}},
	})
	if err != nil {
		return err
	}
	for _, col := range columnDocs {
		if err := deleter.delete(ctx, s.colls.Columns, col.ID); err != nil {
			return err
		}
	}

	if err := deleter.delete(ctx, s.colls.Boards, boardID); err != nil {
		return err
	}
	if err := deleter.flush(ctx); err != nil {
		return err
	}

	s.logger.Info("board permanently deleted", "board_id", boardID)
	return nil
}

// allChildBoards is childBoards without the archived filter.
func (s *Service) allChildBoards(ctx context.Context, boardID string) ([]models.Board, error) {
	subDocs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Boards,
		Filters:    []store.Filter{{Field: "parentBoardId", Op: store.OpEqual, Value: boardID}},
	})
	if err != nil {
		return nil, err
	}
	tmplDocs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Boards,
		Filters:    []store.Filter{{Field: "templateForBoardId", Op: store.OpEqual, Value: boardID}},
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

// allCards returns every card of the board, archived ones included.
func (s *Service) allCards(ctx context.Context, boardID string) ([]models.Card, error) {
	docs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Cards,
		Filters:    []store.Filter{{Field: "boardId", Op: store.OpEqual, Value: boardID}},
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

// chunkedDeleter accumulates deletes into store batches, committing
// each time the batch reaches the store's document limit. Batch order
// preserves enqueue order, so the deepest-first cascade survives the
// chunking.
type chunkedDeleter struct {
	adapter store.Adapter
	batch   store.Batch
}

func newChunkedDeleter(adapter store.Adapter) *chunkedDeleter {
	return &chunkedDeleter{adapter: adapter, batch: adapter.NewBatch()}
}

func (d *chunkedDeleter) delete(ctx context.Context, collection, id string) error {
	d.batch.Delete(collection, id)
	if d.batch.Len() >= config.MaxBatchDocuments {
		return d.flush(ctx)
	}
	return nil
}

func (d *chunkedDeleter) flush(ctx context.Context) error {
	if d.batch.Len() == 0 {
		return nil
	}
	if err := d.batch.Commit(ctx); err != nil {
		return err
	}
	d.batch = d.adapter.NewBatch()
	return nil
}
