package board

import (
	"context"
	"fmt"
	"time"

	"boardsync/internal/config"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// liveColumns returns the board's non-archived columns in order.
func (s *Service) liveColumns(ctx context.Context, boardID string) ([]models.Column, error) {
	docs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Columns,
		Filters: []store.Filter{
			{Field: "boardId", Op: store.OpEqual, Value: boardID},
			{Field: "archived", Op: store.OpEqual, Value: false},
		},
		OrderBy: "order",
	})
	if err != nil {
		return nil, err
	}

	columns := make([]models.Column, 0, len(docs))
	for _, doc := range docs {
		var col models.Column
		if err := doc.DataTo(&col); err != nil {
			return nil, err
		}
		col.ID = doc.ID
		columns = append(columns, col)
	}
	return columns, nil
}

// CreateColumn appends a column at the end of the board.
func (s *Service) CreateColumn(ctx context.Context, boardID, name, requestingUserID string) (*models.Column, error) {
	b, err := s.getBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(b, requestingUserID); err != nil {
		return nil, err
	}

	existing, err := s.liveColumns(ctx, boardID)
	if err != nil {
		return nil, err
	}
	nextOrder := 0
	for _, col := range existing {
		if col.Order >= nextOrder {
			nextOrder = col.Order + 1
		}
	}

	created, updated := timestamps()
	column := &models.Column{
		ID:        newID(),
		BoardID:   boardID,
		Name:      truncateName(name, config.MaxColumnNameLength),
		Order:     nextOrder,
		CreatedAt: created,
		UpdatedAt: updated,
	}
	if err := s.setColumn(ctx, column); err != nil {
		return nil, err
	}
	return column, nil
}

// RenameColumn renames a column. Renames can change which column is the
// board's approval column; the caller triggers a counter recompute on
// the parent card if this board is a sub-board.
func (s *Service) RenameColumn(ctx context.Context, columnID, name, requestingUserID string) error {
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

	return s.adapter.Update(ctx, s.colls.Columns, columnID, map[string]any{
		"name":      truncateName(name, config.MaxColumnNameLength),
		"updatedAt": time.Now().UTC(),
	})
}

// ArchiveColumn soft-deletes a column. Its cards stay put; they simply
// stop being "live" for counter purposes when archived individually.
func (s *Service) ArchiveColumn(ctx context.Context, columnID, requestingUserID string) error {
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
	if column.Archived {
		return nil
	}

	return s.adapter.Update(ctx, s.colls.Columns, columnID, map[string]any{
		"archived":  true,
		"updatedAt": time.Now().UTC(),
	})
}

// ReorderColumns assigns fresh dense orders following the given id
// sequence. Ids not belonging to the board are rejected; omitted live
// columns keep their relative order after the listed ones.
func (s *Service) ReorderColumns(ctx context.Context, boardID string, orderedIDs []string, requestingUserID string) error {
	b, err := s.getBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := requireMember(b, requestingUserID); err != nil {
		return err
	}

	columns, err := s.liveColumns(ctx, boardID)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.Column, len(columns))
	for i := range columns {
		byID[columns[i].ID] = &columns[i]
	}

	now := time.Now().UTC()
	batch := s.adapter.NewBatch()
	order := 0
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, ok := byID[id]; !ok {
			return fmt.Errorf("column %s does not belong to board %s", id, boardID)
		}
		batch.Update(s.colls.Columns, id, map[string]any{"order": order, "updatedAt": now})
		seen[id] = true
		order++
	}
	for _, col := range columns {
		if seen[col.ID] {
			continue
		}
		batch.Update(s.colls.Columns, col.ID, map[string]any{"order": order, "updatedAt": now})
		order++
	}
	return batch.Commit(ctx)
}
