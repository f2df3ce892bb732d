// Package board implements the board hierarchy engines: membership
// propagation across sub-boards and templates, sub-board lifecycle,
// approval counter maintenance, and the CRUD operations that feed them.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// UserResolver resolves invitation emails to stored user profiles.
type UserResolver interface {
	ResolveEmail(ctx context.Context, email string) (*models.UserProfile, error)
}

// Service exposes all board mutations. Every method performs
// whole-field read-modify-write against the store: no compare-and-swap
// is available, concurrent writers race and the later write wins per
// field.
type Service struct {
	adapter store.Adapter
	colls   *store.Collections
	users   UserResolver
	logger  *slog.Logger
}

// NewService creates a board service.
func NewService(adapter store.Adapter, colls *store.Collections, users UserResolver, logger *slog.Logger) *Service {
	return &Service{
		adapter: adapter,
		colls:   colls,
		users:   users,
		logger:  logger,
	}
}

func newID() string {
	return uuid.NewString()
}

func (s *Service) getBoard(ctx context.Context, boardID string) (*models.Board, error) {
	doc, err := s.adapter.Get(ctx, s.colls.Boards, boardID)
	if err != nil {
		return nil, fmt.Errorf("board %s: %w", boardID, err)
	}
	var board models.Board
	if err := doc.DataTo(&board); err != nil {
		return nil, err
	}
	board.ID = doc.ID
	return &board, nil
}

func (s *Service) getCard(ctx context.Context, cardID string) (*models.Card, error) {
	doc, err := s.adapter.Get(ctx, s.colls.Cards, cardID)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", cardID, err)
	}
	var card models.Card
	if err := doc.DataTo(&card); err != nil {
		return nil, err
	}
	card.ID = doc.ID
	return &card, nil
}

func (s *Service) getColumn(ctx context.Context, columnID string) (*models.Column, error) {
	doc, err := s.adapter.Get(ctx, s.colls.Columns, columnID)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", columnID, err)
	}
	var column models.Column
	if err := doc.DataTo(&column); err != nil {
		return nil, err
	}
	column.ID = doc.ID
	return &column, nil
}

// requireMember fails with a permission error unless userID is a member
// of the board.
func requireMember(board *models.Board, userID string) error {
	if !board.HasMember(userID) {
		return &domain.ForbiddenError{
			Message: fmt.Sprintf("user %s is not a member of board %s", userID, board.ID),
		}
	}
	return nil
}

func (s *Service) setBoard(ctx context.Context, board *models.Board) error {
	fields, err := store.FieldsOf(board)
	if err != nil {
		return err
	}
	return s.adapter.Set(ctx, s.colls.Boards, board.ID, fields)
}

func (s *Service) setColumn(ctx context.Context, column *models.Column) error {
	fields, err := store.FieldsOf(column)
	if err != nil {
		return err
	}
	return s.adapter.Set(ctx, s.colls.Columns, column.ID, fields)
}

func (s *Service) setCard(ctx context.Context, card *models.Card) error {
	fields, err := store.FieldsOf(card)
	if err != nil {
		return err
	}
	return s.adapter.Set(ctx, s.colls.Cards, card.ID, fields)
}

// truncateName clamps a name to the store's field-length limit, cutting
// on a rune boundary so a multibyte character is never split.
func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

func timestamps() (time.Time, time.Time) {
	now := time.Now().UTC()
	return now, now
}
