// Package users resolves user profiles through a process-scoped cache
// in front of the document store. The cache never invalidates itself;
// callers that mutate profiles call Invalidate (or Clear in tests).
package users

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"boardsync/internal/domain"
	"boardsync/internal/domain/models"
	"boardsync/internal/store"
)

// Service looks up user profiles by id or email.
type Service struct {
	adapter store.Adapter
	colls   *store.Collections
	logger  *slog.Logger

	mu      sync.Mutex
	byID    map[string]*models.UserProfile
	byEmail map[string]*models.UserProfile
}

// NewService creates a user lookup service with an empty cache.
func NewService(adapter store.Adapter, colls *store.Collections, logger *slog.Logger) *Service {
	return &Service{
		adapter: adapter,
		colls:   colls,
		logger:  logger,
		byID:    make(map[string]*models.UserProfile),
		byEmail: make(map[string]*models.UserProfile),
	}
}

// ResolveEmail returns the profile registered under email.
func (s *Service) ResolveEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	s.mu.Lock()
	cached, ok := s.byEmail[email]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	docs, err := s.adapter.GetDocs(ctx, store.Query{
		Collection: s.colls.Users,
		Filters:    []store.Filter{{Field: "email", Op: store.OpEqual, Value: email}},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}

	var user models.UserProfile
	if err := docs[0].DataTo(&user); err != nil {
		return nil, err
	}
	user.ID = docs[0].ID

	s.cache(&user)
	return &user, nil
}

// GetByID returns the profile with the given id.
func (s *Service) GetByID(ctx context.Context, userID string) (*models.UserProfile, error) {
	s.mu.Lock()
	cached, ok := s.byID[userID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	doc, err := s.adapter.Get(ctx, s.colls.Users, userID)
	if err != nil {
		return nil, err
	}
	var user models.UserProfile
	if err := doc.DataTo(&user); err != nil {
		return nil, err
	}
	user.ID = doc.ID

	s.cache(&user)
	return &user, nil
}

// ResolveIDs returns the profiles for the given user ids, preserving
// input order. Cached profiles are served directly; the rest are
// fetched in one pass of chunked id-in queries. Ids with no stored
// profile are skipped, not errors: a board may reference a user whose
// profile was deleted.
func (s *Service) ResolveIDs(ctx context.Context, userIDs []string) ([]*models.UserProfile, error) {
	resolved := make(map[string]*models.UserProfile, len(userIDs))
	var missing []string

	s.mu.Lock()
	for _, id := range userIDs {
		if user, ok := s.byID[id]; ok {
			resolved[id] = user
		} else {
			missing = append(missing, id)
		}
	}
	s.mu.Unlock()

	if len(missing) > 0 {
		docs, err := store.GetDocsByIDs(ctx, s.adapter, s.colls.Users, missing)
		if err != nil {
			return nil, fmt.Errorf("resolve users: %w", err)
		}
		for _, doc := range docs {
			var user models.UserProfile
			if err := doc.DataTo(&user); err != nil {
				return nil, err
			}
			user.ID = doc.ID
			s.cache(&user)
			resolved[user.ID] = &user
		}
	}

	users := make([]*models.UserProfile, 0, len(resolved))
	for _, id := range userIDs {
		if user, ok := resolved[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *Service) cache(user *models.UserProfile) {
	s.mu.Lock()
	s.byID[user.ID] = user
	if user.Email != "" {
		s.byEmail[user.Email] = user
	}
	s.mu.Unlock()
}

// Invalidate drops one user from the cache.
func (s *Service) Invalidate(userID string) {
	s.mu.Lock()
	if user, ok := s.byID[userID]; ok {
		delete(s.byID, userID)
		delete(s.byEmail, user.Email)
	}
	s.mu.Unlock()
}

// Clear empties the cache.
func (s *Service) Clear() {
	s.mu.Lock()
	s.byID = make(map[string]*models.UserProfile)
	s.byEmail = make(map[string]*models.UserProfile)
	s.mu.Unlock()
}
