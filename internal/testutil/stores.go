// Package testutil holds in-memory store fakes shared by package tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/speechtotext/internal/auth"
	"github.com/nikhilbhutani/speechtotext/internal/history"
	"github.com/nikhilbhutani/speechtotext/internal/models"
)

type UserStore struct {
	mu    sync.Mutex
	users map[string]models.User
	Err   error
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]models.User)}
}

func (s *UserStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if _, ok := s.users[u.Email]; ok {
		return nil, auth.ErrEmailTaken
	}
	out := *u
	out.ID = uuid.New()
	out.CreatedAt = time.Now()
	s.users[u.Email] = out
	return &out, nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

// HistoryStore orders entries the same way the Postgres query does. Clock, when set, supplies
// creation times so tests can control ordering.
type HistoryStore struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
	Clock   func() time.Time
	Err     error
	Lists   int
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Insert(_ context.Context, e *models.HistoryEntry) (*models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := *e
	out.ID = uuid.New()
	if s.Clock != nil {
		out.CreatedAt = s.Clock()
	} else {
		out.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, out)
	return &out, nil
}

func (s *HistoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lists++
	if s.Err != nil {
		return nil, s.Err
	}
	out := []models.HistoryEntry{}
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var (
	_ auth.Store    = (*UserStore)(nil)
	_ history.Store = (*HistoryStore)(nil)
)
