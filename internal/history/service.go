package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/speechtotext/internal/cache"
	"github.com/nikhilbhutani/speechtotext/internal/models"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnknownOwner = errors.New("history owner does not exist")
)

const (
	listTTL = 5 * time.Minute
	// genTTL outlives every list cached under an older generation.
	genTTL = 24 * time.Hour
)

// ListCache is implemented by *cache.Cache.
type ListCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Service is the per-user transcription log. Entries are append-only.
type Service struct {
	store Store
	cache ListCache
}

// NewService accepts a nil cache; listings then always hit the store.
func NewService(store Store, c ListCache) *Service {
	return &Service{store: store, cache: c}
}

func (s *Service) Append(ctx context.Context, userID uuid.UUID, kind models.HistoryKind, text string) (*models.HistoryEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner required", ErrValidation)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: type must be %q or %q", ErrValidation, models.HistoryKindUpload, models.HistoryKindLive)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text required", ErrValidation)
	}

	entry, err := s.store.Insert(ctx, &models.HistoryEntry{UserID: userID, Type: kind, Text: text})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if _, err := s.cache.Incr(ctx, genKey(userID), genTTL); err != nil {
			slog.Warn("history cache invalidation failed", "user_id", userID, "error", err)
		}
	}
	return entry, nil
}

// ListForOwner returns the owner's entries newest first. It never returns a nil slice.
//
// Cached lists are keyed by the owner's generation, which Append bumps. A listing that read the
// store before a concurrent Append fills the old generation's key, which is never read again.
func (s *Service) ListForOwner(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	key, cacheable := s.cacheKey(ctx, userID)
	if cacheable {
		var cached []models.HistoryEntry
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil && cached != nil:
			return cached, nil
		case err != nil && !errors.Is(err, cache.ErrMiss):
			slog.Warn("history cache read failed", "user_id", userID, "error", err)
		}
	}

	entries, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}

	if cacheable {
		if err := s.cache.Set(ctx, key, entries, listTTL); err != nil {
			slog.Warn("history cache write failed", "user_id", userID, "error", err)
		}
	}
	return entries, nil
}

// cacheKey resolves the list key for the owner's current generation. It reports false when the
// generation cannot be read, in which case the cache is bypassed.
func (s *Service) cacheKey(ctx context.Context, userID uuid.UUID) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	var gen int64
	if err := s.cache.Get(ctx, genKey(userID), &gen); err != nil && !errors.Is(err, cache.ErrMiss) {
		slog.Warn("history cache generation read failed", "user_id", userID, "error", err)
		return "", false
	}
	return fmt.Sprintf("history:%s:%d", userID, gen), true
}

func genKey(userID uuid.UUID) string {
	return "history:" + userID.String() + ":gen"
}
