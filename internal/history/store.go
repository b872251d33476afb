package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/speechtotext/internal/database"
	"github.com/nikhilbhutani/speechtotext/internal/models"
)

type Store interface {
	Insert(ctx context.Context, e *models.HistoryEntry) (*models.HistoryEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error)
}

type PostgresStore struct {
	db database.DBTX
}

func NewPostgresStore(db database.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, e *models.HistoryEntry) (*models.HistoryEntry, error) {
	out := *e
	err := s.db.QueryRow(ctx,
		`INSERT INTO history_entries (user_id, type, text)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		e.UserID, string(e.Type), e.Text,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrUnknownOwner
		}
		return nil, fmt.Errorf("insert history entry: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.HistoryEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, type, text, created_at
		 FROM history_entries WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Type = models.HistoryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}
