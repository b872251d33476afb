package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryKind records how the audio reached the relay.
type HistoryKind string

const (
	HistoryKindUpload HistoryKind = "Upload"
	HistoryKindLive   HistoryKind = "Live"
)

func (k HistoryKind) Valid() bool {
	return k == HistoryKindUpload || k == HistoryKindLive
}

type HistoryEntry struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id"`
	Type      HistoryKind `json:"type" db:"type"`
	Text      string      `json:"text" db:"text"`
	CreatedAt time.Time   `json:"timestamp" db:"created_at"`
}
