package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/speechtotext/internal/models"
	"github.com/nikhilbhutani/speechtotext/internal/queue"
)

// Relay is implemented by *transcription.Relay.
type Relay interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
	Discard(path string)
}

// HistoryAppender is implemented by *history.Service.
type HistoryAppender interface {
	Append(ctx context.Context, userID uuid.UUID, kind models.HistoryKind, text string) (*models.HistoryEntry, error)
}

type TranscriptionWorker struct {
	relay   Relay
	history HistoryAppender
}

func NewTranscriptionWorker(relay Relay, history HistoryAppender) *TranscriptionWorker {
	return &TranscriptionWorker{relay: relay, history: history}
}

// ProcessTask transcribes the spooled clip named in the payload and records it in the owner's
// history. Every failure skips retry: the clip is gone once the relay has seen it. A failed
// history append is reported in the result and does not fail the task.
func (w *TranscriptionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.TranscriptionRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	result, err := w.run(ctx, payload)
	if err != nil {
		return err
	}

	if rw := t.ResultWriter(); rw != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		if _, err := rw.Write(data); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

func (w *TranscriptionWorker) run(ctx context.Context, payload queue.TranscriptionRunPayload) (queue.TranscriptionRunResult, error) {
	var result queue.TranscriptionRunResult

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		w.relay.Discard(payload.AudioPath)
		return result, fmt.Errorf("parse user ID: %v: %w", err, asynq.SkipRetry)
	}
	kind := models.HistoryKind(payload.Type)
	if !kind.Valid() {
		w.relay.Discard(payload.AudioPath)
		return result, fmt.Errorf("invalid history type %q: %w", payload.Type, asynq.SkipRetry)
	}

	slog.Info("processing transcription", "user_id", userID, "type", kind)

	text, err := w.relay.TranscribeFile(ctx, payload.AudioPath)
	if err != nil {
		return result, fmt.Errorf("transcribe: %v: %w", err, asynq.SkipRetry)
	}

	// History is an audit log: the transcript is kept even when recording it fails.
	result.Text = text
	if strings.TrimSpace(text) == "" {
		slog.Warn("empty transcript, history not recorded", "user_id", userID)
	} else if entry, err := w.history.Append(ctx, userID, kind, text); err != nil {
		slog.Error("append history failed", "user_id", userID, "error", err)
		result.HistoryError = "failed to save history"
	} else {
		result.HistoryID = entry.ID.String()
	}

	slog.Info("transcription task completed", "user_id", userID, "history_id", result.HistoryID)
	return result, nil
}
