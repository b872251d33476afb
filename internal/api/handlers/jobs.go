package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/speechtotext/internal/auth"
	"github.com/nikhilbhutani/speechtotext/internal/models"
	"github.com/nikhilbhutani/speechtotext/internal/queue"
	"github.com/nikhilbhutani/speechtotext/internal/transcription"
)

// JobQueue is implemented by *queue.Client.
type JobQueue interface {
	EnqueueTranscription(ctx context.Context, payload queue.TranscriptionRunPayload) (*queue.JobStatus, error)
	Transcription(id string, owner uuid.UUID) (*queue.JobStatus, error)
}

type JobHandler struct {
	relay *transcription.Relay
	jobs  JobQueue
}

func NewJobHandler(relay *transcription.Relay, jobs JobQueue) *JobHandler {
	return &JobHandler{relay: relay, jobs: jobs}
}

// Create spools the uploaded clip and schedules it for background transcription.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.relay.MaxAudioBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeTranscriptionError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	kind := models.HistoryKind(r.FormValue("type"))
	if kind == "" {
		kind = models.HistoryKindUpload
	}
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "type must be Upload or Live")
		return
	}

	file, header, err := r.FormFile(audioField)
	if err != nil {
		writeError(w, http.StatusBadRequest, errNoAudio.Error())
		return
	}
	defer file.Close()

	path, err := h.relay.Spool(file, header.Filename)
	if err != nil {
		writeTranscriptionError(w, r, err)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	status, err := h.jobs.EnqueueTranscription(r.Context(), queue.TranscriptionRunPayload{
		AudioPath: path,
		UserID:    userID.String(),
		Type:      string(kind),
	})
	if err != nil {
		h.relay.Discard(path)
		slog.Error("enqueue transcription failed", "user_id", userID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to schedule transcription")
		return
	}

	writeJSON(w, http.StatusAccepted, status)
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	status, err := h.jobs.Transcription(chi.URLParam(r, "id"), userID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "transcription not found")
			return
		}
		slog.Error("inspect transcription failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load transcription")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
