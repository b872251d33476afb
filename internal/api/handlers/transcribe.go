package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/nikhilbhutani/speechtotext/internal/stt"
	"github.com/nikhilbhutani/speechtotext/internal/transcription"
)

const (
	audioField = "audio"
	// multipartOverhead leaves room for part headers and boundaries on top of the audio limit.
	multipartOverhead = 1 << 20
)

var errNoAudio = errors.New("audio file required")

type TranscribeHandler struct {
	relay *transcription.Relay
}

func NewTranscribeHandler(relay *transcription.Relay) *TranscribeHandler {
	return &TranscribeHandler{relay: relay}
}

// Transcribe streams the "audio" part of a multipart body to the relay and answers with the
// finished text.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.relay.MaxAudioBytes()+multipartOverhead)

	part, err := audioPart(r)
	if err != nil {
		writeTranscriptionError(w, r, err)
		return
	}
	defer part.Close()

	text, err := h.relay.Transcribe(r.Context(), part, part.FileName())
	if err != nil {
		writeTranscriptionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func audioPart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errNoAudio
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoAudio
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == audioField {
			return part, nil
		}
		part.Close()
	}
}

func writeTranscriptionError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errNoAudio), errors.Is(err, transcription.ErrEmptyAudio):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, transcription.ErrAudioTooLarge), errors.As(err, &maxBytes):
		writeError(w, http.StatusRequestEntityTooLarge, transcription.ErrAudioTooLarge.Error())
	case errors.Is(err, stt.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, stt.ErrTimeout.Error())
	case errors.Is(err, stt.ErrTranscriptionFailed):
		// Provider detail stays in the log; callers may be anonymous.
		slog.Warn("provider rejected audio", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, stt.ErrTranscriptionFailed.Error())
	case errors.Is(err, stt.ErrUpstreamUnavailable), errors.Is(err, stt.ErrProtocol):
		slog.Error("transcription provider error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "transcription provider error")
	case errors.Is(err, context.Canceled):
		slog.Info("transcription abandoned by client", "path", r.URL.Path)
	default:
		slog.Error("transcription request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "error during transcription")
	}
}
