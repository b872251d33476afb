// Package stt holds the speech-to-text provider backends the relay forwards audio to.
package stt

import (
	"context"
	"errors"
)

// Failure classes shared by every provider. Callers match them with errors.Is.
var (
	ErrUpstreamUnavailable = errors.New("transcription provider unavailable")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrProtocol            = errors.New("unexpected transcription provider response")
	ErrTimeout             = errors.New("transcription timed out")
)

// TranscriptionRequest holds the parameters for audio transcription.
type TranscriptionRequest struct {
	FilePath string `json:"file_path"`
	Language string `json:"language,omitempty"`
}

// TranscriptionResponse holds the transcription result.
type TranscriptionResponse struct {
	ID   string `json:"id,omitempty"`
	Text string `json:"text"`
}

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error)
	Name() string
}
