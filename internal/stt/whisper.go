package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperConfig holds configuration for the OpenAI Whisper backend.
type WhisperConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "whisper-1"
}

// Whisper transcribes synchronously through the OpenAI audio API or a compatible server.
type Whisper struct {
	client *openai.Client
	model  string
}

func NewWhisper(cfg WhisperConfig) *Whisper {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{client: openai.NewClientWithConfig(clientCfg), model: model}
}

func (w *Whisper) Name() string { return "openai-whisper" }

func (w *Whisper) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: req.FilePath,
		Language: req.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return nil, classifyOpenAIError(ctx, err)
	}
	return &TranscriptionResponse{Text: resp.Text}, nil
}

func classifyOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if retryableStatus(apiErr.HTTPStatusCode) {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return fmt.Errorf("%w: %s", ErrTranscriptionFailed, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && !retryableStatus(reqErr.HTTPStatusCode) {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

func retryableStatus(code int) bool {
	return code == 0 || code == http.StatusTooManyRequests || code >= 500
}
