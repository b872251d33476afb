package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	assemblyai "github.com/AssemblyAI/assemblyai-go-sdk"
)

// AssemblyAIConfig holds configuration for the AssemblyAI backend.
type AssemblyAIConfig struct {
	APIKey       string
	BaseURL      string        // default: "https://api.assemblyai.com"
	PollInterval time.Duration // default: 3s
}

// AssemblyAI uploads audio, submits a transcript job and polls it until it settles.
type AssemblyAI struct {
	cfg    AssemblyAIConfig
	client *assemblyai.Client
}

// NewAssemblyAI creates an AssemblyAI backend with defaults applied. The HTTP client has no
// overall timeout; each call is bounded by the caller's context.
func NewAssemblyAI(cfg AssemblyAIConfig) *AssemblyAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.assemblyai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 2 * time.Minute,
			IdleConnTimeout:       90 * time.Second,
		},
	}
	return &AssemblyAI{
		cfg: cfg,
		client: assemblyai.NewClientWithOptions(
			assemblyai.WithAPIKey(cfg.APIKey),
			assemblyai.WithBaseURL(cfg.BaseURL),
			assemblyai.WithHTTPClient(httpClient),
		),
	}
}

func (a *AssemblyAI) Name() string { return "assemblyai" }

func (a *AssemblyAI) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	uploadURL, err := a.upload(ctx, req.FilePath)
	if err != nil {
		return nil, err
	}

	jobID, err := a.submit(ctx, uploadURL, req.Language)
	if err != nil {
		return nil, err
	}

	text, err := a.poll(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &TranscriptionResponse{ID: jobID, Text: text}, nil
}

func (a *AssemblyAI) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	uploadURL, err := a.client.Upload(ctx, f)
	if err != nil {
		return "", fmt.Errorf("upload audio: %w", classify(ctx, err))
	}
	if uploadURL == "" {
		return "", fmt.Errorf("upload audio: %w: missing upload_url", ErrProtocol)
	}
	return uploadURL, nil
}

func (a *AssemblyAI) submit(ctx context.Context, audioURL, language string) (string, error) {
	params := &assemblyai.TranscriptOptionalParams{}
	if language != "" {
		params.LanguageCode = assemblyai.TranscriptLanguageCode(language)
	}

	job, err := a.client.Transcripts.SubmitFromURL(ctx, audioURL, params)
	if err != nil {
		return "", fmt.Errorf("create transcript: %w", classify(ctx, err))
	}
	id := deref(job.ID)
	if id == "" {
		return "", fmt.Errorf("create transcript: %w: missing id", ErrProtocol)
	}
	return id, nil
}

// poll waits one interval before every status check and stops at the first terminal status
// or when ctx is done. The SDK's own Wait uses a fixed interval, so polling stays here.
func (a *AssemblyAI) poll(ctx context.Context, jobID string) (string, error) {
	timer := time.NewTimer(a.cfg.PollInterval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		job, err := a.client.Transcripts.Get(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("poll transcript %s: %w", jobID, classify(ctx, err))
		}

		switch job.Status {
		case assemblyai.TranscriptStatusCompleted:
			slog.Debug("transcript completed", "job_id", jobID, "polls", attempt)
			return deref(job.Text), nil
		case assemblyai.TranscriptStatusError:
			return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, deref(job.Error))
		case assemblyai.TranscriptStatusQueued, assemblyai.TranscriptStatusProcessing:
			slog.Debug("transcript pending", "job_id", jobID, "status", job.Status, "polls", attempt)
		default:
			return "", fmt.Errorf("%w: unknown job status %q", ErrProtocol, job.Status)
		}

		timer.Reset(a.cfg.PollInterval)
	}
}

// classify maps SDK errors onto the shared failure classes. A response body that does not
// decode is a protocol error; non-2xx answers and transport failures mean the provider is
// unavailable.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var apiErr assemblyai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, apiErr.Status, apiErr.Message)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
