// Package transcription relays client audio to the configured speech-to-text provider.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikhilbhutani/speechtotext/internal/stt"
)

// defaultAudioExt matches what browsers record with MediaRecorder.
const defaultAudioExt = ".webm"

var (
	ErrEmptyAudio    = errors.New("audio payload is empty")
	ErrAudioTooLarge = errors.New("audio payload exceeds size limit")
)

type Config struct {
	SpoolDir      string
	MaxAudioBytes int64
	Timeout       time.Duration
}

// Relay spools audio to disk, hands it to a provider and removes the spooled file afterwards.
type Relay struct {
	provider stt.Provider
	cfg      Config
}

func NewRelay(provider stt.Provider, cfg Config) *Relay {
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = os.TempDir()
	}
	return &Relay{provider: provider, cfg: cfg}
}

func (r *Relay) Provider() string { return r.provider.Name() }

// MaxAudioBytes is the largest clip Spool accepts.
func (r *Relay) MaxAudioBytes() int64 { return r.cfg.MaxAudioBytes }

// Transcribe spools audio and transcribes it. The spooled copy never outlives the call.
// filename is the client's name for the clip; only its extension is kept.
func (r *Relay) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	path, err := r.Spool(audio, filename)
	if err != nil {
		return "", err
	}
	return r.TranscribeFile(ctx, path)
}

// Spool copies audio into a new file under the spool directory and returns its path. The file
// carries the extension of filename, or .webm when it has none, because providers infer the
// audio format from it. Empty or oversized input leaves nothing behind.
func (r *Relay) Spool(audio io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(r.cfg.SpoolDir, 0o700); err != nil {
		return "", fmt.Errorf("create spool dir: %w", err)
	}

	f, err := os.CreateTemp(r.cfg.SpoolDir, "audio-*"+audioExt(filename))
	if err != nil {
		return "", fmt.Errorf("create spool file: %w", err)
	}
	path := f.Name()

	src := audio
	if r.cfg.MaxAudioBytes > 0 {
		src = io.LimitReader(audio, r.cfg.MaxAudioBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("spool audio: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("spool audio: %w", closeErr)
	case n == 0:
		err = ErrEmptyAudio
	case r.cfg.MaxAudioBytes > 0 && n > r.cfg.MaxAudioBytes:
		err = ErrAudioTooLarge
	}
	if err != nil {
		removeSpooled(path)
		return "", err
	}
	return path, nil
}

// TranscribeFile transcribes a spooled file and removes it on every return path. The call is
// bounded by the relay timeout and by ctx; running out of time yields stt.ErrTimeout.
func (r *Relay) TranscribeFile(ctx context.Context, path string) (string, error) {
	defer removeSpooled(path)

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.provider.Transcribe(ctx, stt.TranscriptionRequest{FilePath: path})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", stt.ErrTimeout, time.Since(start).Round(time.Millisecond))
		}
		slog.Error("transcription failed", "provider", r.provider.Name(), "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return "", err
	}

	slog.Info("transcription completed", "provider", r.provider.Name(), "job_id", resp.ID,
		"chars", len(resp.Text), "duration_ms", time.Since(start).Milliseconds())
	return resp.Text, nil
}

func audioExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return defaultAudioExt
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return defaultAudioExt
		}
	}
	return ext
}

// Discard removes a spooled file that will not be transcribed.
func (r *Relay) Discard(path string) {
	removeSpooled(path)
}

func removeSpooled(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove spooled audio", "path", path, "error", err)
	}
}
