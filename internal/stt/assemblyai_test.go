package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	assemblyai "github.com/AssemblyAI/assemblyai-go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}

// fakeAssembly mimics the upload/transcript endpoints. statuses is consumed one entry per poll;
// the last entry repeats.
type fakeAssembly struct {
	mu       sync.Mutex
	statuses []fakeJob
	polls    int
	uploaded []byte
	audioURL string
	language string
	authz    []string
}

func (f *fakeAssembly) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authz = append(f.authz, r.Header.Get("Authorization"))
		f.uploaded, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio/1"})
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.audioURL, _ = body["audio_url"].(string)
		f.language, _ = body["language_code"].(string)
		json.NewEncoder(w).Encode(fakeJob{ID: "job-1", Status: "queued"})
	})
	mux.HandleFunc("GET /v2/transcript/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Equal(t, "job-1", r.PathValue("id"))
		idx := f.polls
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		f.polls++
		json.NewEncoder(w).Encode(f.statuses[idx])
	})
	return mux
}

func writeAudio(t *testing.T, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.webm")
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

func newTestAssembly(t *testing.T, fake *fakeAssembly) *AssemblyAI {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return NewAssemblyAI(AssemblyAIConfig{APIKey: "key-123", BaseURL: srv.URL, PollInterval: time.Millisecond})
}

func TestAssemblyAI_CompletesAfterThreePolls(t *testing.T) {
	fake := &fakeAssembly{statuses: []fakeJob{
		{ID: "job-1", Status: "queued"},
		{ID: "job-1", Status: "processing"},
		{ID: "job-1", Status: "completed", Text: "hello world"},
	}}
	p := newTestAssembly(t, fake)

	resp, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: writeAudio(t, "RIFFdata")})
	require.NoError(t, err)

	assert.Equal(t, "hello world", resp.Text)
	assert.Equal(t, "job-1", resp.ID)
	assert.Equal(t, 3, fake.polls)
	assert.Equal(t, []byte("RIFFdata"), fake.uploaded)
	assert.Equal(t, "https://cdn.example/audio/1", fake.audioURL)
	assert.Equal(t, []string{"key-123"}, fake.authz)
}

func TestAssemblyAI_ForwardsLanguage(t *testing.T) {
	fake := &fakeAssembly{statuses: []fakeJob{{ID: "job-1", Status: "completed", Text: "hola"}}}
	p := newTestAssembly(t, fake)

	resp, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: writeAudio(t, "x"), Language: "es"})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text)
	assert.Equal(t, "es", fake.language)
}

func TestAssemblyAI_BaseURLWithPathPrefix(t *testing.T) {
	fake := &fakeAssembly{statuses: []fakeJob{{ID: "job-1", Status: "completed", Text: "ok"}}}
	srv := httptest.NewServer(http.StripPrefix("/proxy", fake.handler(t)))
	defer srv.Close()

	p := NewAssemblyAI(AssemblyAIConfig{APIKey: "k", BaseURL: srv.URL + "/proxy", PollInterval: time.Millisecond})
	resp, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: writeAudio(t, "x")})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
}

func TestAssemblyAI_JobErrorFailsWholeCall(t *testing.T) {
	fake := &fakeAssembly{statuses: []fakeJob{
		{ID: "job-1", Status: "processing"},
		{ID: "job-1", Status: "error", Error: "audio too short", Text: "partial"},
	}}
	p := newTestAssembly(t, fake)

	resp, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: writeAudio(t, "x")})
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Contains(t, err.Error(), "audio too short")
	assert.Nil(t, resp)
}

func TestAssemblyAI_UnknownStatusIsProtocolError(t *testing.T) {
	fake := &fakeAssembly{statuses: []fakeJob{{ID: "job-1", Status: "exploded"}}}
	p := newTestAssembly(t, fake)

	_, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: writeAudio(t, "x")})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestAssemblyAI_StopsPollingWhenContextEnds(t *testing.T) {
	fake := &fakeAssembly{statuses: []fakeJob{{ID: "job-1", Status: "processing"}}}
	p := newTestAssembly(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Transcribe(ctx, TranscriptionRequest{FilePath: writeAudio(t, "x")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAssemblyAI_UpstreamErrors(t *testing.T) {
	cases := map[string]struct {
		handler http.HandlerFunc
		want    error
	}{
		"server error": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			},
			want: ErrUpstreamUnavailable,
		},
		"bad key": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"Authentication error"}`, http.StatusUnauthorized)
			},
			want: ErrUpstreamUnavailable,
		},
		"malformed json": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>gateway</html>"))
			},
			want: ErrProtocol,
		},
		"missing upload url": {
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
			want: ErrProtocol,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p := NewAssemblyAI(AssemblyAIConfig{APIKey: "k", BaseURL: srv.URL, PollInterval: time.Millisecond})
			_, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: writeAudio(t, "x")})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAssemblyAI_UnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewAssemblyAI(AssemblyAIConfig{APIKey: "k", BaseURL: url})
	_, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: writeAudio(t, "x")})
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestAssemblyAI_MissingFile(t *testing.T) {
	p := NewAssemblyAI(AssemblyAIConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	_, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: filepath.Join(t.TempDir(), "nope.wav")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err  error
		want error
	}{
		"api error":       {err: assemblyai.APIError{Status: http.StatusTooManyRequests, Message: "slow down"}, want: ErrUpstreamUnavailable},
		"wrapped api err": {err: fmt.Errorf("get: %w", assemblyai.APIError{Status: 500}), want: ErrUpstreamUnavailable},
		"bad json":        {err: &json.SyntaxError{Offset: 1}, want: ErrProtocol},
		"wrong type":      {err: &json.UnmarshalTypeError{Value: "number"}, want: ErrProtocol},
		"transport":       {err: errors.New("connection reset"), want: ErrUpstreamUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, classify(context.Background(), tc.err), tc.want)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, classify(ctx, errors.New("connection reset")), context.Canceled)
}
