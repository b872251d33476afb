// Package client talks to the relay and history API the same way the browser front end does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikhilbhutani/speechtotext/internal/models"
)

var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns a client for baseURL. A nil httpClient means http.DefaultClient; transcription
// requests can run for minutes so callers should not set a short client timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

func (c *Client) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, nil)
}

// Login exchanges credentials for a token and keeps it for later history calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("login response carried no token")
	}
	c.token = out.Token
	return out.Token, nil
}

// Transcribe uploads the file at path to the relay and waits for the text.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("audio", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Text string `json:"text"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) AppendHistory(ctx context.Context, kind models.HistoryKind, text string) (*models.HistoryEntry, error) {
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}
	var entry models.HistoryEntry
	body := map[string]string{"type": string(kind), "text": text}
	if err := c.doJSON(ctx, http.MethodPost, "/api/history", body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) ListHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}
	entries := []models.HistoryEntry{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/history", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Recording is the outcome of one transcription event.
type Recording struct {
	Text string
	// Entry is nil when HistoryErr is set.
	Entry      *models.HistoryEntry
	HistoryErr error
}

// TranscribeAndRecord transcribes the file and then appends the text to the caller's history.
// The append is best effort: its failure is logged and reported in HistoryErr while the text is
// still returned. Only a failed transcription yields an error.
func (c *Client) TranscribeAndRecord(ctx context.Context, path string, kind models.HistoryKind) (*Recording, error) {
	text, err := c.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}

	rec := &Recording{Text: text}
	rec.Entry, rec.HistoryErr = c.AppendHistory(ctx, kind, text)
	if rec.HistoryErr != nil {
		slog.Warn("transcript not saved to history", "error", rec.HistoryErr)
	}
	return rec, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
