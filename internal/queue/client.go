package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/speechtotext/internal/config"
)

var ErrJobNotFound = errors.New("transcription job not found")

const resultRetention = 24 * time.Hour

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type inspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues transcription tasks and reports on them.
type Client struct {
	client      enqueuer
	inspector   inspector
	taskTimeout time.Duration
}

// NewClient connects to the asynq redis. sttTimeout bounds the relay; tasks get an extra minute
// so the relay's own timeout fires first.
func NewClient(cfg config.RedisConfig, sttTimeout time.Duration) *Client {
	opt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	return newClient(asynq.NewClient(opt), asynq.NewInspector(opt), sttTimeout+time.Minute)
}

func newClient(e enqueuer, i inspector, taskTimeout time.Duration) *Client {
	return &Client{client: e, inspector: i, taskTimeout: taskTimeout}
}

func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}

// EnqueueTranscription schedules a spooled clip. Tasks are never retried because the worker
// consumes the clip on the first attempt.
func (c *Client) EnqueueTranscription(ctx context.Context, payload TranscriptionRunPayload) (*JobStatus, error) {
	info, err := c.enqueue(ctx, TypeTranscriptionRun, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Timeout(c.taskTimeout),
		asynq.Retention(resultRetention),
	)
	if err != nil {
		return nil, err
	}
	return &JobStatus{ID: info.ID, State: info.State.String()}, nil
}

// Transcription looks a task up by id. Tasks that belong to another user are reported as
// missing.
func (c *Client) Transcription(id string, owner uuid.UUID) (*JobStatus, error) {
	info, err := c.inspector.GetTaskInfo(QueueDefault, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("inspect task %s: %w", id, err)
	}
	if info.Type != TypeTranscriptionRun {
		return nil, ErrJobNotFound
	}

	var payload TranscriptionRunPayload
	if err := json.Unmarshal(info.Payload, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.UserID != owner.String() {
		return nil, ErrJobNotFound
	}

	status := &JobStatus{ID: info.ID, State: info.State.String(), Error: info.LastErr}
	if len(info.Result) > 0 {
		var res TranscriptionRunResult
		if err := json.Unmarshal(info.Result, &res); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		status.Text = res.Text
		status.HistoryID = res.HistoryID
		status.HistoryError = res.HistoryError
	}
	return status, nil
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return info, nil
}
