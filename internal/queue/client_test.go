package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.task = task
	f.opts = opts
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault, Type: task.Type(), State: asynq.TaskStatePending}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeInspector struct {
	tasks map[string]*asynq.TaskInfo
	err   error
}

func (f *fakeInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info, ok := f.tasks[queue+"/"+id]
	if !ok {
		return nil, asynq.ErrTaskNotFound
	}
	return info, nil
}

func (f *fakeInspector) Close() error { return nil }

func payloadFor(t *testing.T, owner uuid.UUID) []byte {
	t.Helper()
	b, err := json.Marshal(TranscriptionRunPayload{AudioPath: "/tmp/a", UserID: owner.String(), Type: "Upload"})
	require.NoError(t, err)
	return b
}

func TestEnqueueTranscription(t *testing.T) {
	enq := &fakeEnqueuer{}
	c := newClient(enq, &fakeInspector{}, 11*time.Minute)

	status, err := c.EnqueueTranscription(context.Background(), TranscriptionRunPayload{
		AudioPath: "/spool/audio-1", UserID: "u-1", Type: "Live",
	})
	require.NoError(t, err)
	assert.Equal(t, &JobStatus{ID: "task-1", State: "pending"}, status)

	require.NotNil(t, enq.task)
	assert.Equal(t, TypeTranscriptionRun, enq.task.Type())
	assert.JSONEq(t, `{"audio_path":"/spool/audio-1","user_id":"u-1","type":"Live"}`, string(enq.task.Payload()))

	assert.Contains(t, enq.opts, asynq.MaxRetry(0))
	assert.Contains(t, enq.opts, asynq.Queue(QueueDefault))
	assert.Contains(t, enq.opts, asynq.Timeout(11*time.Minute))
	assert.Contains(t, enq.opts, asynq.Retention(24*time.Hour))
}

func TestEnqueueTranscription_Error(t *testing.T) {
	c := newClient(&fakeEnqueuer{err: errors.New("redis down")}, &fakeInspector{}, time.Minute)

	_, err := c.EnqueueTranscription(context.Background(), TranscriptionRunPayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TypeTranscriptionRun)
}

func TestTranscription_CompletedForOwner(t *testing.T) {
	owner := uuid.New()
	result, _ := json.Marshal(TranscriptionRunResult{Text: "hello", HistoryID: "h-1"})
	ins := &fakeInspector{tasks: map[string]*asynq.TaskInfo{
		"default/t1": {
			ID: "t1", Queue: QueueDefault, Type: TypeTranscriptionRun,
			Payload: payloadFor(t, owner), State: asynq.TaskStateCompleted, Result: result,
		},
	}}
	c := newClient(&fakeEnqueuer{}, ins, time.Minute)

	status, err := c.Transcription("t1", owner)
	require.NoError(t, err)
	assert.Equal(t, &JobStatus{ID: "t1", State: "completed", Text: "hello", HistoryID: "h-1"}, status)
}

func TestTranscription_CompletedKeepsTextWhenHistoryFailed(t *testing.T) {
	owner := uuid.New()
	result, _ := json.Marshal(TranscriptionRunResult{Text: "hello", HistoryError: "failed to save history"})
	ins := &fakeInspector{tasks: map[string]*asynq.TaskInfo{
		"default/t3": {
			ID: "t3", Queue: QueueDefault, Type: TypeTranscriptionRun,
			Payload: payloadFor(t, owner), State: asynq.TaskStateCompleted, Result: result,
		},
	}}
	c := newClient(&fakeEnqueuer{}, ins, time.Minute)

	status, err := c.Transcription("t3", owner)
	require.NoError(t, err)
	assert.Equal(t, "hello", status.Text)
	assert.Empty(t, status.HistoryID)
	assert.Equal(t, "failed to save history", status.HistoryError)
}

func TestTranscription_FailedCarriesError(t *testing.T) {
	owner := uuid.New()
	ins := &fakeInspector{tasks: map[string]*asynq.TaskInfo{
		"default/t2": {
			ID: "t2", Type: TypeTranscriptionRun, Payload: payloadFor(t, owner),
			State: asynq.TaskStateArchived, LastErr: "transcription failed: bad audio",
		},
	}}
	c := newClient(&fakeEnqueuer{}, ins, time.Minute)

	status, err := c.Transcription("t2", owner)
	require.NoError(t, err)
	assert.Equal(t, "archived", status.State)
	assert.Equal(t, "transcription failed: bad audio", status.Error)
	assert.Empty(t, status.Text)
}

func TestTranscription_HiddenFromOtherUsers(t *testing.T) {
	owner := uuid.New()
	ins := &fakeInspector{tasks: map[string]*asynq.TaskInfo{
		"default/t3": {ID: "t3", Type: TypeTranscriptionRun, Payload: payloadFor(t, owner), State: asynq.TaskStateActive},
	}}
	c := newClient(&fakeEnqueuer{}, ins, time.Minute)

	_, err := c.Transcription("t3", uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = c.Transcription("missing", owner)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestTranscription_InspectorFailure(t *testing.T) {
	c := newClient(&fakeEnqueuer{}, &fakeInspector{err: errors.New("redis down")}, time.Minute)

	_, err := c.Transcription("t1", uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrJobNotFound)
}

func TestHandlersRegistry(t *testing.T) {
	r := NewHandlersRegistry()
	r.Register(TypeTranscriptionRun, asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return nil }))

	assert.True(t, r.Registered(TypeTranscriptionRun))
	assert.False(t, r.Registered("document:process"))
	assert.NotNil(t, r.Mux())
}
