package queue

const (
	TypeTranscriptionRun = "transcription:run"

	// QueueDefault is the only queue transcription tasks are placed on.
	QueueDefault = "default"
)

type TranscriptionRunPayload struct {
	AudioPath string `json:"audio_path"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
}

// TranscriptionRunResult is written by the worker through the task's result writer.
type TranscriptionRunResult struct {
	Text         string `json:"text"`
	HistoryID    string `json:"history_id,omitempty"`
	HistoryError string `json:"history_error,omitempty"`
}

// JobStatus is the caller-facing view of a transcription task.
type JobStatus struct {
	ID           string `json:"id"`
	State        string `json:"state"`
	Text         string `json:"text,omitempty"`
	HistoryID    string `json:"history_id,omitempty"`
	HistoryError string `json:"history_error,omitempty"`
	Error        string `json:"error,omitempty"`
}
