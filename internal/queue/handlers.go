package queue

import (
	"github.com/hibiken/asynq"
)

type HandlersRegistry struct {
	mux *asynq.ServeMux
}

func NewHandlersRegistry() *HandlersRegistry {
	return &HandlersRegistry{
		mux: asynq.NewServeMux(),
	}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

// Registered reports whether a handler is wired for taskType.
func (r *HandlersRegistry) Registered(taskType string) bool {
	_, pattern := r.mux.Handler(asynq.NewTask(taskType, nil))
	return pattern != ""
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}
