package worker

import (
	"context"

	"github.com/PratikLad0/job-search-automation/internal/model"
)

// TaskFunc is the unit of work run by the coordinator.
// A returned error (or a panic) marks the task failed.
type TaskFunc func(ctx context.Context) (interface{}, error)

// job is a queued task waiting for the worker
type job struct {
	taskID string
	kind   string
	fn     TaskFunc
}

// Publisher receives task lifecycle events
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) int
}

// QueuedEvent is the task_queued payload
type QueuedEvent struct {
	model.TaskSnapshot
	QueueSize int `json:"queue_size"`
}

// FinishedEvent is the task_finished payload
type FinishedEvent struct {
	model.TaskSnapshot
	Result interface{} `json:"result"`
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, interface{}) int { return 0 }

type taskIDKey struct{}

// WithTaskID returns ctx carrying the running task's id
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, id)
}

// TaskIDFromContext returns the id of the task running with ctx, if any
func TaskIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey{}).(string)
	return id
}
