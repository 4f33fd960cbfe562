package model

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TaskStatus is the lifecycle state of a coordinator task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition is allowed
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// ErrInvalidTransition is returned when a task status change would break the lifecycle order
var ErrInvalidTransition = errors.New("invalid task status transition")

// ErrTaskNotFound is returned by TaskStore lookups for unknown IDs
var ErrTaskNotFound = errors.New("task not found")

// Task is a unit of work tracked by the coordinator.
// Status only moves queued -> processing -> completed|failed.
type Task struct {
	ID         string
	Kind       string
	Status     TaskStatus
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Result     interface{}
	Error      string
}

// NewTask creates a queued task
func NewTask(id, kind string, now time.Time) *Task {
	return &Task{
		ID:        id,
		Kind:      kind,
		Status:    TaskStatusQueued,
		CreatedAt: now,
	}
}

// Start moves a queued task to processing
func (t *Task) Start(now time.Time) error {
	if t.Status != TaskStatusQueued {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, TaskStatusProcessing)
	}
	t.Status = TaskStatusProcessing
	t.StartedAt = now
	return nil
}

// Complete moves a processing task to completed and stores its result
func (t *Task) Complete(now time.Time, result interface{}) error {
	if t.Status != TaskStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, TaskStatusCompleted)
	}
	t.Status = TaskStatusCompleted
	t.Result = result
	t.FinishedAt = now
	return nil
}

// Fail moves a processing task to failed and stores the error message
func (t *Task) Fail(now time.Time, message string) error {
	if t.Status != TaskStatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, TaskStatusFailed)
	}
	t.Status = TaskStatusFailed
	t.Error = message
	t.FinishedAt = now
	return nil
}

// TaskSnapshot is the wire shape of a task carried by lifecycle events
type TaskSnapshot struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     TaskStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Error      *string    `json:"error"`
}

// TaskDetail is a snapshot plus the stored result, used by the HTTP API
type TaskDetail struct {
	TaskSnapshot
	Result interface{} `json:"result,omitempty"`
}

// Snapshot converts Task to TaskSnapshot
func (t *Task) Snapshot() TaskSnapshot {
	snap := TaskSnapshot{
		ID:        t.ID,
		Kind:      t.Kind,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
	if !t.StartedAt.IsZero() {
		started := t.StartedAt
		snap.StartedAt = &started
	}
	if !t.FinishedAt.IsZero() {
		finished := t.FinishedAt
		snap.FinishedAt = &finished
	}
	if t.Error != "" {
		msg := t.Error
		snap.Error = &msg
	}
	return snap
}

// Detail converts Task to TaskDetail
func (t *Task) Detail() TaskDetail {
	return TaskDetail{TaskSnapshot: t.Snapshot(), Result: t.Result}
}

// TaskStore is an in-memory history of tasks for the process lifetime
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order map[string]uint64 // insertion sequence, breaks CreatedAt ties
	seq   uint64
}

// NewTaskStore creates a new task store
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
		order: make(map[string]uint64),
	}
}

// Add stores a new task
func (s *TaskStore) Add(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	s.seq++
	s.order[task.ID] = s.seq
}

// Update applies fn to the stored task under the store lock.
// The task is left untouched when fn returns an error.
func (s *TaskStore) Update(id string, fn func(*Task) error) (TaskDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[id]
	if !exists {
		return TaskDetail{}, ErrTaskNotFound
	}

	next := *task
	if err := fn(&next); err != nil {
		return task.Detail(), err
	}
	*task = next
	return task.Detail(), nil
}

// Get retrieves a task snapshot with its result
func (s *TaskStore) Get(id string) (TaskDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return TaskDetail{}, false
	}
	return task.Detail(), true
}

// List returns all tasks, newest first, optionally filtered by status
func (s *TaskStore) List(status TaskStatus) []TaskDetail {
	s.mu.RLock()
	out := make([]TaskDetail, 0, len(s.tasks))
	seqs := make(map[string]uint64, len(s.tasks))
	for _, task := range s.tasks {
		if status != "" && task.Status != status {
			continue
		}
		out = append(out, task.Detail())
		seqs[task.ID] = s.order[task.ID]
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return seqs[out[i].ID] > seqs[out[j].ID]
	})
	return out
}

// Count returns the number of tasks per status
func (s *TaskStore) Count() map[TaskStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[TaskStatus]int, 4)
	for _, task := range s.tasks {
		counts[task.Status]++
	}
	return counts
}
