package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PratikLad0/job-search-automation/internal/broadcast"
	"github.com/PratikLad0/job-search-automation/internal/model"
)

var (
	// ErrQueueFull is returned by Submit when the queue has no free slot
	ErrQueueFull = errors.New("task queue is full")

	// ErrCoordinatorStopped is returned by Submit after Stop
	ErrCoordinatorStopped = errors.New("task coordinator is stopped")
)

// DefaultLoopBackoff is the pause after a bookkeeping fault in the worker loop
const DefaultLoopBackoff = time.Second

// Coordinator runs submitted tasks one at a time in submission order
type Coordinator struct {
	queue     chan job
	store     *model.TaskStore
	publisher Publisher
	backoff   time.Duration

	// submitMu orders Submit calls so task_queued reaches observers
	// before the worker can dequeue the task. Observers must not call Submit.
	submitMu sync.Mutex

	mu      sync.Mutex
	current string
	stopped bool
	started bool

	quit   chan struct{}
	done   chan struct{}
	runCtx context.Context
	abort  context.CancelFunc

	now   func() time.Time
	newID func() string
}

// NewCoordinator creates a coordinator with a FIFO queue of the given capacity.
// A nil publisher discards lifecycle events.
func NewCoordinator(capacity int, publisher Publisher, backoff time.Duration) *Coordinator {
	if capacity <= 0 {
		capacity = 1
	}
	if publisher == nil {
		publisher = discardPublisher{}
	}
	if backoff <= 0 {
		backoff = DefaultLoopBackoff
	}

	runCtx, abort := context.WithCancel(context.Background())

	return &Coordinator{
		queue:     make(chan job, capacity),
		store:     model.NewTaskStore(),
		publisher: publisher,
		backoff:   backoff,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		runCtx:    runCtx,
		abort:     abort,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Start launches the single worker goroutine
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	slog.Info("Starting task coordinator", "queue_capacity", cap(c.queue))
	go c.loop()
}

// Stop refuses new tasks and waits for the in-flight task to finish.
// If ctx expires first, the in-flight task's context is cancelled.
// Tasks still queued stay queued.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	started := c.started
	close(c.quit)
	c.mu.Unlock()

	slog.Info("Stopping task coordinator", "queued", len(c.queue))

	if !started {
		c.abort()
		return nil
	}

	select {
	case <-c.done:
		c.abort()
		slog.Info("Task coordinator stopped")
		return nil
	case <-ctx.Done():
		c.abort()
		return fmt.Errorf("failed to stop task coordinator: %w", ctx.Err())
	}
}

// Submit queues fn under the given kind and returns the new task ID
func (c *Coordinator) Submit(kind string, fn TaskFunc) (string, error) {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return "", ErrCoordinatorStopped
	}
	// Only Submit sends on the queue and it holds submitMu, so a free slot stays free.
	if len(c.queue) >= cap(c.queue) {
		slog.Warn("Task rejected, queue full", "kind", kind, "queue_capacity", cap(c.queue))
		return "", ErrQueueFull
	}

	task := model.NewTask(c.newID(), kind, c.now())
	c.store.Add(task)
	snapshot := task.Snapshot()
	queueSize := len(c.queue) + 1

	slog.Info("Task queued", "task_id", snapshot.ID, "kind", kind, "queue_size", queueSize)

	// Publish before the send: once the job is on the channel the worker may
	// start it and emit task_started.
	c.publishSafely(broadcast.EventTaskQueued, QueuedEvent{
		TaskSnapshot: snapshot,
		QueueSize:    queueSize,
	})
	c.queue <- job{taskID: task.ID, kind: kind, fn: fn}

	return snapshot.ID, nil
}

// publishSafely keeps a panicking publisher from losing a submitted task
func (c *Coordinator) publishSafely(eventType string, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event publisher panicked", "event_type", eventType, "error", r)
		}
	}()
	c.publisher.Publish(context.Background(), eventType, payload)
}

// Get returns a task with its result
func (c *Coordinator) Get(id string) (model.TaskDetail, bool) {
	return c.store.Get(id)
}

// List returns all known tasks, newest first, optionally filtered by status
func (c *Coordinator) List(status model.TaskStatus) []model.TaskDetail {
	return c.store.List(status)
}

// Current returns the task being processed, if any
func (c *Coordinator) Current() (model.TaskDetail, bool) {
	c.mu.Lock()
	id := c.current
	c.mu.Unlock()
	if id == "" {
		return model.TaskDetail{}, false
	}
	return c.store.Get(id)
}

// QueueLength returns the number of tasks waiting to run
func (c *Coordinator) QueueLength() int {
	return len(c.queue)
}

// Counts returns the number of tasks per status
func (c *Coordinator) Counts() map[model.TaskStatus]int {
	return c.store.Count()
}

func (c *Coordinator) loop() {
	defer close(c.done)

	for {
		// Stop wins over pending work once requested.
		select {
		case <-c.quit:
			return
		default:
		}

		select {
		case <-c.quit:
			return
		case j := <-c.queue:
			if err := c.process(j); err != nil {
				slog.Error("Task coordinator loop fault",
					"task_id", j.taskID,
					"error", err,
					"backoff", c.backoff,
				)
				select {
				case <-time.After(c.backoff):
				case <-c.quit:
					return
				}
			}
		}
	}
}

// process runs a single task. The returned error is a bookkeeping fault,
// never the task's own failure.
func (c *Coordinator) process(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task bookkeeping: %v", r)
		}
		if err != nil {
			// Leave no task stuck in processing.
			failed, updateErr := c.store.Update(j.taskID, func(t *model.Task) error {
				return t.Fail(c.now(), err.Error())
			})
			if updateErr == nil {
				c.publishSafely(broadcast.EventTaskFinished, FinishedEvent{TaskSnapshot: failed.TaskSnapshot})
			}
		}
		c.setCurrent("")
	}()

	started, err := c.store.Update(j.taskID, func(t *model.Task) error {
		return t.Start(c.now())
	})
	if err != nil {
		return fmt.Errorf("failed to start task: %w", err)
	}
	c.setCurrent(j.taskID)

	slog.Info("Task started", "task_id", j.taskID, "kind", j.kind)
	c.publisher.Publish(c.runCtx, broadcast.EventTaskStarted, started.TaskSnapshot)

	begin := time.Now()
	result, runErr := runTask(WithTaskID(c.runCtx, j.taskID), j.fn)

	finished, err := c.store.Update(j.taskID, func(t *model.Task) error {
		if runErr != nil {
			return t.Fail(c.now(), runErr.Error())
		}
		return t.Complete(c.now(), result)
	})
	if err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}

	if runErr != nil {
		slog.Warn("Task failed",
			"task_id", j.taskID,
			"kind", j.kind,
			"duration_ms", time.Since(begin).Milliseconds(),
			"error", runErr,
		)
	} else {
		slog.Info("Task completed",
			"task_id", j.taskID,
			"kind", j.kind,
			"duration_ms", time.Since(begin).Milliseconds(),
		)
	}

	c.publisher.Publish(c.runCtx, broadcast.EventTaskFinished, FinishedEvent{
		TaskSnapshot: finished.TaskSnapshot,
		Result:       finished.Result,
	})
	return nil
}

func (c *Coordinator) setCurrent(id string) {
	c.mu.Lock()
	c.current = id
	c.mu.Unlock()
}

func runTask(ctx context.Context, fn TaskFunc) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	if fn == nil {
		return nil, errors.New("task has no function")
	}
	return fn(ctx)
}
