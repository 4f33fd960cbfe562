package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/config"
	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/worker"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// SweepLease is the lease name guarding the auto-apply sweep across processes
const SweepLease = "auto_apply_sweep"

// LeaseStore provides named distributed leases
type LeaseStore interface {
	AcquireLock(ctx context.Context, name, podID string, ttl time.Duration) (bool, error)
	ReleaseAllLocks(ctx context.Context, podID string) error
	CleanExpiredLocks(ctx context.Context) (int64, error)
}

// JobFinder lists jobs that are ready for an application run
type JobFinder interface {
	FindReadyToApply(ctx context.Context, limit int) ([]model.Job, error)
}

// TaskLookup reports the state of submitted tasks
type TaskLookup interface {
	Get(id string) (model.TaskDetail, bool)
}

// SubmitFunc queues an application run for a job and returns the task id
type SubmitFunc func(jobID string) (string, error)

// Options configure the sweep
type Options struct {
	Schedule     string
	TickInterval time.Duration
	LockTTL      time.Duration
	BatchSize    int
	// RetryBackoff is the wait before a job whose run left it ready is tried again.
	// It doubles per attempt up to maxBackoffFactor times.
	RetryBackoff time.Duration
}

const maxBackoffFactor = 8

// OptionsFromConfig builds sweep options from the service configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Schedule:     cfg.AutoApplySchedule,
		TickInterval: cfg.SchedulerTickInterval,
		LockTTL:      cfg.SchedulerLockTTL,
		BatchSize:    cfg.AutoApplyBatchSize,
		RetryBackoff: cfg.AutoApplyRetryBackoff,
	}
}

// Scheduler periodically submits jobs with a generated resume for application.
// Only the process holding the sweep lease submits in a given window.
type Scheduler struct {
	opts     Options
	schedule cron.Schedule
	leases   LeaseStore
	jobs     JobFinder
	tasks    TaskLookup
	submit   SubmitFunc
	podID    string
	now      func() time.Time

	mu       sync.Mutex
	next     time.Time
	inFlight map[string]string // job id -> task id
	retries  map[string]retryState

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type retryState struct {
	attempts int
	after    time.Time
}

// NewScheduler creates a new scheduler instance. tasks may be nil.
func NewScheduler(opts Options, leases LeaseStore, jobs JobFinder, tasks TaskLookup, submit SubmitFunc) (*Scheduler, error) {
	schedule, err := config.ParseSchedule(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid auto-apply schedule: %w", err)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 24 * time.Hour
	}

	// Get pod identifier (hostname in Kubernetes)
	podID, err := os.Hostname()
	if err != nil {
		podID = uuid.New().String()
		slog.Warn("Failed to get hostname, using UUID as pod ID", "pod_id", podID)
	}

	s := &Scheduler{
		opts:     opts,
		schedule: schedule,
		leases:   leases,
		jobs:     jobs,
		tasks:    tasks,
		submit:   submit,
		podID:    podID,
		now:      time.Now,
		inFlight: make(map[string]string),
		retries:  make(map[string]retryState),
		stopChan: make(chan struct{}),
	}
	s.next = schedule.Next(s.now().UTC())
	return s, nil
}

// NextRun returns when the next sweep is due
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Start begins the scheduler tick loop
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting auto-apply scheduler",
		"pod_id", s.podID,
		"schedule", s.opts.Schedule,
		"next_run", s.NextRun().Format(time.RFC3339),
		"tick_interval", s.opts.TickInterval,
		"lock_ttl", s.opts.LockTTL,
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the tick loop and releases this pod's leases
func (s *Scheduler) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		slog.Info("Stopping auto-apply scheduler", "pod_id", s.podID)
		close(s.stopChan)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			slog.Warn("Timeout waiting for scheduler sweep to complete")
		}

		if err := s.leases.ReleaseAllLocks(context.Background(), s.podID); err != nil {
			slog.Error("Failed to release locks during shutdown", "error", err)
		}
		slog.Info("Auto-apply scheduler stopped", "pod_id", s.podID)
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs the sweep when it is due and returns the number of submitted jobs
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now().UTC()

	s.mu.Lock()
	due := !now.Before(s.next)
	if due {
		s.next = s.schedule.Next(now)
	}
	next := s.next
	s.mu.Unlock()

	if !due {
		return 0
	}

	if cleaned, err := s.leases.CleanExpiredLocks(ctx); err != nil {
		slog.Error("Failed to clean expired locks", "error", err)
	} else if cleaned > 0 {
		slog.Info("Cleaned expired locks", "count", cleaned)
	}

	// The lease is left to expire so a peer ticking later in the same window skips.
	acquired, err := s.leases.AcquireLock(ctx, SweepLease, s.podID, s.opts.LockTTL)
	if err != nil {
		slog.Error("Failed to acquire sweep lease", "error", err)
		return 0
	}
	if !acquired {
		slog.Debug("Sweep lease held by another pod", "pod_id", s.podID)
		return 0
	}

	// Over-fetch by the tracked jobs so skipped ones do not starve the batch.
	jobs, err := s.jobs.FindReadyToApply(ctx, s.opts.BatchSize+s.tracked())
	if err != nil {
		slog.Error("Failed to find jobs ready to apply", "error", err)
		return 0
	}
	s.prune(jobs, now)

	submitted := 0
	for _, job := range jobs {
		if submitted >= s.opts.BatchSize {
			break
		}
		jobID := job.ID.Hex()
		if reason := s.skipReason(jobID, now); reason != "" {
			slog.Debug("Skipping job", "job_id", jobID, "reason", reason)
			continue
		}

		taskID, err := s.submit(jobID)
		if err != nil {
			slog.Error("Failed to submit auto-apply task", "job_id", jobID, "error", err)
			if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrCoordinatorStopped) {
				break
			}
			continue
		}

		s.mu.Lock()
		s.inFlight[jobID] = taskID
		s.mu.Unlock()
		submitted++
	}

	slog.Info("Auto-apply sweep completed",
		"pod_id", s.podID,
		"ready", len(jobs),
		"submitted", submitted,
		"next_run", next.Format(time.RFC3339),
	)
	return submitted
}

func (s *Scheduler) tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight) + len(s.retries)
}

// prune forgets jobs that are no longer ready and starts a backoff for jobs whose
// run finished but left them ready.
func (s *Scheduler) prune(ready []model.Job, now time.Time) {
	readySet := make(map[string]struct{}, len(ready))
	for _, job := range ready {
		readySet[job.ID.Hex()] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for jobID, taskID := range s.inFlight {
		if _, ok := readySet[jobID]; !ok {
			delete(s.inFlight, jobID)
			continue
		}
		if s.tasks != nil {
			if task, found := s.tasks.Get(taskID); found && !task.Status.Terminal() {
				continue
			}
		}
		delete(s.inFlight, jobID)

		r := s.retries[jobID]
		r.attempts++
		r.after = now.Add(s.backoff(r.attempts))
		s.retries[jobID] = r
		slog.Info("Auto-apply run left job ready, backing off",
			"job_id", jobID,
			"task_id", taskID,
			"attempts", r.attempts,
			"retry_after", r.after.Format(time.RFC3339),
		)
	}

	for jobID := range s.retries {
		if _, ok := readySet[jobID]; !ok {
			delete(s.retries, jobID)
		}
	}
}

func (s *Scheduler) backoff(attempts int) time.Duration {
	factor := 1
	for i := 1; i < attempts && factor < maxBackoffFactor; i++ {
		factor *= 2
	}
	return time.Duration(factor) * s.opts.RetryBackoff
}

// skipReason reports why a ready job is not submitted this sweep, or ""
func (s *Scheduler) skipReason(jobID string, now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inFlight[jobID]; ok {
		return "task still queued or running"
	}
	if r, ok := s.retries[jobID]; ok && now.Before(r.after) {
		return "backing off after an unsuccessful run"
	}
	return ""
}
