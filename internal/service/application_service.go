package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/automation"
	"github.com/PratikLad0/job-search-automation/internal/browser"
	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/worker"
)

// Task kinds queued on the coordinator
const (
	KindJobApplication        = "job_application"
	KindCoverLetterGeneration = "cover_letter_generation"
	KindChat                  = "chat"
)

// Run statuses reported to callers
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// MsgProfileInUse is reported when the automation profile is held by another browser
const MsgProfileInUse = "browser profile is in use; close other Chrome instances or configure a separate automation profile"

// MsgNoResume is reported when neither the job nor the profile has a resume on disk
const MsgNoResume = "No resume found (neither job-specific nor profile default)."

// RunResult is the outcome of one application run as seen by callers
type RunResult struct {
	Status           string           `json:"status"`
	Message          string           `json:"message"`
	ActionsPerformed int              `json:"actions_performed"`
	Kind             model.ResultKind `json:"kind,omitempty"`
}

// ApplicationService runs one automation per job inside a coordinator task
type ApplicationService struct {
	jobs      JobStore
	profiles  ProfileStore
	runs      RunStore
	sessions  SessionProvider
	registry  *automation.Registry
	profileID string

	fileExists func(path string) bool
	now        func() time.Time
}

// NewApplicationService creates an application service. runs may be nil.
func NewApplicationService(
	jobs JobStore,
	profiles ProfileStore,
	runs RunStore,
	sessions SessionProvider,
	registry *automation.Registry,
	profileID string,
) *ApplicationService {
	if profileID == "" {
		profileID = model.DefaultProfileID
	}
	return &ApplicationService{
		jobs:       jobs,
		profiles:   profiles,
		runs:       runs,
		sessions:   sessions,
		registry:   registry,
		profileID:  profileID,
		fileExists: fileExists,
		now:        time.Now,
	}
}

// Submit queues an application run for jobID and returns the task id
func (s *ApplicationService) Submit(q Submitter, jobID string) (string, error) {
	return q.Submit(KindJobApplication, s.Task(jobID))
}

// Task wraps Run as a coordinator task. The run result is the task result;
// the task itself only fails on infrastructure errors.
func (s *ApplicationService) Task(jobID string) worker.TaskFunc {
	return func(ctx context.Context) (interface{}, error) {
		return s.Run(ctx, jobID)
	}
}

// Run applies to one job: loads it, checks for a resume, opens a browser
// session and dispatches to the applier registered for the job source.
func (s *ApplicationService) Run(ctx context.Context, jobID string) (RunResult, error) {
	taskID := worker.TaskIDFromContext(ctx)

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to fetch job: %w", err)
	}

	profile, err := s.profiles.Get(ctx, s.profileID)
	if err != nil {
		slog.Warn("Candidate profile unavailable, continuing with empty profile",
			"task_id", taskID,
			"profile_id", s.profileID,
			"error", err,
		)
		profile = &model.CandidateProfile{ID: s.profileID}
	}

	if !s.hasResume(job, profile) {
		slog.Warn("Skipping application without resume", "task_id", taskID, "job_id", jobID)
		return RunResult{Status: RunStatusError, Message: MsgNoResume}, nil
	}

	slog.Info("Starting application run",
		"task_id", taskID,
		"job_id", jobID,
		"source", job.Source,
		"url", job.URL,
	)

	start := s.now()
	session, err := s.sessions.Acquire(ctx)
	if err != nil {
		if errors.Is(err, browser.ErrProfileLocked) {
			slog.Error("Browser profile locked", "task_id", taskID, "error", err)
			return RunResult{Status: RunStatusError, Message: MsgProfileInUse}, nil
		}
		return RunResult{}, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer session.Close()

	page, err := session.Page()
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to open page: %w", err)
	}

	applier := s.registry.For(job.Source)
	result := applier.Apply(ctx, page, job, profile)

	s.recordRun(job, taskID, applier.Name(), session.Mode(), result, start)

	if result.Succeeded() {
		now := s.now().UTC()
		if err := s.jobs.UpdateFields(ctx, jobID, map[string]interface{}{
			"status":     model.JobStatusApplied,
			"applied_at": now,
		}); err != nil {
			slog.Error("Failed to mark job applied", "task_id", taskID, "job_id", jobID, "error", err)
		}
	}

	slog.Info("Application run finished",
		"task_id", taskID,
		"job_id", jobID,
		"applier", applier.Name(),
		"outcome", result.Outcome,
		"kind", result.Kind,
		"actions_performed", result.ActionsPerformed,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	return toRunResult(result), nil
}

func (s *ApplicationService) hasResume(job *model.Job, profile *model.CandidateProfile) bool {
	for _, p := range []string{job.ResumePath, profile.ResumePath} {
		if p != "" && s.fileExists(p) {
			return true
		}
	}
	return false
}

func (s *ApplicationService) recordRun(job *model.Job, taskID, applier, mode string, result model.ApplicationResult, start time.Time) {
	if s.runs == nil {
		return
	}
	run := &model.ApplicationRun{
		JobID:       job.ID,
		TaskID:      taskID,
		JobURL:      job.URL,
		Source:      job.Source,
		Applier:     applier,
		SessionMode: mode,
		Result:      result,
		StartedAt:   start.UTC(),
		DurationMs:  s.now().Sub(start).Milliseconds(),
	}

	// Saved even when the run context was cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.runs.Create(ctx, run); err != nil {
		slog.Error("Failed to save application run", "task_id", taskID, "error", err)
	}
}

func toRunResult(r model.ApplicationResult) RunResult {
	status := RunStatusError
	if r.Succeeded() {
		status = RunStatusSuccess
	}
	return RunResult{
		Status:           status,
		Message:          r.Message,
		ActionsPerformed: r.ActionsPerformed,
		Kind:             r.Kind,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
