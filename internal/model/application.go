package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outcome is the terminal classification of an automation run
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ResultKind names why a run ended the way it did
type ResultKind string

const (
	KindConfirmed                    ResultKind = "confirmed" // success marker or navigation after an advance click
	KindPotential                    ResultKind = "potential" // actions performed, no confirmation seen
	KindLoginWallDetected            ResultKind = "login_wall_detected"
	KindNoActionsPerformed           ResultKind = "no_actions_performed"
	KindUnconfirmed                  ResultKind = "unconfirmed" // strict mode only
	KindUnhandledAutomationException ResultKind = "unhandled_automation_exception"
)

// ApplicationResult is produced once per automation run
type ApplicationResult struct {
	Outcome          Outcome    `json:"outcome" bson:"outcome"`
	Kind             ResultKind `json:"kind" bson:"kind"`
	Message          string     `json:"message" bson:"message"`
	ActionsPerformed int        `json:"actions_performed" bson:"actions_performed"`
	Steps            int        `json:"steps" bson:"steps"`
	FinalURL         string     `json:"final_url,omitempty" bson:"final_url,omitempty"`
}

// Succeeded reports whether the outcome is success
func (r ApplicationResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Success builds a success result
func Success(kind ResultKind, message string, actions, steps int, finalURL string) ApplicationResult {
	return ApplicationResult{
		Outcome:          OutcomeSuccess,
		Kind:             kind,
		Message:          message,
		ActionsPerformed: actions,
		Steps:            steps,
		FinalURL:         finalURL,
	}
}

// Failure builds a failure result
func Failure(kind ResultKind, message string, actions, steps int, finalURL string) ApplicationResult {
	return ApplicationResult{
		Outcome:          OutcomeFailure,
		Kind:             kind,
		Message:          message,
		ActionsPerformed: actions,
		Steps:            steps,
		FinalURL:         finalURL,
	}
}

// ApplicationRun is the persisted record of one automation run
type ApplicationRun struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	JobID       primitive.ObjectID `json:"job_id" bson:"job_id"`
	TaskID      string             `json:"task_id,omitempty" bson:"task_id,omitempty"`
	JobURL      string             `json:"job_url" bson:"job_url"`
	Source      string             `json:"source" bson:"source"`
	Applier     string             `json:"applier" bson:"applier"`
	SessionMode string             `json:"session_mode,omitempty" bson:"session_mode,omitempty"`
	Result      ApplicationResult  `json:"result" bson:"result"`
	StartedAt   time.Time          `json:"started_at" bson:"started_at"`
	DurationMs  int64              `json:"duration_ms" bson:"duration_ms"`
}

// RunSummary represents a summary for list responses
type RunSummary struct {
	ID               string `json:"id"`
	JobID            string `json:"job_id"`
	Applier          string `json:"applier"`
	Outcome          string `json:"outcome"`
	Kind             string `json:"kind"`
	ActionsPerformed int    `json:"actions_performed"`
	StartedAt        string `json:"started_at"`
	DurationMs       int64  `json:"duration_ms"`
}

// ToSummary converts ApplicationRun to RunSummary
func (r *ApplicationRun) ToSummary() RunSummary {
	var startedAt string
	if !r.StartedAt.IsZero() {
		startedAt = r.StartedAt.Format(time.RFC3339)
	}

	return RunSummary{
		ID:               r.ID.Hex(),
		JobID:            r.JobID.Hex(),
		Applier:          r.Applier,
		Outcome:          string(r.Result.Outcome),
		Kind:             string(r.Result.Kind),
		ActionsPerformed: r.Result.ActionsPerformed,
		StartedAt:        startedAt,
		DurationMs:       r.DurationMs,
	}
}
