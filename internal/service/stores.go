package service

import (
	"context"

	"github.com/PratikLad0/job-search-automation/internal/automation"
	"github.com/PratikLad0/job-search-automation/internal/browser"
	"github.com/PratikLad0/job-search-automation/internal/model"
	"github.com/PratikLad0/job-search-automation/internal/worker"
)

// JobStore reads jobs and persists status changes
type JobStore interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
}

// ProfileStore reads the candidate profile
type ProfileStore interface {
	Get(ctx context.Context, id string) (*model.CandidateProfile, error)
}

// RunStore persists application run records
type RunStore interface {
	Create(ctx context.Context, run *model.ApplicationRun) error
}

// TextGenerator produces text from a prompt and an optional system prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Submitter queues work on the task coordinator
type Submitter interface {
	Submit(kind string, fn worker.TaskFunc) (string, error)
}

// Session is an open browser owned by one automation run
type Session interface {
	Mode() string
	Page() (automation.Page, error)
	Close()
}

// SessionProvider opens browser sessions
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
}

// NewBrowserSessions adapts a browser manager to SessionProvider
func NewBrowserSessions(m *browser.Manager) SessionProvider {
	return browserSessions{manager: m}
}

type browserSessions struct {
	manager *browser.Manager
}

func (b browserSessions) Acquire(ctx context.Context) (Session, error) {
	s, err := b.manager.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return browserSession{s}, nil
}

type browserSession struct {
	*browser.Session
}

func (s browserSession) Page() (automation.Page, error) {
	p, err := s.NewPage()
	if err != nil {
		return nil, err
	}
	return p, nil
}
