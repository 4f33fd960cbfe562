package automation

import (
	"context"
	"strings"
	"sync"

	"github.com/PratikLad0/job-search-automation/internal/model"
)

// Applier submits an application on an open page
type Applier interface {
	Name() string
	Apply(ctx context.Context, page Page, job *model.Job, profile *model.CandidateProfile) model.ApplicationResult
}

// Registry selects an applier by job source, falling back to the generic one
type Registry struct {
	mu       sync.RWMutex
	appliers map[string]Applier
	fallback Applier
}

// NewRegistry creates a registry whose fallback is the given generic applier
func NewRegistry(fallback Applier) *Registry {
	return &Registry{
		appliers: make(map[string]Applier),
		fallback: fallback,
	}
}

// Register binds an applier to a job source (case-insensitive)
func (r *Registry) Register(source string, a Applier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appliers[normalizeSource(source)] = a
}

// For returns the applier for source
func (r *Registry) For(source string) Applier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.appliers[normalizeSource(source)]; ok {
		return a
	}
	return r.fallback
}

// Sources lists registered sources
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.appliers))
	for s := range r.appliers {
		out = append(out, s)
	}
	return out
}

func normalizeSource(source string) string {
	return strings.ToLower(strings.TrimSpace(source))
}

// LinkedInHeuristics extends the defaults with LinkedIn Easy Apply controls
func LinkedInHeuristics() Heuristics {
	h := DefaultHeuristics()
	h.ApplyLocators = append([]Locator{
		{CSS: "button.jobs-apply-button"},
		{CSS: "button[aria-label*='easy apply' i]"},
	}, h.ApplyLocators...)
	h.AdvanceLocators = append([]Locator{
		{CSS: "button[aria-label='Submit application']"},
		{CSS: "button[aria-label='Review your application']"},
		{CSS: "button[aria-label='Continue to next step']"},
	}, h.AdvanceLocators...)
	h.SuccessMarkers = append([]string{"your application was sent"}, h.SuccessMarkers...)
	return h
}

// NewDefaultRegistry builds the registry used by the service: the generic engine
// plus a LinkedIn variant sharing the same options.
func NewDefaultRegistry(opts Options, pacer *Pacer) *Registry {
	reg := NewRegistry(NewEngine(GenericApplier, DefaultHeuristics(), opts, pacer))
	reg.Register("linkedin", NewEngine("linkedin", LinkedInHeuristics(), opts, pacer))
	return reg
}
