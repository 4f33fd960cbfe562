package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PratikLad0/job-search-automation/internal/model"
)

// GenericApplier is the registry name of the heuristic engine
const GenericApplier = "generic"

// Options bound the state machine's waits and step count
type Options struct {
	MaxSteps          int
	ProbeTimeout      time.Duration
	NavigationTimeout time.Duration
	NewTabWait        time.Duration
	PacingMin         time.Duration
	PacingMax         time.Duration
	// RequireConfirmation turns "actions but no confirmation" into a failure
	RequireConfirmation bool
}

// DefaultOptions returns the standard bounds
func DefaultOptions() Options {
	return Options{
		MaxSteps:          5,
		ProbeTimeout:      2 * time.Second,
		NavigationTimeout: 15 * time.Second,
		NewTabWait:        5 * time.Second,
		PacingMin:         time.Second,
		PacingMax:         3 * time.Second,
	}
}

// Engine walks an unknown application page with heuristic tables
type Engine struct {
	name       string
	heuristics Heuristics
	opts       Options
	pacer      *Pacer
	fileExists func(path string) bool
}

// NewEngine creates a heuristic applier
func NewEngine(name string, h Heuristics, opts Options, pacer *Pacer) *Engine {
	def := DefaultOptions()
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = def.ProbeTimeout
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = def.NavigationTimeout
	}
	if opts.NewTabWait <= 0 {
		opts.NewTabWait = def.NewTabWait
	}
	if pacer == nil {
		pacer = NewPacer(opts.PacingMin, opts.PacingMax)
	}
	if name == "" {
		name = GenericApplier
	}

	return &Engine{
		name:       name,
		heuristics: h,
		opts:       opts,
		pacer:      pacer,
		fileExists: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		},
	}
}

// Name returns the applier name
func (e *Engine) Name() string {
	return e.name
}

// Apply runs the state machine against page. It never returns an error or panics;
// every fault becomes an UnhandledAutomationException result.
func (e *Engine) Apply(ctx context.Context, page Page, job *model.Job, profile *model.CandidateProfile) (result model.ApplicationResult) {
	r := &run{
		engine:  e,
		page:    page,
		job:     job,
		profile: profile,
		log:     slog.With("applier", e.name),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Automation panicked", "panic", rec, "step", r.steps)
			result = model.Failure(model.KindUnhandledAutomationException,
				fmt.Sprintf("automation error: %v", rec), r.actions, r.steps, r.lastURL)
		}
	}()

	if job == nil || page == nil {
		r.log.Error("Automation started without a job or page")
		return model.Failure(model.KindUnhandledAutomationException,
			"automation error: missing job or page", 0, 0, "")
	}
	r.log = r.log.With("job_id", job.ID.Hex())

	result, err := r.execute(ctx)
	if err != nil {
		r.log.Error("Automation failed", "error", err, "step", r.steps, "actions", r.actions)
		return model.Failure(model.KindUnhandledAutomationException,
			fmt.Sprintf("automation error: %v", err), r.actions, r.steps, r.lastURL)
	}

	r.log.Info("Automation finished",
		"outcome", result.Outcome,
		"kind", result.Kind,
		"actions", result.ActionsPerformed,
		"steps", result.Steps,
	)
	return result
}

// run holds the mutable state of one Apply call
type run struct {
	engine  *Engine
	page    Page
	job     *model.Job
	profile *model.CandidateProfile
	log     *slog.Logger

	actions        int
	steps          int
	resumeUploaded bool
	lastURL        string
}

func (r *run) execute(ctx context.Context) (model.ApplicationResult, error) {
	h := r.engine.heuristics
	opts := r.engine.opts

	// Navigate
	r.log.Info("Navigating to job page", "url", r.job.URL)
	if err := r.page.Navigate(ctx, r.job.URL, opts.NavigationTimeout); err != nil {
		if !isTimeout(err) {
			return model.ApplicationResult{}, fmt.Errorf("failed to navigate: %w", err)
		}
		r.log.Warn("Page load timed out, continuing", "url", r.job.URL)
	}
	r.refreshURL(ctx)

	if wall, err := r.loginWall(ctx, h.LoginWallMarkers); err != nil {
		return model.ApplicationResult{}, err
	} else if wall != "" {
		return r.loginWallResult(wall), nil
	}

	// LocateApplyAffordance
	clicked, err := r.clickApply(ctx)
	if err != nil {
		return model.ApplicationResult{}, err
	}
	if clicked {
		if err := r.engine.pacer.Pause(ctx); err != nil {
			return model.ApplicationResult{}, err
		}
		r.refreshURL(ctx)
		if frag, ok := containsAny(strings.ToLower(r.lastURL), h.LoginURLFragments); ok {
			return r.loginWallResult("redirected to " + frag + " page"), nil
		}
	}

	// FormStep
	for step := 1; step <= opts.MaxSteps; step++ {
		r.steps = step

		if wall, err := r.loginWall(ctx, append(append([]string{}, h.LoginWallMarkers...), h.StepWallMarkers...)); err != nil {
			return model.ApplicationResult{}, err
		} else if wall != "" {
			return r.loginWallResult(wall), nil
		}

		if err := r.uploadResume(ctx); err != nil {
			return model.ApplicationResult{}, err
		}
		if err := r.fillFields(ctx); err != nil {
			return model.ApplicationResult{}, err
		}

		advanced, confirmed, err := r.advance(ctx)
		if err != nil {
			return model.ApplicationResult{}, err
		}
		if confirmed != "" {
			return model.Success(model.KindConfirmed,
				fmt.Sprintf("Application submitted (%s)", confirmed),
				r.actions, r.steps, r.lastURL), nil
		}
		if !advanced {
			r.log.Debug("No advance control found, stopping", "step", step)
			break
		}
	}

	return r.classify(), nil
}

func (r *run) classify() model.ApplicationResult {
	if r.actions == 0 {
		return model.Failure(model.KindNoActionsPerformed,
			"No application actions could be performed on this page",
			0, r.steps, r.lastURL)
	}
	if r.engine.opts.RequireConfirmation {
		return model.Failure(model.KindUnconfirmed,
			fmt.Sprintf("Performed %d actions but no submission confirmation was detected", r.actions),
			r.actions, r.steps, r.lastURL)
	}
	return model.Success(model.KindPotential,
		fmt.Sprintf("Application potentially submitted after %d actions; no confirmation detected", r.actions),
		r.actions, r.steps, r.lastURL)
}

func (r *run) loginWallResult(marker string) model.ApplicationResult {
	r.log.Warn("Login wall detected", "marker", marker, "step", r.steps)
	return model.Failure(model.KindLoginWallDetected,
		fmt.Sprintf("Login wall detected (%s); sign in with the login helper and retry", marker),
		r.actions, r.steps, r.lastURL)
}

// loginWall returns the marker that identified a sign-in wall, or ""
func (r *run) loginWall(ctx context.Context, markers []string) (string, error) {
	text, err := r.bodyText(ctx)
	if err != nil {
		return "", err
	}
	if marker, ok := containsAny(text, markers); ok {
		return marker, nil
	}
	for _, loc := range r.engine.heuristics.LoginWallLocators {
		m, err := r.find(ctx, loc)
		if err != nil {
			return "", err
		}
		if m.Found && m.Visible {
			return loc.String(), nil
		}
	}
	return "", nil
}

func (r *run) clickApply(ctx context.Context) (bool, error) {
	for _, loc := range r.engine.heuristics.ApplyLocators {
		m, err := r.find(ctx, loc)
		if err != nil {
			return false, err
		}
		if !m.Usable() {
			continue
		}

		r.log.Info("Clicking apply control", "selector", loc.String())
		next, opened, err := r.page.ClickForNewTab(ctx, m.Ref, r.engine.opts.NewTabWait)
		if err != nil {
			return false, fmt.Errorf("failed to click apply control %s: %w", loc, err)
		}
		// Opening the form is not an application action.
		if opened && next != nil {
			r.log.Info("Apply control opened a new tab, switching")
			r.page = next
		}
		return true, nil
	}

	r.log.Debug("No apply control found, treating page as the form")
	return false, nil
}

func (r *run) uploadResume(ctx context.Context) error {
	if r.resumeUploaded {
		return nil
	}
	path := r.resumePath()
	if path == "" {
		return nil
	}

	for _, loc := range r.engine.heuristics.ResumeInputs {
		m, err := r.find(ctx, loc)
		if err != nil {
			return err
		}
		// File inputs are often visually hidden behind a styled button.
		if !m.Found || m.Ref == "" || !m.Empty {
			continue
		}
		if err := r.page.SetFiles(ctx, m.Ref, path); err != nil {
			return fmt.Errorf("failed to upload resume: %w", err)
		}
		r.actions++
		r.resumeUploaded = true
		r.log.Info("Uploaded resume", "selector", loc.String(), "step", r.steps)
		return r.engine.pacer.Pause(ctx)
	}
	return nil
}

func (r *run) resumePath() string {
	if r.job.ResumePath != "" && r.engine.fileExists(r.job.ResumePath) {
		return r.job.ResumePath
	}
	if r.profile != nil && r.profile.ResumePath != "" && r.engine.fileExists(r.profile.ResumePath) {
		return r.profile.ResumePath
	}
	return ""
}

func (r *run) fillFields(ctx context.Context) error {
	for _, rule := range r.engine.heuristics.Fields {
		value := ProfileValue(r.profile, rule.Field)
		if value == "" {
			continue
		}
		for _, loc := range rule.Locators {
			m, err := r.find(ctx, loc)
			if err != nil {
				return err
			}
			if !m.Usable() || !m.Empty {
				continue
			}
			if err := r.page.Fill(ctx, m.Ref, value); err != nil {
				return fmt.Errorf("failed to fill %s: %w", rule.Field, err)
			}
			r.actions++
			r.log.Debug("Filled field", "field", rule.Field, "selector", loc.String(), "step", r.steps)
			if err := r.engine.pacer.Pause(ctx); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

// advance clicks the first visible advance control.
// confirmed is non-empty when the click led to a URL change or a success marker.
func (r *run) advance(ctx context.Context) (advanced bool, confirmed string, err error) {
	for _, loc := range r.engine.heuristics.AdvanceLocators {
		m, err := r.find(ctx, loc)
		if err != nil {
			return false, "", err
		}
		if !m.Usable() {
			continue
		}

		before := r.lastURL
		r.log.Info("Clicking advance control", "selector", loc.String(), "step", r.steps)
		if err := r.page.Click(ctx, m.Ref); err != nil {
			return false, "", fmt.Errorf("failed to click %s: %w", loc, err)
		}
		r.actions++
		if err := r.engine.pacer.Pause(ctx); err != nil {
			return true, "", err
		}

		r.refreshURL(ctx)
		if before != "" && r.lastURL != "" && r.lastURL != before {
			return true, "navigated to " + r.lastURL, nil
		}
		text, err := r.bodyText(ctx)
		if err != nil {
			return true, "", err
		}
		if marker, ok := containsAny(text, r.engine.heuristics.SuccessMarkers); ok {
			return true, "found \"" + marker + "\"", nil
		}
		return true, "", nil
	}
	return false, "", nil
}

func (r *run) find(ctx context.Context, loc Locator) (Match, error) {
	m, err := r.page.Find(ctx, loc, r.engine.opts.ProbeTimeout)
	if err == nil {
		return m, nil
	}
	switch {
	case isTimeout(err):
		return Match{}, nil
	case errors.Is(err, ErrPageClosed), ctx.Err() != nil:
		return Match{}, fmt.Errorf("failed to probe %s: %w", loc, err)
	}
	// A failed lookup is skipped like a missing element.
	r.log.Debug("Lookup failed, skipping locator", "selector", loc.String(), "error", err)
	return Match{}, nil
}

func (r *run) bodyText(ctx context.Context) (string, error) {
	text, err := r.page.BodyText(ctx)
	if err != nil {
		if isTimeout(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read page text: %w", err)
	}
	return strings.ToLower(text), nil
}

func (r *run) refreshURL(ctx context.Context) {
	if u, err := r.page.URL(ctx); err == nil {
		r.lastURL = u
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
