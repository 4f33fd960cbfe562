package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Session modes
const (
	ModePersistentProfile = "persistent_profile"
	ModeSavedState        = "saved_state"
	ModeAnonymous         = "anonymous"
)

// Options configure how sessions are launched
type Options struct {
	ProfileDir     string
	StatePath      string
	ExecPath       string
	Headless       bool
	AcquireTimeout time.Duration
	UserAgent      string
}

// Manager opens browser sessions
type Manager struct {
	opts Options
}

// NewManager creates a session manager
func NewManager(opts Options) *Manager {
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 30 * time.Second
	}
	return &Manager{opts: opts}
}

// Mode reports which mode Acquire will use right now
func (m *Manager) Mode() string {
	if m.opts.ProfileDir != "" {
		return ModePersistentProfile
	}
	if m.opts.StatePath != "" {
		if _, err := os.Stat(m.opts.StatePath); err == nil {
			return ModeSavedState
		}
	}
	return ModeAnonymous
}

// Acquire opens a session: the persistent profile when configured, otherwise an
// anonymous browser seeded with saved state if present.
// A profile held elsewhere fails fast with ErrProfileLocked.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	mode := m.Mode()
	logger := slog.With("session_mode", mode)

	s := &Session{mode: mode}

	if mode == ModePersistentProfile {
		fl, err := lockProfile(m.opts.ProfileDir)
		if err != nil {
			if errors.Is(err, ErrProfileLocked) {
				logger.Warn("Browser profile locked", "profile_dir", m.opts.ProfileDir)
			}
			return nil, err
		}
		s.lock = fl
	}

	if err := m.launch(ctx, s); err != nil {
		s.Close()
		return nil, mapLaunchError(m.opts.ProfileDir, err)
	}

	if mode == ModeSavedState {
		m.seedState(s, logger)
	}

	logger.Info("Browser session acquired", "headless", m.opts.Headless)
	return s, nil
}

func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", m.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 900),
	)
	if m.opts.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(m.opts.ProfileDir))
	}
	if m.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.opts.ExecPath))
	}
	if m.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.opts.UserAgent))
	}
	return opts
}

// launch starts the browser process bounded by AcquireTimeout and ctx.
// The browser outlives ctx; only Session.Close stops it.
func (m *Manager) launch(ctx context.Context, s *Session) error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	s.allocCancel = allocCancel
	s.browserCancel = browserCancel
	s.ctx = browserCtx

	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(browserCtx)
	}()

	timer := time.NewTimer(m.opts.AcquireTimeout)
	defer timer.Stop()

	select {
	case err := <-started:
		return err
	case <-timer.C:
		return fmt.Errorf("browser did not start within %s: %w", m.opts.AcquireTimeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) seedState(s *Session, logger *slog.Logger) {
	state, err := LoadState(m.opts.StatePath)
	if err != nil {
		logger.Warn("Failed to load saved browser state, continuing anonymously", "error", err)
		return
	}

	var imported int
	err = chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var importErr error
		imported, importErr = importCookies(ctx, state)
		return importErr
	}))
	if err != nil {
		logger.Warn("Failed to import saved browser state, continuing anonymously", "error", err)
		return
	}
	logger.Info("Imported saved browser state", "cookies", imported, "state_path", m.opts.StatePath)
}
