package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/gofrs/flock"
)

// Session is one running browser. It is exclusive for its profile directory
// until Close.
type Session struct {
	mode          string
	ctx           context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	lock          *flock.Flock

	mu      sync.Mutex
	tabs    []context.CancelFunc
	closed  bool
	primary *Page
}

// Mode returns how the session was opened
func (s *Session) Mode() string {
	return s.mode
}

// NewPage returns the session's first tab
func (s *Session) NewPage() (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("browser session is closed")
	}
	if s.primary == nil {
		s.primary = &Page{ctx: s.ctx, session: s}
	}
	return s.primary, nil
}

func (s *Session) trackTab(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		cancel()
		return
	}
	s.tabs = append(s.tabs, cancel)
}

// ExportState saves the session's cookies to path
func (s *Session) ExportState(ctx context.Context, path string) error {
	var state *StorageState
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(c context.Context) error {
		var exportErr error
		state, exportErr = exportCookies(c)
		return exportErr
	}))
	if err != nil {
		return err
	}
	if err := state.Save(path); err != nil {
		return err
	}
	slog.Info("Exported browser state", "state_path", path, "cookies", len(state.Cookies))
	return nil
}

// Close stops the browser and releases the profile lock. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	tabs := s.tabs
	s.tabs = nil
	s.mu.Unlock()

	for _, cancel := range tabs {
		cancel()
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			slog.Warn("Failed to release browser profile lock", "path", s.lock.Path(), "error", err)
		}
	}
	slog.Debug("Browser session closed", "session_mode", s.mode)
}
