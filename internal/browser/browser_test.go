package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/PratikLad0/job-search-automation/internal/automation"
)

func TestLockProfileSecondAttemptFailsFast(t *testing.T) {
	dir := t.TempDir()

	first, err := lockProfile(dir)
	if err != nil {
		t.Fatalf("lockProfile: %v", err)
	}
	t.Cleanup(func() { _ = first.Unlock() })

	start := time.Now()
	_, err = lockProfile(dir)
	if !errors.Is(err, ErrProfileLocked) {
		t.Fatalf("err = %v, want ErrProfileLocked", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("second lock took %s, want fail fast", elapsed)
	}

	var locked *ProfileLockedError
	if !errors.As(err, &locked) || locked.Path != dir {
		t.Errorf("err = %#v, want ProfileLockedError for %s", err, dir)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	again, err := lockProfile(dir)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = again.Unlock()
}

func TestAcquireOnHeldProfileReturnsProfileLocked(t *testing.T) {
	dir := t.TempDir()
	held, err := lockProfile(dir)
	if err != nil {
		t.Fatalf("lockProfile: %v", err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	m := NewManager(Options{ProfileDir: dir, Headless: true, AcquireTimeout: time.Second})
	if m.Mode() != ModePersistentProfile {
		t.Fatalf("Mode = %q, want %q", m.Mode(), ModePersistentProfile)
	}

	session, err := m.Acquire(context.Background())
	if session != nil {
		session.Close()
		t.Fatal("expected no session")
	}
	if !errors.Is(err, ErrProfileLocked) {
		t.Errorf("err = %v, want ErrProfileLocked", err)
	}
}

func TestMapLaunchError(t *testing.T) {
	tests := []struct {
		name       string
		dir        string
		err        error
		wantLocked bool
	}{
		{"singleton lock", "/profiles/a", errors.New("Failed to create /profiles/a/SingletonLock: File exists"), true},
		{"profile in use", "/profiles/a", errors.New("The profile appears to be in use by another Chromium process"), true},
		{"other failure", "/profiles/a", errors.New("exec: \"google-chrome\": executable file not found"), false},
		{"no profile configured", "", errors.New("SingletonLock"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapLaunchError(tt.dir, tt.err)
			if errors.Is(got, ErrProfileLocked) != tt.wantLocked {
				t.Errorf("mapLaunchError = %v, locked want %v", got, tt.wantLocked)
			}
		})
	}
	if mapLaunchError("/x", nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestManagerModeResolution(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "auth_state.json")

	m := NewManager(Options{StatePath: statePath})
	if m.Mode() != ModeAnonymous {
		t.Errorf("Mode = %q, want anonymous without a state file", m.Mode())
	}

	state := &StorageState{Cookies: []Cookie{{Name: "li_at", Value: "token", Domain: ".linkedin.com", Path: "/"}}}
	if err := state.Save(statePath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.Mode() != ModeSavedState {
		t.Errorf("Mode = %q, want saved_state", m.Mode())
	}
}

func TestStateFromNetworkMarksSessionCookies(t *testing.T) {
	state := stateFromNetwork([]*network.Cookie{
		{Name: "sid", Value: "1", Domain: "example.com", Path: "/", Session: true, Expires: 12345},
		{Name: "pref", Value: "dark", Domain: "example.com", Path: "/", Expires: 1893456000, SameSite: network.CookieSameSiteLax},
	})

	if len(state.Cookies) != 2 {
		t.Fatalf("got %d cookies, want 2", len(state.Cookies))
	}
	if state.Cookies[0].Expires != -1 {
		t.Errorf("session cookie Expires = %v, want -1", state.Cookies[0].Expires)
	}
	if state.Cookies[1].SameSite != "Lax" {
		t.Errorf("SameSite = %q, want Lax", state.Cookies[1].SameSite)
	}

	path := filepath.Join(t.TempDir(), "nested", "state.json")
	if err := state.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if loaded.Cookies[1].Value != "dark" {
		t.Errorf("loaded cookie = %+v", loaded.Cookies[1])
	}
}

func TestLoadStateRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadState(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadState(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected read error")
	}
}

func TestBuildProbeEncodesArguments(t *testing.T) {
	script, err := buildProbe(automation.Locator{CSS: `input[name*='first' i]`, Text: `say "hi"`})
	if err != nil {
		t.Fatalf("buildProbe: %v", err)
	}
	if !strings.Contains(script, `"input[name*='first' i]"`) {
		t.Errorf("css not embedded as a JS string: %s", script)
	}
	if !strings.Contains(script, `"say \"hi\""`) {
		t.Errorf("text not escaped: %s", script)
	}
	if strings.Contains(script, "%!") {
		t.Errorf("format verbs left unfilled: %s", script)
	}
}

func chromeOrSkip(t *testing.T) string {
	t.Helper()
	if path := os.Getenv("CHROME_PATH"); path != "" {
		return path
	}
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome binary available")
	return ""
}

func TestPageSetFilesAttachesResume(t *testing.T) {
	execPath := chromeOrSkip(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<form><input type="file" name="resume"></form>`))
	}))
	t.Cleanup(srv.Close)

	resume := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(resume, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewManager(Options{ExecPath: execPath, Headless: true}).Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(s.Close)

	page, err := s.NewPage()
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	if err := page.Navigate(ctx, srv.URL, 10*time.Second); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	loc := automation.Locator{CSS: "input[type='file'][name*='resume' i]"}
	m, err := page.Find(ctx, loc, 5*time.Second)
	if err != nil || !m.Found || !m.Empty {
		t.Fatalf("Find = %+v, %v; want an empty file input", m, err)
	}

	if err := page.SetFiles(ctx, m.Ref, resume); err != nil {
		t.Fatalf("SetFiles: %v", err)
	}

	var name string
	if err := chromedp.Run(page.ctx, chromedp.Evaluate(`document.querySelector("input").files[0].name`, &name)); err != nil {
		t.Fatalf("read files: %v", err)
	}
	if name != "resume.pdf" {
		t.Errorf("attached file = %q, want resume.pdf", name)
	}

	m, err = page.Find(ctx, loc, time.Second)
	if err != nil || m.Empty {
		t.Errorf("Find after upload = %+v, %v; want a filled input", m, err)
	}
}
