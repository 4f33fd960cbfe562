package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the profile directory while a session holds it
const LockFileName = ".jobsearch.lock"

// ErrProfileLocked means the persistent profile directory is already in use
var ErrProfileLocked = errors.New("browser profile is in use")

// ProfileLockedError carries the locked profile path
type ProfileLockedError struct {
	Path string
}

func (e *ProfileLockedError) Error() string {
	return fmt.Sprintf("browser profile %s is in use by another browser", e.Path)
}

func (e *ProfileLockedError) Unwrap() error {
	return ErrProfileLocked
}

// lockProfile takes a non-blocking exclusive lock on dir
func lockProfile(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, LockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock profile directory: %w", err)
	}
	if !locked {
		return nil, &ProfileLockedError{Path: dir}
	}
	return fl, nil
}

// launchLockMarkers are fragments of Chrome launch errors caused by a profile
// already opened by another Chrome process.
var launchLockMarkers = []string{
	"profile in use",
	"profile appears to be in use",
	"singletonlock",
	"processsingleton",
}

// mapLaunchError turns a profile-in-use launch failure into ErrProfileLocked
func mapLaunchError(dir string, err error) error {
	if err == nil {
		return nil
	}
	if dir != "" {
		msg := strings.ToLower(err.Error())
		for _, marker := range launchLockMarkers {
			if strings.Contains(msg, marker) {
				return &ProfileLockedError{Path: dir}
			}
		}
	}
	return fmt.Errorf("failed to launch browser: %w", err)
}
