package automation

import (
	"context"
	"errors"
	"time"
)

// ErrPageClosed means the tab or browser behind a Page is gone. Other Find
// errors are treated as a missing element.
var ErrPageClosed = errors.New("page closed")

// Locator describes one way of finding an element.
// CSS narrows by selector, Text by case-insensitive visible text; either may be empty.
type Locator struct {
	CSS  string
	Text string
}

func (l Locator) String() string {
	switch {
	case l.CSS != "" && l.Text != "":
		return l.CSS + " ~ " + l.Text
	case l.Text != "":
		return "text=" + l.Text
	default:
		return l.CSS
	}
}

// Match is the result of probing a page for a locator.
// A missing element is a zero Match, not an error.
type Match struct {
	Found   bool
	Visible bool
	Empty   bool   // input has no value (file inputs: no file selected)
	Ref     string // opaque handle for Click/Fill/SetFiles
}

// Usable reports whether the element can be interacted with
func (m Match) Usable() bool {
	return m.Found && m.Visible && m.Ref != ""
}

// Page is the browser surface the state machine drives.
// Bounded waits that expire return a zero Match or context.DeadlineExceeded,
// which the engine treats as "not found" or "not yet loaded".
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	URL(ctx context.Context) (string, error)
	BodyText(ctx context.Context) (string, error)
	Find(ctx context.Context, loc Locator, timeout time.Duration) (Match, error)
	Click(ctx context.Context, ref string) error
	// ClickForNewTab clicks ref and waits up to wait for a new tab.
	// opened is false when the click stayed in the current page.
	ClickForNewTab(ctx context.Context, ref string, wait time.Duration) (next Page, opened bool, err error)
	Fill(ctx context.Context, ref, value string) error
	SetFiles(ctx context.Context, ref string, paths ...string) error
}
