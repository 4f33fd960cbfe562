package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/PratikLad0/job-search-automation/internal/automation"
)

const (
	refAttribute   = "data-autoapply-ref"
	probeInterval  = 200 * time.Millisecond
	actionTimeout  = 10 * time.Second
	clickableQuery = `a, button, [role="button"], input[type="submit"], input[type="button"], label`
)

// probeScript finds the first matching element, preferring visible ones, and tags
// it with a stable ref attribute.
const probeScript = `(function(css, text, attr, clickable) {
  let nodes;
  try { nodes = document.querySelectorAll(css || clickable); } catch (e) { return {found: false}; }
  let fallback = null;
  for (const el of nodes) {
    if (text) {
      const label = (el.innerText || el.value || el.getAttribute('aria-label') || '').toLowerCase();
      if (!label.includes(text)) continue;
    }
    let ref = el.getAttribute(attr);
    if (!ref) {
      window.__autoapplySeq = (window.__autoapplySeq || 0) + 1;
      ref = 'r' + window.__autoapplySeq;
      el.setAttribute(attr, ref);
    }
    const style = window.getComputedStyle(el);
    const rect = el.getBoundingClientRect();
    const visible = style.visibility !== 'hidden' && style.display !== 'none' && rect.width > 0 && rect.height > 0;
    const empty = el.type === 'file' ? !(el.files && el.files.length) : !el.value;
    const match = {found: true, visible: visible, empty: empty, ref: ref};
    if (visible) return match;
    if (!fallback) fallback = match;
  }
  return fallback || {found: false};
})(%s, %s, %s, %s)`

type probeResult struct {
	Found   bool   `json:"found"`
	Visible bool   `json:"visible"`
	Empty   bool   `json:"empty"`
	Ref     string `json:"ref"`
}

// Page is a chromedp tab driven by the automation engine
type Page struct {
	ctx     context.Context
	session *Session
}

var _ automation.Page = (*Page)(nil)

// bounded derives a chromedp context that ends at timeout or when ctx ends
func (p *Page) bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

func refSelector(ref string) string {
	return fmt.Sprintf(`[%s=%q]`, refAttribute, ref)
}

func deadlineErr(tctx context.Context, err error) error {
	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return err
}

// Navigate loads url and waits for the load event up to timeout
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	tctx, cancel := p.bounded(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return deadlineErr(tctx, err)
	}
	return nil
}

// URL returns the current location
func (p *Page) URL(ctx context.Context) (string, error) {
	tctx, cancel := p.bounded(ctx, actionTimeout)
	defer cancel()
	var location string
	if err := chromedp.Run(tctx, chromedp.Location(&location)); err != nil {
		return "", deadlineErr(tctx, err)
	}
	return location, nil
}

// BodyText returns the visible text of the document body
func (p *Page) BodyText(ctx context.Context) (string, error) {
	tctx, cancel := p.bounded(ctx, actionTimeout)
	defer cancel()
	var text string
	if err := chromedp.Run(tctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err != nil {
		return "", deadlineErr(tctx, err)
	}
	return text, nil
}

// Find polls for loc until a visible match appears or timeout passes
func (p *Page) Find(ctx context.Context, loc automation.Locator, timeout time.Duration) (automation.Match, error) {
	script, err := buildProbe(loc)
	if err != nil {
		return automation.Match{}, err
	}

	tctx, cancel := p.bounded(ctx, timeout)
	defer cancel()

	var last probeResult
	for {
		var res probeResult
		err := chromedp.Run(tctx, chromedp.Evaluate(script, &res))
		switch {
		case err == nil:
			last = res
		case p.ctx.Err() != nil:
			return automation.Match{}, fmt.Errorf("%w: %v", automation.ErrPageClosed, err)
		case tctx.Err() == nil:
			// The document is usually mid-navigation; poll again.
			slog.Debug("Locator evaluation failed, retrying", "selector", loc.String(), "error", err)
			last = probeResult{}
		}
		if last.Found && last.Visible {
			break
		}

		select {
		case <-tctx.Done():
		case <-time.After(probeInterval):
			continue
		}
		break
	}

	if err := ctx.Err(); err != nil {
		return automation.Match{}, err
	}
	return automation.Match{Found: last.Found, Visible: last.Visible, Empty: last.Empty, Ref: last.Ref}, nil
}

func buildProbe(loc automation.Locator) (string, error) {
	args := make([]interface{}, 0, 4)
	for _, v := range []string{loc.CSS, loc.Text, refAttribute, clickableQuery} {
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode probe argument: %w", err)
		}
		args = append(args, string(encoded))
	}
	return fmt.Sprintf(probeScript, args...), nil
}

// Click clicks the element tagged with ref
func (p *Page) Click(ctx context.Context, ref string) error {
	tctx, cancel := p.bounded(ctx, actionTimeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Click(refSelector(ref), chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click: %w", deadlineErr(tctx, err))
	}
	return nil
}

// ClickForNewTab clicks ref and switches to a tab it opens within wait
func (p *Page) ClickForNewTab(ctx context.Context, ref string, wait time.Duration) (automation.Page, bool, error) {
	current := chromedp.FromContext(p.ctx)
	var currentID target.ID
	if current != nil && current.Target != nil {
		currentID = current.Target.TargetID
	}

	listenCtx, stopListening := context.WithCancel(p.ctx)
	defer stopListening()
	opened := chromedp.WaitNewTarget(listenCtx, func(info *target.Info) bool {
		return info.Type == "page" && info.OpenerID == currentID
	})

	if err := p.Click(ctx, ref); err != nil {
		return nil, false, err
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case id := <-opened:
		tabCtx, cancel := chromedp.NewContext(p.ctx, chromedp.WithTargetID(id))
		if err := chromedp.Run(tabCtx); err != nil {
			cancel()
			return nil, false, fmt.Errorf("failed to attach to new tab: %w", err)
		}
		if p.session != nil {
			p.session.trackTab(cancel)
		}
		return &Page{ctx: tabCtx, session: p.session}, true, nil
	case <-timer.C:
		return nil, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Fill types value into the element tagged with ref
func (p *Page) Fill(ctx context.Context, ref, value string) error {
	tctx, cancel := p.bounded(ctx, actionTimeout)
	defer cancel()
	sel := refSelector(ref)
	if err := chromedp.Run(tctx,
		chromedp.Focus(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to fill: %w", deadlineErr(tctx, err))
	}
	return nil
}

// SetFiles attaches local files to the file input tagged with ref
func (p *Page) SetFiles(ctx context.Context, ref string, paths ...string) error {
	tctx, cancel := p.bounded(ctx, actionTimeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.SetUploadFiles(refSelector(ref), paths, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to set upload files: %w", deadlineErr(tctx, err))
	}
	return nil
}
