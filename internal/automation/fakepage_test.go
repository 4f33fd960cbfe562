package automation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

type fakeElement struct {
	css     string
	text    string
	hidden  bool
	value   string
	onClick func(p *fakePage)
	opens   *fakePage
}

// fakePage is an in-memory page whose elements match locators by exact CSS
// string and case-insensitive text.
type fakePage struct {
	url      string
	body     string
	elements []*fakeElement

	navErr     error
	clickErr   error
	panicFind  bool
	findErr    map[string]error // keyed by Locator.String()
	navigated  []string
	fills      map[string]string
	uploads    []string
	clicks     []string
	probeCount int
}

func newFakePage(url, body string, elements ...*fakeElement) *fakePage {
	return &fakePage{url: url, body: body, elements: elements, fills: map[string]string{}}
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) URL(context.Context) (string, error) { return p.url, nil }

func (p *fakePage) BodyText(context.Context) (string, error) {
	var b strings.Builder
	b.WriteString(p.body)
	for _, el := range p.elements {
		if !el.hidden && el.text != "" {
			b.WriteString(" ")
			b.WriteString(el.text)
		}
	}
	return b.String(), nil
}

func (p *fakePage) Find(_ context.Context, loc Locator, _ time.Duration) (Match, error) {
	p.probeCount++
	if p.panicFind {
		panic("target closed")
	}
	if err := p.findErr[loc.String()]; err != nil {
		return Match{}, err
	}
	for i, el := range p.elements {
		if loc.CSS != "" && el.css != loc.CSS {
			continue
		}
		if loc.Text != "" && !strings.Contains(strings.ToLower(el.text), loc.Text) {
			continue
		}
		return Match{Found: true, Visible: !el.hidden, Empty: el.value == "", Ref: strconv.Itoa(i)}, nil
	}
	return Match{}, nil
}

func (p *fakePage) element(ref string) (*fakeElement, error) {
	i, err := strconv.Atoi(ref)
	if err != nil || i < 0 || i >= len(p.elements) {
		return nil, errors.New("stale element reference")
	}
	return p.elements[i], nil
}

func (p *fakePage) Click(_ context.Context, ref string) error {
	if p.clickErr != nil {
		return p.clickErr
	}
	el, err := p.element(ref)
	if err != nil {
		return err
	}
	p.clicks = append(p.clicks, el.css+"|"+el.text)
	if el.onClick != nil {
		el.onClick(p)
	}
	return nil
}

func (p *fakePage) ClickForNewTab(ctx context.Context, ref string, _ time.Duration) (Page, bool, error) {
	el, err := p.element(ref)
	if err != nil {
		return nil, false, err
	}
	if err := p.Click(ctx, ref); err != nil {
		return nil, false, err
	}
	if el.opens != nil {
		return el.opens, true, nil
	}
	return nil, false, nil
}

func (p *fakePage) Fill(_ context.Context, ref, value string) error {
	el, err := p.element(ref)
	if err != nil {
		return err
	}
	el.value = value
	p.fills[el.css] = value
	return nil
}

func (p *fakePage) SetFiles(_ context.Context, ref string, paths ...string) error {
	el, err := p.element(ref)
	if err != nil {
		return err
	}
	el.value = strings.Join(paths, ",")
	p.uploads = append(p.uploads, paths...)
	return nil
}
