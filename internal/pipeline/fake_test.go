package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/uxaudit/internal/browser"
	"github.com/nao1215/uxaudit/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakePage is what a fakeTab serves for one URL.
type fakePage struct {
	status  int
	html    string
	images  []model.Image
	console []model.ConsoleMessage
	err     error
	load    time.Duration
}

// fakeTab is an in-memory browser.Tab.
type fakeTab struct {
	pages    map[string]fakePage
	viewport model.Viewport

	url     string
	visited []string
	shots   []string
	closed  bool

	cards        []model.CardCandidate
	clickTargets map[int]string
	fills        map[string]error
	filled       []string
}

func (t *fakeTab) Navigate(_ context.Context, rawURL string, _ browser.WaitUntil) (browser.Response, error) {
	t.visited = append(t.visited, rawURL)
	page, ok := t.pages[rawURL]
	if !ok {
		return browser.Response{}, browser.NewError(browser.CodeNavigation, "net::ERR_NAME_NOT_RESOLVED", nil)
	}
	if page.err != nil {
		return browser.Response{}, page.err
	}
	t.url = rawURL
	return browser.Response{Status: page.status, URL: rawURL, LoadTime: page.load}, nil
}

func (t *fakeTab) URL() string {
	return t.url
}

func (t *fakeTab) HTML(_ context.Context) (string, error) {
	return t.pages[t.url].html, nil
}

func (t *fakeTab) Images(_ context.Context) ([]model.Image, error) {
	return t.pages[t.url].images, nil
}

func (t *fakeTab) Screenshot(_ context.Context, path string) error {
	t.shots = append(t.shots, path)
	return nil
}

func (t *fakeTab) Console() []model.ConsoleMessage {
	return t.pages[t.url].console
}

func (t *fakeTab) CardCandidates(_ context.Context, _ string, _ float64) ([]model.CardCandidate, error) {
	return t.cards, nil
}

func (t *fakeTab) ClickCandidate(_ context.Context, _ string, _ float64, index int) error {
	target, ok := t.clickTargets[index]
	if !ok {
		return browser.NewError(browser.CodeNotFound, "card candidate not found", nil)
	}
	t.url = target
	return nil
}

func (t *fakeTab) Fill(_ context.Context, selector, _ string) error {
	err, ok := t.fills[selector]
	if !ok {
		return browser.NewError(browser.CodeNotFound, "no element matches "+selector, nil)
	}
	if err == nil {
		t.filled = append(t.filled, selector)
	}
	return err
}

func (t *fakeTab) SetViewport(_ context.Context, vp model.Viewport) error {
	t.viewport = vp
	return nil
}

func (t *fakeTab) Close() error {
	t.closed = true
	return nil
}

// fakeBrowser hands out fakeTabs sharing one set of pages.
type fakeBrowser struct {
	pages map[string]fakePage
	setup func(*fakeTab)
	tabs  []*fakeTab
}

func (b *fakeBrowser) Name() string {
	return "fake"
}

func (b *fakeBrowser) NewTab(_ context.Context, vp model.Viewport) (browser.Tab, error) {
	tab := &fakeTab{pages: b.pages, viewport: vp}
	if b.setup != nil {
		b.setup(tab)
	}
	b.tabs = append(b.tabs, tab)
	return tab, nil
}

func (b *fakeBrowser) Close() error {
	return nil
}
