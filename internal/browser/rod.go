package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/nao1215/uxaudit/internal/model"
)

// Wait tuning for network idle and DOM stability.
const (
	requestIdleWindow = 500 * time.Millisecond
	domStableWindow   = 300 * time.Millisecond
	domStableDiff     = 0.1
)

// RodOptions configures the go-rod engine.
type RodOptions struct {
	Options

	// Bin is the Chromium executable. Empty lets the launcher find or
	// download one.
	Bin string

	// NoSandbox disables the Chromium sandbox (needed as root in containers).
	NoSandbox bool

	// Stealth injects the go-rod/stealth evasions into every document.
	Stealth bool

	// Logger receives engine diagnostics.
	Logger *slog.Logger
}

// RodBrowser is a headless Chromium driven over the DevTools protocol.
type RodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     RodOptions
	logger   *slog.Logger
}

// LaunchRod starts a headless Chromium and connects to it.
func LaunchRod(opts RodOptions) (*RodBrowser, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(opts.NoSandbox)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, NewError(CodeLaunch, "failed to launch browser", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, NewError(CodeLaunch, "failed to connect to browser", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("browser launched", "controlURL", controlURL)

	return &RodBrowser{
		browser:  b,
		launcher: l,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Name returns "rod".
func (b *RodBrowser) Name() string {
	return "rod"
}

// NewTab opens a page in a new incognito context so that cookies and
// storage do not leak between viewport passes.
func (b *RodBrowser) NewTab(ctx context.Context, vp model.Viewport) (Tab, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, categorizeError(err, CodeLaunch, "failed to create browser context")
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, categorizeError(err, CodeLaunch, "failed to open page")
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	t := &rodTab{
		context: incognito,
		page:    page,
		opts:    b.opts.Options,
		cancel:  cancel,
		logger:  b.logger,
	}

	if b.opts.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			b.logger.Debug("stealth injection failed", "error", err)
		}
	}
	cookies, err := b.opts.siteCookies()
	if err != nil {
		b.logger.Warn("ignoring malformed cookie", "error", err)
	}
	if len(cookies) > 0 {
		if err := page.SetCookies(cookies); err != nil {
			b.logger.Warn("failed to set site cookie", "error", err)
		}
	}
	if err := t.scopeHeaders(); err != nil {
		b.logger.Warn("failed to install site headers", "error", err)
	}
	if err := t.SetViewport(ctx, vp); err != nil {
		_ = t.Close()
		return nil, err
	}

	wait := page.Context(watchCtx).EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			t.record(model.ConsoleMessage{Type: string(e.Type), Text: consoleText(e.Args)})
		},
		func(e *proto.RuntimeExceptionThrown) {
			t.record(model.ConsoleMessage{Type: "error", Text: exceptionText(e.ExceptionDetails)})
		},
	)
	go wait()

	return t, nil
}

// Close closes the browser and removes its profile directory.
func (b *RodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

type rodTab struct {
	context *rod.Browser
	page    *rod.Page
	opts    Options
	router  *rod.HijackRouter
	cancel  context.CancelFunc
	logger  *slog.Logger

	mu      sync.Mutex
	console []model.ConsoleMessage
}

func (t *rodTab) record(m model.ConsoleMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.console = append(t.console, m)
}

func (t *rodTab) Navigate(ctx context.Context, rawURL string, until WaitUntil) (Response, error) {
	t.mu.Lock()
	t.console = nil
	t.mu.Unlock()

	p := t.page.Context(ctx)
	start := time.Now()

	// The idle listener must exist before the navigation starts.
	var waitIdle func()
	if until == WaitNetworkIdle {
		waitIdle = p.WaitRequestIdle(requestIdleWindow, nil, nil, nil)
	}

	if err := p.Navigate(rawURL); err != nil {
		return Response{}, categorizeError(err, CodeNavigation, "navigation to "+rawURL+" failed")
	}

	switch until {
	case WaitLoad:
		if err := p.WaitLoad(); err != nil {
			return Response{}, categorizeError(err, CodeNavigation, "waiting for load event failed")
		}
	default:
		waitIdle()
	}
	if err := ctx.Err(); err != nil {
		return Response{}, categorizeError(err, CodeTimeout, "timed out loading "+rawURL)
	}
	elapsed := time.Since(start)

	resp := Response{URL: rawURL, LoadTime: elapsed}
	if res, err := p.Eval(navigationStatusJS); err == nil {
		resp.Status = res.Value.Int()
	}
	if u := evalStringOrEmpty(p, `() => window.location.href`); u != "" {
		resp.URL = u
	}
	return resp, nil
}

func (t *rodTab) URL() string {
	info, err := t.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (t *rodTab) HTML(ctx context.Context) (string, error) {
	html, err := t.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, CodeScript, "failed to extract page HTML")
	}
	return html, nil
}

func (t *rodTab) Images(ctx context.Context) ([]model.Image, error) {
	res, err := t.page.Context(ctx).Eval(imagesJS)
	if err != nil {
		return nil, categorizeError(err, CodeScript, "failed to read images")
	}
	images := make([]model.Image, 0)
	if err := res.Value.Unmarshal(&images); err != nil {
		return nil, NewError(CodeScript, "failed to decode images", err)
	}
	return images, nil
}

func (t *rodTab) Screenshot(ctx context.Context, path string) error {
	data, err := t.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return categorizeError(err, CodeScreenshot, "failed to capture screenshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return NewError(CodeScreenshot, "failed to create screenshot directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return NewError(CodeScreenshot, "failed to write screenshot", err)
	}
	return nil
}

func (t *rodTab) Console() []model.ConsoleMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ConsoleMessage, len(t.console))
	copy(out, t.console)
	return out
}

func (t *rodTab) CardCandidates(ctx context.Context, selector string, minSize float64) ([]model.CardCandidate, error) {
	res, err := t.page.Context(ctx).Eval(cardCandidatesJS, selector, minSize)
	if err != nil {
		return nil, categorizeError(err, CodeScript, "failed to query card candidates")
	}
	cards := make([]model.CardCandidate, 0)
	if err := res.Value.Unmarshal(&cards); err != nil {
		return nil, NewError(CodeScript, "failed to decode card candidates", err)
	}
	for i := range cards {
		cards[i].Index = i
		cards[i].Text = model.Truncate(cards[i].Text, model.MaxCardTextLen)
	}
	return cards, nil
}

func (t *rodTab) ClickCandidate(ctx context.Context, selector string, minSize float64, index int) error {
	p := t.page.Context(ctx)

	visible, err := p.ElementsByJS(rod.Eval(cardElementsJS, selector, minSize))
	if err != nil {
		return categorizeError(err, CodeNotFound, "failed to query "+selector)
	}
	if index < 0 || index >= len(visible) {
		return NewError(CodeNotFound, fmt.Sprintf("card candidate %d not found", index), nil)
	}

	waitIdle := p.WaitRequestIdle(requestIdleWindow, nil, nil, nil)
	if err := visible[index].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return categorizeError(err, CodeScript, "click failed")
	}
	waitIdle()
	if err := p.WaitDOMStable(domStableWindow, domStableDiff); err != nil {
		t.logger.Debug("DOM did not settle after click", "error", err)
	}
	return nil
}

func (t *rodTab) Fill(ctx context.Context, selector, value string) error {
	p := t.page.Context(ctx)
	has, el, err := p.Has(selector)
	if err != nil {
		return categorizeError(err, CodeScript, "failed to query "+selector)
	}
	if !has {
		return NewError(CodeNotFound, "no element matches "+selector, nil)
	}
	if err := el.SelectAllText(); err != nil {
		return categorizeError(err, CodeScript, "failed to focus "+selector)
	}
	if err := el.Input(value); err != nil {
		return categorizeError(err, CodeScript, "failed to type into "+selector)
	}
	return nil
}

func (t *rodTab) SetViewport(ctx context.Context, vp model.Viewport) error {
	p := t.page.Context(ctx)
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
		Mobile:            vp.Mobile,
	}); err != nil {
		return categorizeError(err, CodeScript, "failed to set viewport "+vp.Name)
	}
	if err := (proto.EmulationSetTouchEmulationEnabled{Enabled: vp.Mobile}).Call(p); err != nil {
		t.logger.Debug("failed to toggle touch emulation", "error", err)
	}
	if ua := t.opts.userAgent(vp); ua != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			return categorizeError(err, CodeScript, "failed to set user agent")
		}
	}
	return nil
}

func (t *rodTab) Close() error {
	t.cancel()
	if t.router != nil {
		if err := t.router.Stop(); err != nil {
			t.logger.Debug("failed to stop request router", "error", err)
		}
	}
	// Closing an incognito browser disposes only its context.
	if err := t.context.Close(); err != nil {
		return fmt.Errorf("close browser context: %w", err)
	}
	return nil
}

const navigationStatusJS = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch(e) {}
	return 0;
}`

const imagesJS = `() => Array.from(document.querySelectorAll("img")).map((img) => ({
	src: img.src,
	alt: img.getAttribute("alt") || "",
	has_alt: img.hasAttribute("alt"),
	natural_width: img.naturalWidth,
	natural_height: img.naturalHeight,
	complete: img.complete,
}))`

// cardElementsJS returns the elements matching selector whose bounding box
// exceeds minSize in both dimensions. CardCandidates and ClickCandidate
// share it so that candidate i is the element clicked for index i.
const cardElementsJS = `(selector, minSize) => Array.from(document.querySelectorAll(selector))
	.filter((el) => {
		const r = el.getBoundingClientRect();
		return r.width > minSize && r.height > minSize;
	})`

const cardCandidatesJS = `(selector, minSize) => (` + cardElementsJS + `)(selector, minSize)
	.map((el) => {
		const r = el.getBoundingClientRect();
		return {
			tag: el.tagName,
			class: typeof el.className === "string" ? el.className : "",
			text: (el.textContent || "").trim(),
			width: r.width,
			height: r.height,
		};
	})`

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// siteCookies turns the Cookie option into host-only cookies of the site,
// so the browser sends them to the site host and nowhere else.
func (o Options) siteCookies() ([]*proto.NetworkCookieParam, error) {
	if o.Cookie == "" || o.Site == "" {
		return nil, nil
	}
	parsed, err := http.ParseCookie(o.Cookie)
	if err != nil {
		return nil, err
	}
	params := make([]*proto.NetworkCookieParam, 0, len(parsed))
	for _, c := range parsed {
		params = append(params, &proto.NetworkCookieParam{
			Name:  c.Name,
			Value: c.Value,
			URL:   o.Site,
			Path:  "/",
		})
	}
	return params, nil
}

// scopeHeaders adds the profile headers to the requests for the site host.
// Requests to other hosts continue unchanged.
func (t *rodTab) scopeHeaders() error {
	if len(t.opts.Headers) == 0 {
		return nil
	}
	router := t.page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if !t.opts.owns(h.Request.URL()) {
			h.ContinueRequest(&proto.FetchContinueRequest{})
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{
			Headers: withHeaders(h.Request.Headers(), t.opts.Headers),
		})
	})
	if err != nil {
		return err
	}
	go router.Run()
	t.router = router
	return nil
}

// withHeaders returns the request headers with extra set on top, replacing
// same-named headers regardless of case.
func withHeaders(headers proto.NetworkHeaders, extra map[string]string) []*proto.FetchHeaderEntry {
	entries := make([]*proto.FetchHeaderEntry, 0, len(headers)+len(extra))
	for name, value := range headers {
		if _, overridden := lookupFold(extra, name); overridden {
			continue
		}
		entries = append(entries, &proto.FetchHeaderEntry{Name: name, Value: value.Str()})
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entries = append(entries, &proto.FetchHeaderEntry{Name: name, Value: extra[name]})
	}
	return entries
}

func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func consoleText(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case !arg.Value.Nil():
			parts = append(parts, arg.Value.Str())
		case arg.Description != "":
			parts = append(parts, arg.Description)
		default:
			parts = append(parts, string(arg.Type))
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(d *proto.RuntimeExceptionDetails) string {
	if d == nil {
		return ""
	}
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}
