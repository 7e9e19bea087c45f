package smoke

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/uxaudit/internal/browser"
	"github.com/nao1215/uxaudit/internal/config"
	"github.com/nao1215/uxaudit/internal/inspect"
	"github.com/nao1215/uxaudit/internal/model"
)

// Screenshot file names written by the runner.
const (
	HomepageScreenshot = "01-homepage.png"
	MobileScreenshot   = "mobile-homepage.png"
)

// MaxConsoleLines is the number of console problems listed by the console check.
const MaxConsoleLines = 20

// firstPageIndex is the screenshot index after which internal pages are numbered.
// The homepage screenshot takes index 01.
const firstPageIndex = 2

// elementCounts are the selectors counted by the key UI elements check.
var elementCounts = []struct {
	selector string
	name     string
}{
	{"nav", "Navigation"},
	{"button", "Buttons"},
	{"a[href]", "Links"},
	{"img", "Images"},
	{"h1", "H1 heading"},
	{"h2", "H2 headings"},
}

// DefaultAuthTexts are the texts looked for by the auth elements check.
var DefaultAuthTexts = []string{"Sign In", "Sign Up", "Login", "Register", "Get Started", "Create"}

// Runner drives the smoke test of one site.
type Runner struct {
	browser       browser.Browser
	site          string
	screenshotDir string
	homeTimeout   time.Duration
	pageTimeout   time.Duration
	desktop       model.Viewport
	mobile        model.Viewport
	authTexts     []string
	output        io.Writer
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithHomeTimeout bounds the first homepage load.
func WithHomeTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.homeTimeout = d
		}
	}
}

// WithPageTimeout bounds every navigation after the first homepage load.
func WithPageTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.pageTimeout = d
		}
	}
}

// WithViewports sets the desktop and mobile windows.
func WithViewports(desktop, mobile model.Viewport) Option {
	return func(r *Runner) {
		r.desktop = desktop
		r.mobile = mobile
	}
}

// WithAuthTexts replaces the texts counted by the auth elements check.
func WithAuthTexts(texts ...string) Option {
	return func(r *Runner) {
		r.authTexts = texts
	}
}

// WithOutput echoes every transcript line to w as it is written,
// prefixed with its time of day.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.output = w
	}
}

// WithClock replaces the clock used to stamp transcript lines.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner testing site with b. Screenshots are written
// to screenshotDir.
func NewRunner(b browser.Browser, site, screenshotDir string, opts ...Option) *Runner {
	r := &Runner{
		browser:       b,
		site:          strings.TrimRight(site, "/"),
		screenshotDir: screenshotDir,
		homeTimeout:   config.DefaultTimeout,
		pageTimeout:   config.DefaultSmokeTimeout,
		desktop:       model.DesktopViewport,
		mobile:        model.MobileViewport,
		authTexts:     DefaultAuthTexts,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// check is one numbered section of the smoke test.
type check struct {
	title string
	run   func(context.Context)
}

// Run executes the checks in order and returns the transcript.
// A failing check is logged in the transcript and the run continues.
// An error is returned when no tab could be opened, or together with the
// partial transcript when ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (*model.Transcript, error) {
	tab, err := r.browser.NewTab(ctx, r.desktop)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	defer func() {
		if cerr := tab.Close(); cerr != nil {
			r.logger.Debug("failed to close tab", "error", cerr)
		}
	}()

	s := &session{
		Runner:     r,
		tab:        tab,
		transcript: model.NewTranscript(r.site).WithClock(r.now),
	}

	checks := []check{
		{"Homepage Load", s.homepage},
		{"Key UI Elements", s.uiElements},
		{"Navigation Links", s.navigationLinks},
		{"Navigate Internal Pages", s.internalPages},
		{"Auth Elements", s.authElements},
		{"Mobile Viewport", s.mobileViewport},
		{"Console Errors", s.consoleErrors},
		{"Performance", s.performance},
	}

	for i, c := range checks {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("smoke test interrupted", "check", c.title, "error", err)
			return s.transcript, err
		}
		r.logger.Debug("running smoke check", "number", i+1, "check", c.title)
		s.echo(s.transcript.Section(i+1, c.title))
		c.run(ctx)
	}

	return s.transcript, nil
}

// session holds the state shared by the checks of one run.
type session struct {
	*Runner
	tab        browser.Tab
	transcript *model.Transcript

	navLinks []model.Link
	console  []model.ConsoleMessage
	// collected tells whether the console of the current page was already
	// added to console.
	collected bool
}

func (s *session) log(text string) {
	s.echo(s.transcript.Log(text))
}

func (s *session) logf(format string, args ...any) {
	s.echo(s.transcript.Logf(format, args...))
}

func (s *session) echo(line model.TranscriptLine) {
	if s.output == nil {
		return
	}
	fmt.Fprintf(s.output, "[%s] %s\n", line.Time.Format("15:04:05"), line.Text)
}

// navigate loads pageURL within timeout. The console of the page being
// left is collected first. A failed navigation may still have run scripts,
// so its console is collected like that of any other page.
func (s *session) navigate(ctx context.Context, pageURL string, until browser.WaitUntil, timeout time.Duration) (browser.Response, error) {
	s.collectConsole()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := s.tab.Navigate(ctx, pageURL, until)
	s.collected = false
	return resp, err
}

func (s *session) collectConsole() {
	if s.collected {
		return
	}
	for _, m := range s.tab.Console() {
		if m.IsProblem() {
			s.console = append(s.console, m)
		}
	}
	s.collected = true
}

// document parses the page currently loaded in the tab. A page that cannot
// be read yields an empty document.
func (s *session) document(ctx context.Context) *inspect.Document {
	ctx, cancel := context.WithTimeout(ctx, s.pageTimeout)
	defer cancel()

	html, err := s.tab.HTML(ctx)
	if err != nil {
		s.logger.Debug("failed to read page HTML", "error", err)
		html = ""
	}
	doc, err := inspect.ParseString(s.tab.URL(), html)
	if err != nil {
		s.logger.Debug("failed to parse page HTML", "error", err)
		doc, _ = inspect.ParseString(s.site, "")
	}
	return doc
}

// screenshot captures the current page. It reports false without error
// when the engine cannot take screenshots.
func (s *session) screenshot(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.pageTimeout)
	defer cancel()

	err := s.tab.Screenshot(ctx, filepath.Join(s.screenshotDir, name))
	if browser.IsCode(err, browser.CodeUnsupported) {
		s.logger.Debug("screenshot skipped", "file", name, "error", err)
		return false, nil
	}
	return err == nil, err
}

func (s *session) homepage(ctx context.Context) {
	resp, err := s.navigate(ctx, s.site, browser.WaitNetworkIdle, s.homeTimeout)
	if err != nil {
		s.logf("FAIL: %v", err)
		return
	}
	s.logf("Status: %d", resp.Status)
	s.logf("Title: %s", s.document(ctx).Title())

	ok, err := s.screenshot(ctx, HomepageScreenshot)
	switch {
	case err != nil:
		s.logf("FAIL: %v", err)
	case ok:
		s.logf("Screenshot: %s ✅", HomepageScreenshot)
	default:
		s.logf("Screenshot: %s skipped", HomepageScreenshot)
	}
}

func (s *session) uiElements(ctx context.Context) {
	doc := s.document(ctx)
	for _, e := range elementCounts {
		s.logf("%s: %d found", e.name, doc.Count(e.selector))
	}
	s.navLinks = doc.NavLinks()
}

func (s *session) navigationLinks(_ context.Context) {
	for _, l := range s.navLinks {
		s.logf("Nav link: '%s' -> %s", l.Text, l.Href)
	}
}

func (s *session) internalPages(ctx context.Context) {
	host := ""
	if u, err := url.Parse(s.site); err == nil {
		host = u.Hostname()
	}

	idx := firstPageIndex
	for _, l := range s.navLinks {
		if ctx.Err() != nil {
			return
		}
		href := l.Href
		if href == "" || (strings.HasPrefix(href, "http") && !strings.Contains(href, host)) {
			continue
		}
		if strings.HasPrefix(href, "/") {
			href = s.site + href
		}

		idx++
		resp, err := s.navigate(ctx, href, browser.WaitNetworkIdle, s.pageTimeout)
		if err != nil {
			s.logf("FAIL navigating to %s: %v", href, err)
			continue
		}
		s.logf("Page '%s' (%s): status %d", l.Text, href, resp.Status)

		name := fmt.Sprintf("%02d-%s.png", idx, inspect.Slug(l.Text))
		if _, err := s.screenshot(ctx, name); err != nil {
			s.logf("FAIL navigating to %s: %v", href, err)
		}
	}
}

func (s *session) authElements(ctx context.Context) {
	if _, err := s.navigate(ctx, s.site, browser.WaitNetworkIdle, s.pageTimeout); err != nil {
		s.logf("FAIL: %v", err)
		return
	}
	doc := s.document(ctx)
	for _, text := range s.authTexts {
		if n := doc.CountText(text); n > 0 {
			s.logf("Found '%s' element(s): %d", text, n)
		}
	}
}

func (s *session) mobileViewport(ctx context.Context) {
	if err := s.tab.SetViewport(ctx, s.mobile); err != nil {
		s.logf("FAIL: %v", err)
		return
	}
	if _, err := s.navigate(ctx, s.site, browser.WaitNetworkIdle, s.pageTimeout); err != nil {
		s.logf("FAIL: %v", err)
		return
	}

	ok, err := s.screenshot(ctx, MobileScreenshot)
	switch {
	case err != nil:
		s.logf("FAIL: %v", err)
	case ok:
		s.logf("Mobile screenshot: %s ✅", MobileScreenshot)
	default:
		s.logf("Mobile screenshot: %s skipped", MobileScreenshot)
	}
}

func (s *session) consoleErrors(_ context.Context) {
	s.collectConsole()
	if len(s.console) == 0 {
		s.log("No console errors ✅")
		return
	}
	for i, m := range s.console {
		if i == MaxConsoleLines {
			break
		}
		s.logf("  %s: %s", m.Type, m.Text)
	}
}

func (s *session) performance(ctx context.Context) {
	if err := s.tab.SetViewport(ctx, s.desktop); err != nil {
		s.logf("FAIL: %v", err)
		return
	}
	resp, err := s.navigate(ctx, s.site, browser.WaitLoad, s.pageTimeout)
	if err != nil {
		s.logf("FAIL: %v", err)
		return
	}
	s.logf("Page load time: %.2fs", resp.LoadTime.Seconds())
}
