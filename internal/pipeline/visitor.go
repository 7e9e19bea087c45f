package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nao1215/uxaudit/internal/browser"
	"github.com/nao1215/uxaudit/internal/config"
	"github.com/nao1215/uxaudit/internal/inspect"
	"github.com/nao1215/uxaudit/internal/model"
)

// Visitor navigates a tab to one page and records what it sees.
type Visitor struct {
	timeout       time.Duration
	screenshotDir string
	logger        *slog.Logger
}

// VisitorOption configures a Visitor.
type VisitorOption func(*Visitor)

// WithVisitTimeout bounds each navigation, including the wait for network
// idle, and the extraction that follows.
func WithVisitTimeout(d time.Duration) VisitorOption {
	return func(v *Visitor) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithVisitLogger sets a custom logger for the visitor.
func WithVisitLogger(logger *slog.Logger) VisitorOption {
	return func(v *Visitor) {
		v.logger = logger
	}
}

// NewVisitor creates a visitor writing screenshots to screenshotDir.
func NewVisitor(screenshotDir string, opts ...VisitorOption) *Visitor {
	v := &Visitor{
		timeout:       config.DefaultTimeout,
		screenshotDir: screenshotDir,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Visit is the outcome of one page visit.
type Visit struct {
	// Record is always set; Record.Error tells whether navigation failed.
	Record model.PageVisit

	// Audit is the detailed record, nil unless detailed data was requested
	// and navigation succeeded.
	Audit *model.PageAudit

	// Links are the anchors of the page, empty unless Audit is set.
	Links []model.Link
}

// Visit navigates tab to pageURL at viewport vp. A navigation failure is
// recorded on the returned visit and never returned as an error.
func (v *Visitor) Visit(ctx context.Context, tab browser.Tab, vp model.Viewport, label, pageURL string, detailed bool) Visit {
	record := model.PageVisit{
		Key:      model.VisitKey(label, vp.Name),
		Label:    label,
		Viewport: vp.Name,
		URL:      pageURL,
	}

	navCtx, cancel := context.WithTimeout(ctx, v.timeout)
	resp, err := tab.Navigate(navCtx, pageURL, browser.WaitNetworkIdle)
	cancel()
	if err != nil {
		v.logger.Warn("page visit failed", "label", label, "viewport", vp.Name, "url", pageURL, "error", err)
		record.Error = err.Error()
		return Visit{Record: record}
	}

	record.Status = resp.Status
	record.LoadTime = resp.Seconds()
	record.Screenshot = v.Screenshot(ctx, tab, inspect.SafeLabel(label)+"_"+vp.Name+".png")

	v.logger.Info("page visited",
		"label", label,
		"viewport", vp.Name,
		"status", resp.Status,
		"load_time", record.LoadTime,
	)

	if !detailed {
		return Visit{Record: record}
	}

	audit, links := v.inspect(ctx, tab, label, pageURL, resp, record.LoadTime)
	return Visit{Record: record, Audit: audit, Links: links}
}

func (v *Visitor) inspect(ctx context.Context, tab browser.Tab, label, pageURL string, resp browser.Response, loadTime float64) (*model.PageAudit, []model.Link) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	audit := &model.PageAudit{
		Label:    label,
		URL:      pageURL,
		Console:  consoleProblems(tab.Console()),
		LoadTime: loadTime,
		Accessibility: model.Accessibility{
			MissingAlt:   make([]model.Image, 0),
			BrokenImages: make([]model.Image, 0),
			FormIssues:   make([]model.FormControl, 0),
			Headings:     make([]model.Heading, 0),
		},
	}

	html, err := tab.HTML(ctx)
	if err != nil {
		v.logger.Warn("failed to read page HTML", "label", label, "error", err)
		return audit, nil
	}
	doc, err := inspect.ParseString(resp.URL, html)
	if err != nil {
		v.logger.Warn("failed to parse page HTML", "label", label, "error", err)
		return audit, nil
	}

	audit.SEO = doc.SEO()
	audit.Accessibility.MissingAlt = doc.MissingAlt()
	audit.Accessibility.FormIssues = doc.FormIssues()
	audit.Accessibility.Headings = doc.Headings()

	images, err := tab.Images(ctx)
	if err != nil {
		v.logger.Warn("failed to read image state", "label", label, "error", err)
	}
	for _, img := range images {
		if img.Broken() {
			audit.Accessibility.BrokenImages = append(audit.Accessibility.BrokenImages, img)
		}
	}

	return audit, doc.Links()
}

// Screenshot captures the current page to name inside the screenshot
// directory and returns the written path. It returns "" when the engine
// cannot take screenshots or the capture failed.
func (v *Visitor) Screenshot(ctx context.Context, tab browser.Tab, name string) string {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	path := filepath.Join(v.screenshotDir, name)
	if err := tab.Screenshot(ctx, path); err != nil {
		if browser.IsCode(err, browser.CodeUnsupported) {
			v.logger.Debug("screenshot skipped", "file", name, "error", err)
		} else {
			v.logger.Warn("screenshot failed", "file", name, "error", err)
		}
		return ""
	}
	return path
}

// navigate loads pageURL within the visit timeout.
func (v *Visitor) navigate(ctx context.Context, tab browser.Tab, pageURL string) (browser.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return tab.Navigate(ctx, pageURL, browser.WaitNetworkIdle)
}

func consoleProblems(messages []model.ConsoleMessage) []model.ConsoleMessage {
	problems := make([]model.ConsoleMessage, 0)
	for _, m := range messages {
		if m.IsProblem() {
			problems = append(problems, m)
		}
	}
	return problems
}
