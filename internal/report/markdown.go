package report

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/uxaudit/internal/model"
)

// missing is printed in place of an absent SEO value.
const missing = "⚠️ MISSING"

// Display limits of the Markdown report, in runes.
const (
	maxListedImages   = 5
	maxImageSrcLen    = 80
	maxListedConsole  = 10
	maxConsoleTextLen = 120
	maxLinkURLLen     = 80
	maxCardErrorLen   = 80
	maxHeadingTextLen = 60
)

// unknownMeasurement fills the performance columns of a failed visit.
const unknownMeasurement = "?"

// MarkdownWriter outputs the audit report in Markdown format.
// Sections come in a fixed order: performance, SEO, accessibility, console
// errors, broken links, card interactions, auth page, screenshots and
// recommendations.
type MarkdownWriter struct {
	baseWriter

	// screenshotDir is shown in the screenshot index when set.
	screenshotDir string

	// perfViewport selects the visits listed in the performance table.
	perfViewport string
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithScreenshotDir names the directory screenshots were saved to.
func WithScreenshotDir(dir string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.screenshotDir = dir
	}
}

// WithPerformanceViewport selects the viewport whose visits fill the
// performance table. It defaults to "desktop".
func WithPerformanceViewport(name string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if name != "" {
			w.perfViewport = name
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter:   newBaseWriter(output),
		perfViewport: model.DesktopViewport.Name,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the full report in Markdown format.
// Recommendations are computed when the report was not finalized yet.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	if report.Recommendations == nil {
		report.Finalize()
	}

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writePerformance(md, report)
	w.writeSEO(md, report)
	w.writeAccessibility(md, report)
	w.writeConsole(md, report)
	w.writeBrokenLinks(md, report)
	w.writeCards(md, report)
	w.writeAuth(md, report)
	w.writeScreenshots(md, report)
	w.writeRecommendations(md, report)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1f("%s UX Audit Report", siteName(report.Site))
	md.PlainText("")
	md.PlainTextf("%s %s", markdown.Bold("Date:"), report.DateAudited.UTC().Format("2006-01-02 15:04 UTC"))
	md.PlainTextf("%s %s", markdown.Bold("Audited URL:"), report.Site)
	md.PlainText("")

	if report.TimedOut {
		md.Warningf("The audit was interrupted before all steps ran (%s). Results are partial.", report.Error)
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.H2("📊 Summary")
	md.PlainText("")
}

func (w *MarkdownWriter) writePerformance(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("⚡ Performance")
	md.PlainText("")

	rows := make([][]string, 0)
	for _, v := range report.VisitsFor(w.perfViewport) {
		loadTime, status := unknownMeasurement, unknownMeasurement
		if !v.Failed() {
			loadTime = strconv.FormatFloat(v.LoadTime, 'f', -1, 64)
			status = v.StatusText()
		}
		rows = append(rows, []string{v.Key, loadTime, status})
	}

	if len(rows) == 0 {
		md.PlainText("No pages were visited.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Page", "Load Time (s)", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSEO(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("🔍 SEO")
	md.PlainText("")

	for _, p := range report.Pages {
		md.H4(p.Label)
		md.PlainText("")
		md.BulletList(
			markdown.Bold("Title:")+" "+orMissing(p.SEO.Title),
			markdown.Bold("Meta Description:")+" "+orMissing(p.SEO.MetaDescription),
			markdown.Bold("OG Image:")+" "+orMissing(p.SEO.OGImage),
			markdown.Bold("OG Title:")+" "+orMissing(p.SEO.OGTitle),
			markdown.Bold("Canonical:")+" "+orMissing(p.SEO.Canonical),
		)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeAccessibility(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("♿ Accessibility")
	md.PlainText("")

	for _, p := range report.Pages {
		a11y := p.Accessibility

		md.H4(p.Label)
		md.PlainText("")

		if n := len(a11y.MissingAlt); n > 0 {
			md.PlainTextf("- ⚠️ %s", markdown.Bold(fmt.Sprintf("%d images missing alt text", n)))
			writeImageSources(md, a11y.MissingAlt)
		} else {
			md.PlainText("- ✅ All images have alt text")
		}

		if n := len(a11y.BrokenImages); n > 0 {
			md.PlainTextf("- ❌ %s", markdown.Bold(fmt.Sprintf("%d broken images", n)))
			writeImageSources(md, a11y.BrokenImages)
		} else {
			md.PlainText("- ✅ No broken images detected")
		}

		if n := len(a11y.FormIssues); n > 0 {
			md.PlainTextf("- ⚠️ %s", markdown.Bold(fmt.Sprintf("%d form inputs without labels", n)))
			for _, fi := range a11y.FormIssues {
				md.PlainTextf("  - %s", markdown.Code(fmt.Sprintf("<%s type=\"%s\">", strings.ToLower(fi.Tag), fi.Type)))
			}
		} else {
			md.PlainText("- ✅ Form inputs have labels/placeholders")
		}

		if len(a11y.Headings) > 0 {
			md.PlainTextf("- %s", markdown.Bold("Heading structure:"))
			for _, h := range a11y.Headings {
				indent := strings.Repeat("  ", h.Level()-1)
				md.PlainTextf("  %s%s: %s", indent, h.Tag, model.Truncate(h.Text, maxHeadingTextLen))
			}
		}
		md.PlainText("")
	}
}

func writeImageSources(md *markdown.Markdown, images []model.Image) {
	for i, img := range images {
		if i == maxListedImages {
			break
		}
		md.PlainTextf("  - %s", markdown.Code(model.Truncate(img.Src, maxImageSrcLen)))
	}
}

func (w *MarkdownWriter) writeConsole(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("🐛 Console Errors")
	md.PlainText("")

	if !report.HasConsoleProblems() {
		md.PlainText("✅ No console errors detected")
		md.PlainText("")
		return
	}

	for _, p := range report.Pages {
		if len(p.Console) == 0 {
			continue
		}
		md.H4(p.Label)
		md.PlainText("")
		for i, m := range p.Console {
			if i == maxListedConsole {
				break
			}
			md.PlainTextf("- [%s] %s", m.Type, markdown.Code(model.Truncate(m.Text, maxConsoleTextLen)))
		}
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeBrokenLinks(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("🔗 Broken Links")
	md.PlainText("")

	if len(report.BrokenLinks) == 0 {
		md.PlainText("✅ No broken links detected")
		md.PlainText("")
		return
	}

	for _, bl := range report.BrokenLinks {
		md.PlainTextf("- ❌ [%s] %s (text: \"%s\")",
			bl.StatusText(), markdown.Code(model.Truncate(bl.URL, maxLinkURLLen)), bl.Text)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeCards(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("🎴 Card Interactions")
	md.PlainText("")

	if n := len(report.CardsFound); n > 0 {
		md.PlainTextf("Found %s clickable card-like elements", markdown.Bold(strconv.Itoa(n)))
		md.PlainText("")
	}

	for _, c := range report.CardInteractions {
		if c.Error != "" {
			md.PlainTextf("- Card %d: ❌ Error — %s", c.Index, model.Truncate(c.Error, maxCardErrorLen))
			continue
		}
		md.PlainTextf("- Card %d (\"%s\"): → %s", c.Index, c.Text, markdown.Code(c.ResultURL))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeAuth(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("🔐 Auth Page Test")
	md.PlainText("")

	auth := report.AuthProbe
	if auth == nil {
		md.PlainText("The auth page was not probed.")
		md.PlainText("")
		return
	}

	md.PlainTextf("%s %s", markdown.Bold("URL:"), auth.URL)
	md.PlainText("")

	if auth.Error != "" {
		md.PlainTextf("❌ The auth page could not be loaded: %s", auth.Error)
		md.PlainText("")
		return
	}

	md.PlainTextf("%s %d", markdown.Bold("Inputs found:"), len(auth.Inputs))
	for _, in := range auth.Inputs {
		hidden := ""
		if !in.Visible {
			hidden = " (hidden)"
		}
		md.PlainTextf("- %s%s",
			markdown.Code(fmt.Sprintf("<input type=\"%s\" name=\"%s\" placeholder=\"%s\">", in.Type, in.Name, in.Placeholder)), hidden)
	}
	md.PlainText("")

	md.PlainTextf("%s %d", markdown.Bold("Buttons found:"), len(auth.Buttons))
	for _, b := range auth.Buttons {
		md.PlainTextf("- %s \"%s\"", markdown.Code("<"+strings.ToLower(b.Tag)+">"), b.Text)
	}
	md.PlainText("")

	md.PlainText(markdown.Bold("Form fill test:"))
	for _, f := range auth.Fills {
		mark := "❌"
		if f.Succeeded() {
			mark = "✅"
		}
		md.PlainTextf("- %s %s: %s", mark, f.Field, f.Result)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeScreenshots(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("📸 Screenshots")
	md.PlainText("")

	if w.screenshotDir != "" {
		md.PlainTextf("All screenshots saved to %s", markdown.Code(w.screenshotDir))
		md.PlainText("")
	}

	shots := report.Screenshots()
	if len(shots) == 0 {
		md.PlainText("No screenshots were taken.")
		md.PlainText("")
		return
	}
	for _, s := range shots {
		md.PlainTextf("- %s — %s", markdown.Code(s.File), s.Subject)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, report *model.AuditReport) {
	md.HorizontalRule()
	md.PlainText("")
	md.H2("🎯 Recommendations")
	md.PlainText("")

	if len(report.Recommendations) == 0 {
		md.PlainText("No critical issues found! 🎉")
		return
	}

	for i, rec := range report.Recommendations {
		md.PlainTextf("%d. %s", i+1, rec.Format(markdown.Bold))
	}
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

// siteName returns the host of site, or site itself when it does not parse.
func siteName(site string) string {
	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return site
	}
	return u.Host
}
