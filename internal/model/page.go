package model

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Text length limits applied when records are extracted from the DOM.
const (
	// MaxLinkTextLen is the maximum length of an anchor's visible text.
	MaxLinkTextLen = 50

	// MaxHeadingTextLen is the maximum length of a heading's text.
	MaxHeadingTextLen = 80

	// MaxCardTextLen is the maximum length of a card candidate's text.
	MaxCardTextLen = 100

	// MaxCardInteractionTextLen is the text length kept on a card interaction.
	MaxCardInteractionTextLen = 50
)

// Viewport describes the browser window used for a viewport pass.
type Viewport struct {
	// Name identifies the pass ("desktop", "mobile") and is used in
	// record keys and screenshot file names.
	Name string `json:"name" yaml:"name"`

	// Width is the window width in CSS pixels.
	Width int `json:"width" yaml:"width"`

	// Height is the window height in CSS pixels.
	Height int `json:"height" yaml:"height"`

	// Mobile enables touch and mobile device emulation.
	Mobile bool `json:"mobile,omitempty" yaml:"mobile,omitempty"`

	// UserAgent overrides the browser User-Agent when non-empty.
	UserAgent string `json:"user_agent,omitempty" yaml:"userAgent,omitempty"`
}

// DesktopViewport is the window used for the detailed (first) pass.
var DesktopViewport = Viewport{
	Name:   "desktop",
	Width:  1440,
	Height: 900,
}

// MobileViewport is the window used for the second pass.
var MobileViewport = Viewport{
	Name:      "mobile",
	Width:     375,
	Height:    812,
	Mobile:    true,
	UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15",
}

// PageVisit is the record of one navigation at one viewport.
type PageVisit struct {
	// Key is "<label>_<viewport>" and is unique within a run.
	Key string `json:"key"`

	// Label is the logical page name ("homepage", "auth", "page_pricing").
	Label string `json:"label"`

	// Viewport is the name of the viewport pass.
	Viewport string `json:"viewport"`

	// URL is the address that was requested.
	URL string `json:"url"`

	// Status is the HTTP status of the main document. 0 means the
	// browser did not report a response.
	Status int `json:"status,omitempty"`

	// LoadTime is the navigation time in seconds, rounded to 2 decimals.
	LoadTime float64 `json:"load_time,omitempty"`

	// Screenshot is the path of the full-page screenshot, if one was taken.
	Screenshot string `json:"screenshot,omitempty"`

	// Error is set when navigation failed. The other measurements are
	// then empty.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the navigation failed.
func (v PageVisit) Failed() bool {
	return v.Error != ""
}

// StatusText returns the status code as text, or "no response".
func (v PageVisit) StatusText() string {
	if v.Status == 0 {
		return "no response"
	}
	return strconv.Itoa(v.Status)
}

// VisitKey builds the record key for a label at a viewport.
func VisitKey(label, viewport string) string {
	return label + "_" + viewport
}

// SEO holds the search-engine related metadata of a page.
type SEO struct {
	Title           string `json:"title"`
	MetaDescription string `json:"meta_description"`
	OGImage         string `json:"og_image"`
	OGTitle         string `json:"og_title"`
	Canonical       string `json:"canonical"`
}

// Image is an <img> element as observed on the page.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt,omitempty"`
	HasAlt bool   `json:"has_alt"`

	// NaturalWidth and NaturalHeight are the decoded image dimensions.
	// They stay 0 when the image failed to load or was not inspected
	// by a rendering engine.
	NaturalWidth  int `json:"natural_width,omitempty"`
	NaturalHeight int `json:"natural_height,omitempty"`

	// Complete mirrors HTMLImageElement.complete.
	Complete bool `json:"complete,omitempty"`
}

// Broken reports whether the image finished loading without content.
func (i Image) Broken() bool {
	return i.Complete && i.NaturalWidth == 0
}

// FormControl is an input, select or textarea element.
type FormControl struct {
	Tag  string `json:"tag"`
	Type string `json:"type,omitempty"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Heading is one entry of the h1-h6 outline.
type Heading struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// Level returns the heading level (1-6), or 1 for malformed tags.
func (h Heading) Level() int {
	tag := strings.ToLower(h.Tag)
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 1
}

// Accessibility is the set of accessibility findings of a single page.
type Accessibility struct {
	// MissingAlt lists images without an alt attribute.
	MissingAlt []Image `json:"missing_alt"`

	// BrokenImages lists images that failed to load.
	BrokenImages []Image `json:"broken_images"`

	// FormIssues lists form controls without a label, aria-label or placeholder.
	FormIssues []FormControl `json:"form_issues"`

	// Headings is the heading outline in document order.
	Headings []Heading `json:"headings"`
}

// ConsoleMessage is a browser console entry.
type ConsoleMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// IsProblem reports whether the message is an error or a warning.
func (m ConsoleMessage) IsProblem() bool {
	switch m.Type {
	case "error", "warning", "warn", "assert":
		return true
	default:
		return false
	}
}

// PageAudit holds everything collected from a page during the desktop pass.
type PageAudit struct {
	Label         string           `json:"label"`
	URL           string           `json:"url"`
	SEO           SEO              `json:"seo"`
	Accessibility Accessibility    `json:"accessibility"`
	Console       []ConsoleMessage `json:"console_errors"`
	LoadTime      float64          `json:"load_time_s"`
}

// Link is an anchor discovered on a page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// BrokenLink is a link that answered with status >= 400 or did not answer.
type BrokenLink struct {
	URL    string `json:"url"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
	Text   string `json:"text"`
}

// StatusText returns the numeric status, or "timeout/error" when the
// request itself failed.
func (b BrokenLink) StatusText() string {
	if b.Status == 0 {
		return "timeout/error"
	}
	return strconv.Itoa(b.Status)
}

// CardCandidate is a DOM element matched by the interactive-element heuristic.
type CardCandidate struct {
	Index  int     `json:"index"`
	Tag    string  `json:"tag"`
	Class  string  `json:"class,omitempty"`
	Text   string  `json:"text"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// CardInteraction is the outcome of clicking a card candidate.
type CardInteraction struct {
	Index      int    `json:"card_index"`
	Text       string `json:"card_text,omitempty"`
	ResultURL  string `json:"resulted_url,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AuthInput is an input element found on the auth page.
type AuthInput struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Visible     bool   `json:"visible"`
}

// AuthButton is a button-like element found on the auth page.
type AuthButton struct {
	Tag   string `json:"tag"`
	Text  string `json:"text"`
	Class string `json:"class,omitempty"`
	Type  string `json:"type,omitempty"`
}

// FillResult is the outcome of typing into one auth field.
type FillResult struct {
	Field  string `json:"field"`
	Result string `json:"result"`
}

// FillSucceeded is the result text of a fill call that did not fail.
const FillSucceeded = "filled successfully"

// Succeeded reports whether the fill call did not fail.
func (f FillResult) Succeeded() bool {
	return f.Result == FillSucceeded
}

// AuthProbe is the record of the auth-page probe. The form is never
// submitted, so a successful fill says nothing about authentication.
type AuthProbe struct {
	URL         string       `json:"url"`
	Inputs      []AuthInput  `json:"inputs"`
	Buttons     []AuthButton `json:"buttons"`
	Fills       []FillResult `json:"fill_results"`
	Screenshots []string     `json:"screenshots,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Truncate shortens s to at most n runes. It never splits a rune and
// adds no ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
