package browser

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/uxaudit/internal/model"
)

// WaitUntil selects the condition a navigation waits for.
type WaitUntil int

const (
	// WaitNetworkIdle waits until no request has been in flight for a short
	// quiet period.
	WaitNetworkIdle WaitUntil = iota

	// WaitLoad waits for the window load event.
	WaitLoad
)

// Response describes the outcome of a navigation.
type Response struct {
	// Status is the HTTP status of the main document, 0 when unknown.
	Status int

	// URL is the address after redirects.
	URL string

	// LoadTime is the time from the navigation request until the wait
	// condition was met.
	LoadTime time.Duration
}

// Seconds returns the load time in seconds rounded to 2 decimals.
func (r Response) Seconds() float64 {
	return math.Round(r.LoadTime.Seconds()*100) / 100
}

// Tab is a single browser tab bound to one viewport.
// A Tab is used by one goroutine at a time.
type Tab interface {
	// Navigate loads rawURL and waits for the given condition. Console
	// messages collected for the previous page are discarded.
	Navigate(ctx context.Context, rawURL string, until WaitUntil) (Response, error)

	// URL returns the address of the current page.
	URL() string

	// HTML returns the serialized DOM of the current page.
	HTML(ctx context.Context) (string, error)

	// Images returns the <img> elements of the current page with their
	// load state.
	Images(ctx context.Context) ([]model.Image, error)

	// Screenshot writes a full-page PNG of the current page to path.
	Screenshot(ctx context.Context, path string) error

	// Console returns the console messages and uncaught exceptions logged
	// since the last navigation.
	Console() []model.ConsoleMessage

	// CardCandidates returns the elements matching selector whose width and
	// height both exceed minSize, in document order.
	CardCandidates(ctx context.Context, selector string, minSize float64) ([]model.CardCandidate, error)

	// ClickCandidate clicks the index-th element returned by CardCandidates
	// and waits for the page to settle.
	ClickCandidate(ctx context.Context, selector string, minSize float64, index int) error

	// Fill types value into the first element matching selector.
	Fill(ctx context.Context, selector, value string) error

	// SetViewport resizes the tab and applies the viewport's user agent.
	SetViewport(ctx context.Context, vp model.Viewport) error

	// Close releases the tab and its browser context.
	Close() error
}

// Browser creates tabs.
type Browser interface {
	// Name identifies the engine ("rod", "http").
	Name() string

	// NewTab opens a tab in a fresh browser context sized to vp.
	NewTab(ctx context.Context, vp model.Viewport) (Tab, error)

	// Close shuts the engine down.
	Close() error
}

// Options configures an engine.
type Options struct {
	// Site is the base URL of the audited site. Headers and Cookie belong
	// to its host and are never sent to any other host.
	Site string

	// Headers are sent with every request to the site host.
	Headers map[string]string

	// Cookie is sent to the site host, e.g. "a=1; b=2".
	Cookie string

	// UserAgent is used for viewports that do not set their own.
	UserAgent string
}

// owns reports whether u points at the site host. When the site URL names
// a port, u must use the same port.
func (o Options) owns(u *url.URL) bool {
	site, err := url.Parse(o.Site)
	if err != nil || site.Hostname() == "" {
		return false
	}
	if !strings.EqualFold(u.Hostname(), site.Hostname()) {
		return false
	}
	return site.Port() == "" || u.Port() == site.Port()
}

// headersFor returns the profile headers and cookie to send with a request
// to rawURL: all of them for the site host, none for any other host.
func (o Options) headersFor(rawURL string) map[string]string {
	u, err := url.Parse(rawURL)
	if err != nil || !o.owns(u) {
		return nil
	}
	headers := make(map[string]string, len(o.Headers)+1)
	for k, v := range o.Headers {
		headers[k] = v
	}
	if o.Cookie != "" {
		headers["Cookie"] = o.Cookie
	}
	return headers
}

func (o Options) userAgent(vp model.Viewport) string {
	if vp.UserAgent != "" {
		return vp.UserAgent
	}
	return o.UserAgent
}
