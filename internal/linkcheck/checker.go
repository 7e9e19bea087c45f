package linkcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/uxaudit/internal/model"
)

// Defaults used when the corresponding option is not given.
const (
	DefaultMaxLinks    = 50
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 1
	DefaultDelay       = 100 * time.Millisecond
)

const maxRedirects = 10

// Checker probes links for HTTP error statuses.
type Checker struct {
	client      *http.Client
	timeout     time.Duration
	maxLinks    int
	concurrency int
	limiter     *rate.Limiter
	userAgent   string
	site        *url.URL
	headers     map[string]string
	logger      *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient sets the client used for the checks.
func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) {
		ch.client = c
	}
}

// WithTimeout sets the per-link timeout.
func WithTimeout(d time.Duration) Option {
	return func(ch *Checker) {
		if d > 0 {
			ch.timeout = d
		}
	}
}

// WithMaxLinks caps the number of distinct links checked.
func WithMaxLinks(n int) Option {
	return func(ch *Checker) {
		if n > 0 {
			ch.maxLinks = n
		}
	}
}

// WithConcurrency sets how many checks may run at once.
func WithConcurrency(n int) Option {
	return func(ch *Checker) {
		if n > 0 {
			ch.concurrency = n
		}
	}
}

// WithDelay sets the minimum interval between two requests. Zero disables
// rate limiting.
func WithDelay(d time.Duration) Option {
	return func(ch *Checker) {
		if d <= 0 {
			ch.limiter = nil
			return
		}
		ch.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithUserAgent sets the User-Agent header of the checks.
func WithUserAgent(ua string) Option {
	return func(ch *Checker) {
		ch.userAgent = ua
	}
}

// WithSiteHeaders adds headers to the checks of links on the site host.
// Links to other hosts are checked without them, also after a redirect.
func WithSiteHeaders(site string, h map[string]string) Option {
	return func(ch *Checker) {
		u, err := url.Parse(site)
		if err != nil || u.Hostname() == "" {
			return
		}
		ch.site = u
		ch.headers = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ch *Checker) {
		ch.logger = logger
	}
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	ch := &Checker{
		timeout:     DefaultTimeout,
		maxLinks:    DefaultMaxLinks,
		concurrency: DefaultConcurrency,
		limiter:     rate.NewLimiter(rate.Every(DefaultDelay), 1),
	}
	for _, opt := range opts {
		opt(ch)
	}
	if ch.logger == nil {
		ch.logger = slog.Default()
	}
	if ch.client == nil {
		ch.client = &http.Client{CheckRedirect: ch.checkRedirect}
	}
	return ch
}

// Select returns the links that will be checked: hrefs with an http, https
// or empty scheme, each distinct href once, in first-seen order, at most
// the configured maximum.
func (ch *Checker) Select(links []model.Link) []model.Link {
	seen := make(map[string]struct{}, len(links))
	selected := make([]model.Link, 0, min(len(links), ch.maxLinks))
	for _, link := range links {
		if len(selected) >= ch.maxLinks {
			break
		}
		href := strings.TrimSpace(link.Href)
		if href == "" || !checkable(href) {
			continue
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}
		selected = append(selected, model.Link{Href: href, Text: link.Text})
	}
	return selected
}

// Check probes the selected links and returns the broken ones in the order
// the links were given. A cancelled context stops the remaining checks and
// is returned together with the links found broken so far.
func (ch *Checker) Check(ctx context.Context, links []model.Link) ([]model.BrokenLink, error) {
	selected := ch.Select(links)
	results := make([]*model.BrokenLink, len(selected))

	ch.logger.Debug("checking links", "total", len(selected), "concurrency", ch.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ch.concurrency)

	for i, link := range selected {
		g.Go(func() error {
			if ch.limiter != nil {
				if err := ch.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ch.check(gctx, link)
			return nil
		})
	}
	err := g.Wait()

	broken := make([]model.BrokenLink, 0)
	for _, r := range results {
		if r != nil {
			broken = append(broken, *r)
		}
	}
	return broken, err
}

// check returns nil when the link answered with a status below 400.
func (ch *Checker) check(ctx context.Context, link model.Link) *model.BrokenLink {
	ctx, cancel := context.WithTimeout(ctx, ch.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.Href, nil)
	if err != nil {
		return &model.BrokenLink{URL: link.Href, Error: err.Error(), Text: link.Text}
	}
	if ch.userAgent != "" {
		req.Header.Set("User-Agent", ch.userAgent)
	}
	if ch.onSite(req.URL) {
		for k, v := range ch.headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := ch.client.Do(req)
	if err != nil {
		ch.logger.Debug("link check failed", "url", link.Href, "error", err)
		return &model.BrokenLink{URL: link.Href, Error: err.Error(), Text: link.Text}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= http.StatusBadRequest {
		ch.logger.Debug("broken link", "url", link.Href, "status", resp.StatusCode)
		return &model.BrokenLink{URL: link.Href, Status: resp.StatusCode, Text: link.Text}
	}
	return nil
}

// onSite reports whether u is on the site host, and on its port when the
// site URL names one.
func (ch *Checker) onSite(u *url.URL) bool {
	if ch.site == nil {
		return false
	}
	if !strings.EqualFold(u.Hostname(), ch.site.Hostname()) {
		return false
	}
	return ch.site.Port() == "" || u.Port() == ch.site.Port()
}

// checkRedirect drops the site headers when a redirect leaves the site host.
func (ch *Checker) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !ch.onSite(req.URL) {
		for k := range ch.headers {
			req.Header.Del(k)
		}
	}
	return nil
}

func checkable(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "":
		return true
	default:
		return false
	}
}
