package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder for image probes
	_ "image/jpeg" // register JPEG decoder for image probes
	_ "image/png"  // register PNG decoder for image probes
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/uxaudit/internal/inspect"
	"github.com/nao1215/uxaudit/internal/model"
)

// maxBodySize caps response bodies read by the HTTP engine.
const maxBodySize = 10 * 1024 * 1024

// HTTPBrowser fetches pages with net/http and inspects the raw HTML.
// It runs no JavaScript: screenshots are unsupported, console output is
// always empty and image load state comes from fetching each image.
type HTTPBrowser struct {
	client *http.Client
	opts   Options
}

// HTTPOption configures an HTTPBrowser.
type HTTPOption func(*HTTPBrowser)

// WithHTTPClient sets the client used for all requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTPBrowser) {
		b.client = c
	}
}

// NewHTTPBrowser creates the HTTP engine.
func NewHTTPBrowser(opts Options, options ...HTTPOption) *HTTPBrowser {
	b := &HTTPBrowser{
		client: &http.Client{CheckRedirect: opts.checkRedirect},
		opts:   opts,
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// Name returns "http".
func (b *HTTPBrowser) Name() string {
	return "http"
}

// NewTab creates a tab. Tabs share the client but hold their own page.
func (b *HTTPBrowser) NewTab(_ context.Context, vp model.Viewport) (Tab, error) {
	return &httpTab{
		client:    b.client,
		opts:      b.opts,
		userAgent: b.opts.userAgent(vp),
	}, nil
}

// Close is a no-op.
func (b *HTTPBrowser) Close() error {
	return nil
}

type httpTab struct {
	client    *http.Client
	opts      Options
	userAgent string

	url  string
	html string
	doc  *inspect.Document
}

func (t *httpTab) Navigate(ctx context.Context, rawURL string, _ WaitUntil) (Response, error) {
	start := time.Now()
	resp, body, err := t.get(ctx, rawURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return Response{}, categorizeError(err, CodeNavigation, "navigation to "+rawURL+" failed")
	}
	elapsed := time.Since(start)

	finalURL := resp.Request.URL.String()
	doc, err := inspect.Parse(finalURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, NewError(CodeNavigation, "failed to parse "+finalURL, err)
	}

	t.url = finalURL
	t.html = string(body)
	t.doc = doc

	return Response{Status: resp.StatusCode, URL: finalURL, LoadTime: elapsed}, nil
}

func (t *httpTab) URL() string {
	return t.url
}

func (t *httpTab) HTML(_ context.Context) (string, error) {
	if t.doc == nil {
		return "", errNoPage()
	}
	return t.html, nil
}

// Images fetches every distinct image source once. An image whose request
// fails, answers >= 400 or returns an empty body is broken. Images that
// load but cannot be decoded stay incomplete.
func (t *httpTab) Images(ctx context.Context) ([]model.Image, error) {
	if t.doc == nil {
		return nil, errNoPage()
	}

	images := t.doc.Images()
	probed := make(map[string]model.Image, len(images))
	for i, img := range images {
		if img.Src == "" || strings.HasPrefix(img.Src, "data:") {
			continue
		}
		state, ok := probed[img.Src]
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, categorizeError(err, CodeTimeout, "image probe interrupted")
			}
			state = t.probeImage(ctx, img.Src)
			probed[img.Src] = state
		}
		images[i].Complete = state.Complete
		images[i].NaturalWidth = state.NaturalWidth
		images[i].NaturalHeight = state.NaturalHeight
	}
	return images, nil
}

func (t *httpTab) probeImage(ctx context.Context, src string) model.Image {
	resp, body, err := t.get(ctx, src, "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	if err != nil || resp.StatusCode >= http.StatusBadRequest || len(body) == 0 {
		return model.Image{Complete: true}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return model.Image{}
	}
	return model.Image{Complete: true, NaturalWidth: cfg.Width, NaturalHeight: cfg.Height}
}

func (t *httpTab) Screenshot(_ context.Context, _ string) error {
	return errUnsupported("screenshot")
}

func (t *httpTab) Console() []model.ConsoleMessage {
	return nil
}

func (t *httpTab) CardCandidates(_ context.Context, selector string, _ float64) ([]model.CardCandidate, error) {
	if t.doc == nil {
		return nil, errNoPage()
	}
	return t.doc.CardCandidates(selector), nil
}

// ClickCandidate follows the anchor of the candidate: the element itself,
// its closest ancestor anchor or its first descendant anchor. A candidate
// without an anchor leaves the page unchanged.
func (t *httpTab) ClickCandidate(ctx context.Context, selector string, _ float64, index int) error {
	if t.doc == nil {
		return errNoPage()
	}
	candidate := t.doc.Selection().Find(selector).Eq(index)
	if candidate.Length() == 0 {
		return NewError(CodeNotFound, fmt.Sprintf("card candidate %d not found", index), nil)
	}

	href, ok := anchorHref(candidate)
	if !ok {
		return nil
	}
	if _, err := t.Navigate(ctx, t.doc.Resolve(href), WaitNetworkIdle); err != nil {
		return err
	}
	return nil
}

func anchorHref(s *goquery.Selection) (string, bool) {
	for _, a := range []*goquery.Selection{
		s.Filter("a[href]"),
		s.Closest("a[href]"),
		s.Find("a[href]").First(),
	} {
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return href, true
		}
	}
	return "", false
}

// Fill sets the value attribute of the first matching element.
func (t *httpTab) Fill(_ context.Context, selector, value string) error {
	if t.doc == nil {
		return errNoPage()
	}
	el := t.doc.Query(selector)
	if el.Length() == 0 {
		return NewError(CodeNotFound, "no element matches "+selector, nil)
	}
	el.SetAttr("value", value)
	return nil
}

func (t *httpTab) SetViewport(_ context.Context, vp model.Viewport) error {
	t.userAgent = t.opts.userAgent(vp)
	return nil
}

func (t *httpTab) Close() error {
	t.doc = nil
	return nil
}

func (t *httpTab) get(ctx context.Context, rawURL, accept string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range t.opts.headersFor(rawURL) {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return resp, body, nil
}

// maxRedirects matches the net/http default.
const maxRedirects = 10

// checkRedirect drops the profile headers and cookie when a redirect leaves
// the site host.
func (o Options) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !o.owns(req.URL) {
		for k := range o.Headers {
			req.Header.Del(k)
		}
		req.Header.Del("Cookie")
	}
	return nil
}

func errNoPage() *Error {
	return NewError(CodeNavigation, "no page loaded", errors.New("navigate first"))
}
