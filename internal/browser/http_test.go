package browser

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/uxaudit/internal/inspect"
	"github.com/nao1215/uxaudit/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	logo := pngBytes(t, 4, 3)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Home</title></head><body>
			<img src="/logo.png" alt="Logo">
			<img src="/missing.png" alt="Missing">
			<img src="/logo.png" alt="Logo again">
			<img src="/notes.txt" alt="Not an image">
			<div class="card"><a href="/detail">Detail</a></div>
			<div class="card">No link</div>
			<form><input type="text" placeholder="Your Email"></form>
		</body></html>`))
	})
	mux.HandleFunc("/logo.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(logo)
	})
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	})
	mux.HandleFunc("/detail", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Detail</title></head></html>`))
	})
	mux.HandleFunc("/headers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p id="ua">` + r.UserAgent() + `</p><p id="cookie">` +
			r.Header.Get("Cookie") + `</p><p id="x">` + r.Header.Get("X-Test") + `</p></body></html>`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func openTab(t *testing.T, opts Options, vp model.Viewport) Tab {
	t.Helper()
	b := NewHTTPBrowser(opts)
	tab, err := b.NewTab(context.Background(), vp)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tab.Close() })
	return tab
}

func TestHTTPTabNavigate(t *testing.T) {
	t.Parallel()
	srv := newSite(t)

	t.Run("returns status and final URL", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{}, model.DesktopViewport)
		resp, err := tab.Navigate(context.Background(), srv.URL+"/", WaitNetworkIdle)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.Status)
		}
		if resp.URL != srv.URL+"/" || tab.URL() != srv.URL+"/" {
			t.Errorf("unexpected URL %q / %q", resp.URL, tab.URL())
		}
		html, err := tab.HTML(context.Background())
		if err != nil || !strings.Contains(html, "<title>Home</title>") {
			t.Errorf("expected page HTML, got %q (%v)", html, err)
		}
	})

	t.Run("error statuses are not errors", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{}, model.DesktopViewport)
		resp, err := tab.Navigate(context.Background(), srv.URL+"/nope", WaitLoad)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", resp.Status)
		}
	})

	t.Run("deadline is reported as timeout", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{}, model.DesktopViewport)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := tab.Navigate(ctx, srv.URL+"/slow", WaitNetworkIdle)
		if !IsCode(err, CodeTimeout) {
			t.Errorf("expected timeout error, got %v", err)
		}
	})

	t.Run("unreachable host is a navigation error", func(t *testing.T) {
		t.Parallel()
		dead := httptest.NewServer(http.NotFoundHandler())
		addr := dead.URL
		dead.Close()

		tab := openTab(t, Options{}, model.DesktopViewport)
		_, err := tab.Navigate(context.Background(), addr, WaitNetworkIdle)
		if !IsCode(err, CodeNavigation) {
			t.Errorf("expected navigation error, got %v", err)
		}
	})

	t.Run("sends user agent, cookie and headers", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{
			Site:      srv.URL,
			Cookie:    "session=abc",
			Headers:   map[string]string{"X-Test": "yes"},
			UserAgent: "default-agent",
		}, model.MobileViewport)
		if _, err := tab.Navigate(context.Background(), srv.URL+"/headers", WaitNetworkIdle); err != nil {
			t.Fatal(err)
		}
		html, _ := tab.HTML(context.Background())
		doc, err := inspect.ParseString(tab.URL(), html)
		if err != nil {
			t.Fatal(err)
		}
		sel := doc.Selection()
		if got := sel.Find("#ua").Text(); got != model.MobileViewport.UserAgent {
			t.Errorf("expected mobile user agent, got %q", got)
		}
		if got := sel.Find("#cookie").Text(); got != "session=abc" {
			t.Errorf("expected cookie, got %q", got)
		}
		if got := sel.Find("#x").Text(); got != "yes" {
			t.Errorf("expected custom header, got %q", got)
		}

		if err := tab.SetViewport(context.Background(), model.DesktopViewport); err != nil {
			t.Fatal(err)
		}
		if _, err := tab.Navigate(context.Background(), srv.URL+"/headers", WaitNetworkIdle); err != nil {
			t.Fatal(err)
		}
		html, _ = tab.HTML(context.Background())
		if !strings.Contains(html, "default-agent") {
			t.Errorf("expected fallback user agent after viewport change, got %q", html)
		}
	})
}

func TestHTTPTabKeepsProfileOnSite(t *testing.T) {
	t.Parallel()

	type seen struct {
		path, cookie, custom string
	}
	var (
		mu      sync.Mutex
		foreign []seen
	)
	pixel := pngBytes(t, 1, 1)
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		foreign = append(foreign, seen{path: r.URL.Path, cookie: r.Header.Get("Cookie"), custom: r.Header.Get("X-Test")})
		mu.Unlock()
		if r.URL.Path == "/pixel.png" {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pixel)
			return
		}
		_, _ = w.Write([]byte("<html><body>elsewhere</body></html>"))
	}))
	t.Cleanup(other.Close)

	var siteCookie string
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hop":
			http.Redirect(w, r, other.URL+"/landing", http.StatusFound)
		default:
			mu.Lock()
			siteCookie = r.Header.Get("Cookie")
			mu.Unlock()
			_, _ = w.Write([]byte(`<html><body><img src="` + other.URL + `/pixel.png" alt="tracker"></body></html>`))
		}
	}))
	t.Cleanup(site.Close)

	tab := openTab(t, Options{
		Site:    site.URL,
		Cookie:  "session=abc",
		Headers: map[string]string{"X-Test": "yes"},
	}, model.DesktopViewport)

	if _, err := tab.Navigate(context.Background(), site.URL+"/", WaitNetworkIdle); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.Images(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.Navigate(context.Background(), site.URL+"/hop", WaitNetworkIdle); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if siteCookie != "session=abc" {
		t.Errorf("expected the site to get the cookie, got %q", siteCookie)
	}
	if len(foreign) != 2 {
		t.Fatalf("expected 2 requests to the other host, got %+v", foreign)
	}
	for _, got := range foreign {
		if got.cookie != "" || got.custom != "" {
			t.Errorf("expected no profile headers on %s of the other host, got %+v", got.path, got)
		}
	}
}

func TestOptionsHeadersFor(t *testing.T) {
	t.Parallel()

	opts := Options{
		Site:    "https://example.com",
		Cookie:  "session=abc",
		Headers: map[string]string{"X-Test": "yes"},
	}
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "site page", url: "https://example.com/about", want: true},
		{name: "host is case insensitive", url: "https://EXAMPLE.com/", want: true},
		{name: "any port when the site names none", url: "http://example.com:8080/", want: true},
		{name: "other host", url: "https://cdn.example.net/a.png", want: false},
		{name: "subdomain", url: "https://static.example.com/a.png", want: false},
		{name: "unparsable", url: "://bad", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := opts.headersFor(tt.url)
			if tt.want && (got["Cookie"] != "session=abc" || got["X-Test"] != "yes") {
				t.Errorf("expected profile headers for %s, got %v", tt.url, got)
			}
			if !tt.want && len(got) != 0 {
				t.Errorf("expected no headers for %s, got %v", tt.url, got)
			}
		})
	}

	t.Run("port must match when the site names one", func(t *testing.T) {
		t.Parallel()
		local := Options{Site: "http://127.0.0.1:8000", Cookie: "session=abc"}
		if got := local.headersFor("http://127.0.0.1:9000/"); len(got) != 0 {
			t.Errorf("expected no headers for another port, got %v", got)
		}
		if got := local.headersFor("http://127.0.0.1:8000/x"); got["Cookie"] != "session=abc" {
			t.Errorf("expected cookie for the site port, got %v", got)
		}
	})

	t.Run("no site means no headers", func(t *testing.T) {
		t.Parallel()
		if got := (Options{Cookie: "session=abc"}).headersFor("https://example.com/"); len(got) != 0 {
			t.Errorf("expected no headers without a site, got %v", got)
		}
	})
}

func TestHTTPTabImages(t *testing.T) {
	t.Parallel()
	srv := newSite(t)

	tab := openTab(t, Options{}, model.DesktopViewport)
	if _, err := tab.Navigate(context.Background(), srv.URL+"/", WaitNetworkIdle); err != nil {
		t.Fatal(err)
	}

	images, err := tab.Images(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images) != 4 {
		t.Fatalf("expected 4 images, got %d", len(images))
	}

	if images[0].Broken() || images[0].NaturalWidth != 4 || images[0].NaturalHeight != 3 {
		t.Errorf("expected loaded 4x3 logo, got %+v", images[0])
	}
	if !images[1].Broken() {
		t.Errorf("expected missing image to be broken, got %+v", images[1])
	}
	if images[2].NaturalWidth != 4 {
		t.Errorf("expected duplicate src to reuse the probe, got %+v", images[2])
	}
	if images[3].Broken() || images[3].Complete {
		t.Errorf("expected undecodable image to be neither broken nor complete, got %+v", images[3])
	}
}

func TestHTTPTabInteractions(t *testing.T) {
	t.Parallel()
	srv := newSite(t)

	t.Run("screenshot is unsupported", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{}, model.DesktopViewport)
		err := tab.Screenshot(context.Background(), t.TempDir()+"/x.png")
		if !IsCode(err, CodeUnsupported) {
			t.Errorf("expected unsupported error, got %v", err)
		}
	})

	t.Run("operations before navigation fail", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{}, model.DesktopViewport)
		if _, err := tab.HTML(context.Background()); err == nil {
			t.Error("expected error")
		}
		if _, err := tab.Images(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("clicking a card follows its link", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{}, model.DesktopViewport)
		if _, err := tab.Navigate(context.Background(), srv.URL+"/", WaitNetworkIdle); err != nil {
			t.Fatal(err)
		}
		cards, err := tab.CardCandidates(context.Background(), ".card", 50)
		if err != nil || len(cards) != 2 {
			t.Fatalf("expected 2 cards, got %d (%v)", len(cards), err)
		}
		if err := tab.ClickCandidate(context.Background(), ".card", 50, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tab.URL() != srv.URL+"/detail" {
			t.Errorf("expected detail page, got %q", tab.URL())
		}
	})

	t.Run("clicking a card without link stays", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{}, model.DesktopViewport)
		if _, err := tab.Navigate(context.Background(), srv.URL+"/", WaitNetworkIdle); err != nil {
			t.Fatal(err)
		}
		if err := tab.ClickCandidate(context.Background(), ".card", 50, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tab.URL() != srv.URL+"/" {
			t.Errorf("expected to stay on homepage, got %q", tab.URL())
		}
		if err := tab.ClickCandidate(context.Background(), ".card", 50, 5); !IsCode(err, CodeNotFound) {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("fill", func(t *testing.T) {
		t.Parallel()
		tab := openTab(t, Options{}, model.DesktopViewport)
		if _, err := tab.Navigate(context.Background(), srv.URL+"/", WaitNetworkIdle); err != nil {
			t.Fatal(err)
		}
		if err := tab.Fill(context.Background(), inspect.EmailInputSelector, "a@example.com"); err != nil {
			t.Errorf("expected email fill to succeed, got %v", err)
		}
		if err := tab.Fill(context.Background(), inspect.PasswordInputSelector, "x"); !IsCode(err, CodeNotFound) {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}
