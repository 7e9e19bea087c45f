package browser

import (
	"strings"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

func TestOptionsSiteCookies(t *testing.T) {
	t.Parallel()

	t.Run("host-only cookies of the site", func(t *testing.T) {
		t.Parallel()
		opts := Options{Site: "https://example.com", Cookie: "session=abc; theme=dark"}
		cookies, err := opts.siteCookies()
		if err != nil {
			t.Fatal(err)
		}
		if len(cookies) != 2 {
			t.Fatalf("expected 2 cookies, got %d", len(cookies))
		}
		want := map[string]string{"session": "abc", "theme": "dark"}
		for _, c := range cookies {
			if want[c.Name] != c.Value {
				t.Errorf("unexpected cookie %s=%s", c.Name, c.Value)
			}
			if c.URL != "https://example.com" || c.Domain != "" || c.Path != "/" {
				t.Errorf("expected cookie %s bound to the site URL only, got url=%q domain=%q path=%q", c.Name, c.URL, c.Domain, c.Path)
			}
		}
	})

	t.Run("nothing without a site or cookie", func(t *testing.T) {
		t.Parallel()
		for _, opts := range []Options{{Cookie: "session=abc"}, {Site: "https://example.com"}} {
			cookies, err := opts.siteCookies()
			if err != nil || cookies != nil {
				t.Errorf("expected no cookies for %+v, got %v, %v", opts, cookies, err)
			}
		}
	})

	t.Run("malformed cookie", func(t *testing.T) {
		t.Parallel()
		if _, err := (Options{Site: "https://example.com", Cookie: "no-equals-sign"}).siteCookies(); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestWithHeaders(t *testing.T) {
	t.Parallel()

	base := proto.NetworkHeaders{
		"Accept":  gson.New("text/html"),
		"x-test":  gson.New("old"),
		"Referer": gson.New("https://example.com/"),
	}
	entries := withHeaders(base, map[string]string{"X-Test": "yes", "Authorization": "Bearer t"})

	got := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, dup := got[e.Name]; dup {
			t.Errorf("duplicate header %s", e.Name)
		}
		got[e.Name] = e.Value
	}
	want := map[string]string{
		"Accept":        "text/html",
		"Referer":       "https://example.com/",
		"X-Test":        "yes",
		"Authorization": "Bearer t",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("header %s: expected %q, got %q", k, v, got[k])
		}
	}

	extras := entries[len(entries)-2:]
	if extras[0].Name != "Authorization" || extras[1].Name != "X-Test" {
		t.Errorf("expected extra headers last in name order, got %s, %s", extras[0].Name, extras[1].Name)
	}
}

func TestCardElementsShareFilter(t *testing.T) {
	t.Parallel()

	if !strings.Contains(cardCandidatesJS, cardElementsJS) {
		t.Error("expected candidate listing to use the clickable element filter")
	}
}
