package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/uxaudit/internal/model"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default SmokeTimeout is 15 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.SmokeTimeout != 15*time.Second {
			t.Errorf("expected SmokeTimeout to be 15s, got %v", cfg.SmokeTimeout)
		}
	})

	t.Run("default LinkTimeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.LinkTimeout != 10*time.Second {
			t.Errorf("expected LinkTimeout to be 10s, got %v", cfg.LinkTimeout)
		}
	})

	t.Run("default MaxLinks is 50", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxLinks != 50 {
			t.Errorf("expected MaxLinks to be 50, got %d", cfg.MaxLinks)
		}
	})

	t.Run("default MaxPages is 100", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 100 {
			t.Errorf("expected MaxPages to be 100, got %d", cfg.MaxPages)
		}
	})

	t.Run("default discovery depth is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.DiscoveryDepth != 1 {
			t.Errorf("expected DiscoveryDepth to be 1, got %d", cfg.DiscoveryDepth)
		}
	})

	t.Run("link checks are sequential by default", func(t *testing.T) {
		t.Parallel()
		if cfg.LinkConcurrency != 1 {
			t.Errorf("expected LinkConcurrency to be 1, got %d", cfg.LinkConcurrency)
		}
	})

	t.Run("default engine is rod", func(t *testing.T) {
		t.Parallel()
		if cfg.Engine != EngineRod {
			t.Errorf("expected Engine to be %q, got %q", EngineRod, cfg.Engine)
		}
	})

	t.Run("default profile is set", func(t *testing.T) {
		t.Parallel()
		if cfg.Profile.AuthPath != "/auth" {
			t.Errorf("expected AuthPath to be /auth, got %q", cfg.Profile.AuthPath)
		}
		if len(cfg.Profile.Viewports) != 2 {
			t.Errorf("expected 2 viewports, got %d", len(cfg.Profile.Viewports))
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Site = "https://example.com"
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "empty site", modify: func(c *Config) { c.Site = "" }, want: ErrNoTarget},
		{name: "relative site", modify: func(c *Config) { c.Site = "example.com" }, want: ErrInvalidSiteURL},
		{name: "ftp site", modify: func(c *Config) { c.Site = "ftp://example.com" }, want: ErrInvalidSiteURL},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative smoke timeout", modify: func(c *Config) { c.SmokeTimeout = -time.Second }, want: ErrInvalidTimeout},
		{name: "zero link timeout", modify: func(c *Config) { c.LinkTimeout = 0 }, want: ErrInvalidLinkTimeout},
		{name: "negative max pages", modify: func(c *Config) { c.MaxPages = -1 }, want: ErrInvalidMaxPages},
		{name: "negative max links", modify: func(c *Config) { c.MaxLinks = -1 }, want: ErrInvalidMaxLinks},
		{name: "negative depth", modify: func(c *Config) { c.DiscoveryDepth = -1 }, want: ErrInvalidDiscoveryDepth},
		{name: "zero concurrency", modify: func(c *Config) { c.LinkConcurrency = 0 }, want: ErrInvalidLinkConcurrency},
		{name: "negative delay", modify: func(c *Config) { c.LinkCheckDelay = -time.Millisecond }, want: ErrInvalidLinkCheckDelay},
		{name: "unknown engine", modify: func(c *Config) { c.Engine = "webkit" }, want: ErrUnknownEngine},
		{name: "bad selector", modify: func(c *Config) { c.Profile.CardSelectors = []string{"[class*="} }, want: ErrInvalidSelector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("zero max pages disables discovery and is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxPages = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestConfigPaths(t *testing.T) {
	t.Parallel()

	t.Run("explicit output dir", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Site = "https://example.com/"
		cfg.OutputDir = "/tmp/out"

		if got := cfg.ScreenshotDir(); got != filepath.Join("/tmp/out", "screenshots") {
			t.Errorf("got %q", got)
		}
		if got := cfg.ReportPath(); got != filepath.Join("/tmp/out", "report.md") {
			t.Errorf("got %q", got)
		}
		if got := cfg.RawResultsPath(); got != filepath.Join("/tmp/out", "screenshots", "raw_results.json") {
			t.Errorf("got %q", got)
		}
		if got := cfg.TranscriptPath(); got != filepath.Join("/tmp/out", "report.txt") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("default output dir is per host", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Site = "https://example.com:8443"

		want := filepath.Join(XDGDataDir(), "example.com")
		if got := cfg.ResolvedOutputDir(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("base URL has no trailing slash", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Site = "https://example.com/"
		if got := cfg.BaseURL(); got != "https://example.com" {
			t.Errorf("got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("expected data dir to end with %q, got %q", AppName, XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("expected config dir to end with %q, got %q", AppName, XDGConfigDir())
	}
}

func TestProfile(t *testing.T) {
	t.Parallel()

	t.Run("default seeds are homepage and auth", func(t *testing.T) {
		t.Parallel()
		seeds := DefaultProfile().Seeds()
		if len(seeds) != 2 {
			t.Fatalf("expected 2 seeds, got %d", len(seeds))
		}
		if seeds[0] != (SeedPage{Label: "homepage", Path: "/"}) {
			t.Errorf("unexpected first seed %+v", seeds[0])
		}
		if seeds[1] != (SeedPage{Label: "auth", Path: "/auth"}) {
			t.Errorf("unexpected second seed %+v", seeds[1])
		}
	})

	t.Run("auth seed follows auth path", func(t *testing.T) {
		t.Parallel()
		p := DefaultProfile()
		p.AuthPath = "/login"
		if got := p.Seeds()[1].Path; got != "/login" {
			t.Errorf("expected /login, got %q", got)
		}
	})

	t.Run("card selector group", func(t *testing.T) {
		t.Parallel()
		want := `[class*="card"], [class*="era"], [class*="Card"], button, [role="button"]`
		if got := DefaultProfile().CardSelector(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("ignore patterns", func(t *testing.T) {
		t.Parallel()
		p := Profile{IgnorePatterns: []string{"/admin/*", "/blog"}}
		if !p.Ignored("/admin/users") {
			t.Error("expected /admin/users to be ignored")
		}
		if !p.Ignored("/blog") {
			t.Error("expected /blog to be ignored")
		}
		if p.Ignored("/pricing") {
			t.Error("expected /pricing not to be ignored")
		}
	})

	validation := []struct {
		name   string
		modify func(*Profile)
		want   error
	}{
		{name: "no selectors", modify: func(p *Profile) { p.CardSelectors = nil }, want: ErrNoCardSelectors},
		{name: "negative card size", modify: func(p *Profile) { p.MinCardSize = -1 }, want: ErrInvalidCardSize},
		{name: "negative max cards", modify: func(p *Profile) { p.MaxCards = -1 }, want: ErrInvalidMaxCards},
		{name: "relative auth path", modify: func(p *Profile) { p.AuthPath = "auth" }, want: ErrInvalidPath},
		{name: "relative seed path", modify: func(p *Profile) { p.SeedPages = []SeedPage{{Label: "a", Path: "a"}} }, want: ErrInvalidPath},
		{
			name:   "duplicate seed label",
			modify: func(p *Profile) { p.SeedPages = []SeedPage{{Label: "a", Path: "/a"}, {Label: "a", Path: "/b"}} },
			want:   ErrDuplicateLabel,
		},
		{
			name:   "viewport without size",
			modify: func(p *Profile) { p.Viewports = []model.Viewport{{Name: "tablet"}} },
			want:   ErrInvalidViewport,
		},
		{
			name: "duplicate viewport",
			modify: func(p *Profile) {
				p.Viewports = []model.Viewport{model.DesktopViewport, model.DesktopViewport}
			},
			want: ErrDuplicateViewport,
		},
	}
	for _, tt := range validation {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultProfile()
			tt.modify(&p)
			if err := p.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("bad ignore pattern", func(t *testing.T) {
		t.Parallel()
		p := DefaultProfile()
		p.IgnorePatterns = []string{"[a-"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for malformed pattern")
		}
	})
}

// TestFileProfile tests how the file defaults and site entries are merged.
func TestFileProfile(t *testing.T) {
	t.Parallel()

	t.Run("returns built-in defaults when file is empty", func(t *testing.T) {
		t.Parallel()
		file := &File{}
		p := file.Profile("example.com")
		if p.AuthPath != DefaultAuthPath || p.MaxCards != DefaultMaxCards {
			t.Errorf("expected built-in defaults, got %+v", p)
		}
	})

	t.Run("site overrides file defaults", func(t *testing.T) {
		t.Parallel()
		file := &File{
			Defaults: Profile{AuthPath: "/signin", MaxCards: 5},
			Sites: map[string]Profile{
				"example.com": {AuthPath: "/login"},
			},
		}
		p := file.Profile("example.com")
		if p.AuthPath != "/login" {
			t.Errorf("expected site auth path, got %q", p.AuthPath)
		}
		if p.MaxCards != 5 {
			t.Errorf("expected file default max cards, got %d", p.MaxCards)
		}
	})

	t.Run("other sites use file defaults", func(t *testing.T) {
		t.Parallel()
		file := &File{
			Defaults: Profile{AuthPath: "/signin"},
			Sites:    map[string]Profile{"example.com": {AuthPath: "/login"}},
		}
		if got := file.Profile("other.com").AuthPath; got != "/signin" {
			t.Errorf("expected /signin, got %q", got)
		}
	})

	t.Run("merges headers from defaults and site", func(t *testing.T) {
		t.Parallel()
		file := &File{
			Defaults: Profile{Headers: map[string]string{"X-Default": "value1", "Authorization": "default-token"}},
			Sites: map[string]Profile{
				"example.com": {Headers: map[string]string{"X-Custom": "value2", "Authorization": "site-token"}},
			},
		}
		p := file.Profile("example.com")
		if p.Headers["X-Default"] != "value1" {
			t.Errorf("expected default header, got %v", p.Headers)
		}
		if p.Headers["X-Custom"] != "value2" {
			t.Errorf("expected custom header, got %v", p.Headers)
		}
		if p.Headers["Authorization"] != "site-token" {
			t.Errorf("expected site token to override, got %q", p.Headers["Authorization"])
		}
	})

	t.Run("credentials are merged per field", func(t *testing.T) {
		t.Parallel()
		file := &File{
			Sites: map[string]Profile{"example.com": {Credentials: Credentials{Email: "qa@example.com"}}},
		}
		p := file.Profile("example.com")
		if p.Credentials.Email != "qa@example.com" {
			t.Errorf("expected site email, got %q", p.Credentials.Email)
		}
		if p.Credentials.Password != DefaultPassword {
			t.Errorf("expected default password, got %q", p.Credentials.Password)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("parses profiles", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".uxaudit")
		content := `defaults:
  maxCards: 3
sites:
  example.com:
    authPath: /login
    cardSelectors:
      - ".tile"
    minCardSize: 80
    seedPages:
      - label: homepage
        path: /
      - label: pricing
        path: /pricing
    viewports:
      - name: desktop
        width: 1280
        height: 800
      - name: tablet
        width: 768
        height: 1024
        mobile: true
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		file, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p := file.Profile("example.com")
		if p.AuthPath != "/login" {
			t.Errorf("expected /login, got %q", p.AuthPath)
		}
		if p.MaxCards != 3 {
			t.Errorf("expected 3 cards, got %d", p.MaxCards)
		}
		if p.MinCardSize != 80 {
			t.Errorf("expected min card size 80, got %v", p.MinCardSize)
		}
		if len(p.Seeds()) != 2 || p.Seeds()[1].Label != "pricing" {
			t.Errorf("unexpected seeds %+v", p.Seeds())
		}
		if len(p.Viewports) != 2 || !p.Viewports[1].Mobile {
			t.Errorf("unexpected viewports %+v", p.Viewports)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("expected valid profile, got %v", err)
		}
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".uxaudit")
		if err := os.WriteFile(path, []byte("sites: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("unknown key returns error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".uxaudit")
		content := "sites:\n  example.com:\n    authPth: /login\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if err == nil || !strings.Contains(err.Error(), "authPth") {
			t.Errorf("expected error naming the unknown key, got %v", err)
		}
	})

	t.Run("empty file yields no profiles", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".uxaudit")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		file, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if file.Sites == nil || len(file.Sites) != 0 {
			t.Errorf("expected empty site map, got %v", file.Sites)
		}
	})
}

func TestApplyConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing path is an error", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Site = "https://example.com"
		cfg.ConfigFilePath = filepath.Join(t.TempDir(), "missing")
		if err := cfg.ApplyConfigFile(); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("explicit path replaces profile", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "custom.yaml")
		content := "sites:\n  example.com:\n    authPath: /signin\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg := NewConfig()
		cfg.Site = "https://example.com"
		cfg.ConfigFilePath = path
		if err := cfg.ApplyConfigFile(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Profile.AuthPath != "/signin" {
			t.Errorf("expected /signin, got %q", cfg.Profile.AuthPath)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}
