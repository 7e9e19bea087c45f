package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The page-level values mirror what a user would see in a real browser
// session: a navigation is given 30 seconds to settle, a single link
// check 10 seconds.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "uxaudit"

	// DefaultTimeout bounds a single audit navigation, including the wait
	// for network idle. A page that exceeds it is recorded as failed.
	DefaultTimeout = 30 * time.Second

	// DefaultSmokeTimeout bounds the navigations of the smoke test after
	// the homepage has loaded.
	DefaultSmokeTimeout = 15 * time.Second

	// DefaultLinkTimeout bounds a single link check request.
	DefaultLinkTimeout = 10 * time.Second

	// DefaultMaxPages caps the number of discovered pages visited per pass.
	// Seed pages do not count towards it.
	DefaultMaxPages = 100

	// DefaultMaxLinks is the number of distinct links checked per run.
	DefaultMaxLinks = 50

	// DefaultLinkConcurrency is the number of link checks in flight.
	// 1 keeps the checks strictly sequential.
	DefaultLinkConcurrency = 1

	// DefaultLinkCheckDelay is the minimum interval between two link
	// check requests. Use 0 for no rate limit.
	DefaultLinkCheckDelay = 100 * time.Millisecond

	// DefaultDiscoveryDepth is how many link hops away from the seed pages
	// same-site pages are discovered. 1 means links of seed pages only.
	DefaultDiscoveryDepth = 1

	// DefaultUserAgent is sent by the desktop pass and the link checker.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	// EngineRod drives a headless Chromium through the DevTools protocol.
	EngineRod = "rod"

	// EngineHTTP fetches pages over plain HTTP without running JavaScript.
	EngineHTTP = "http"
)

// Output file names written below the output directory.
const (
	ScreenshotDirName  = "screenshots"
	ReportFileName     = "report.md"
	RawResultsFileName = "raw_results.json"
	TranscriptFileName = "report.txt"
)

// Config holds all options of a single run.
// It is populated from CLI flags and the optional configuration file and
// passed to the pipeline and the smoke runner explicitly.
type Config struct {
	// Site is the base URL of the website to audit, e.g. "https://example.com".
	Site string

	// OutputDir is where screenshots and reports are written.
	// Empty means XDGDataDir()/<host>.
	OutputDir string

	// Timeout bounds each navigation of the audit and the homepage load
	// of the smoke test.
	Timeout time.Duration

	// SmokeTimeout bounds the secondary navigations of the smoke test.
	SmokeTimeout time.Duration

	// LinkTimeout bounds each link check request.
	LinkTimeout time.Duration

	// MaxPages caps the discovered pages visited per viewport pass.
	// 0 disables discovery.
	MaxPages int

	// MaxLinks is the number of distinct links checked.
	MaxLinks int

	// DiscoveryDepth is the number of link hops followed from seed pages.
	DiscoveryDepth int

	// LinkConcurrency is the number of link checks in flight.
	LinkConcurrency int

	// LinkCheckDelay is the minimum interval between two link checks.
	LinkCheckDelay time.Duration

	// Engine selects the page engine: EngineRod or EngineHTTP.
	Engine string

	// BrowserBin is the path of a Chromium binary. Empty lets rod download
	// or locate one.
	BrowserBin string

	// NoSandbox disables the Chromium sandbox, which is required when
	// running as root inside containers.
	NoSandbox bool

	// Stealth injects anti-bot-detection scripts into every page.
	Stealth bool

	// UserAgent is sent by the desktop pass and the link checker.
	UserAgent string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit path of the configuration file.
	// Empty means search the default locations.
	ConfigFilePath string

	// Profile is the site profile in effect for this run. It starts as
	// DefaultProfile() and is replaced by the merged file profile when a
	// configuration file is loaded.
	Profile Profile
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		SmokeTimeout:    DefaultSmokeTimeout,
		LinkTimeout:     DefaultLinkTimeout,
		MaxPages:        DefaultMaxPages,
		MaxLinks:        DefaultMaxLinks,
		DiscoveryDepth:  DefaultDiscoveryDepth,
		LinkConcurrency: DefaultLinkConcurrency,
		LinkCheckDelay:  DefaultLinkCheckDelay,
		Engine:          EngineRod,
		UserAgent:       DefaultUserAgent,
		Profile:         DefaultProfile(),
	}
}

// XDGDataDir returns the XDG data directory for uxaudit.
// On Linux: ~/.local/share/uxaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for uxaudit.
// On Linux: ~/.config/uxaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SiteURL parses Site. It is only meaningful after Validate succeeded.
func (c *Config) SiteURL() *url.URL {
	u, err := url.Parse(c.Site)
	if err != nil {
		return &url.URL{}
	}
	return u
}

// SiteHost returns the host name of Site, without port.
func (c *Config) SiteHost() string {
	return c.SiteURL().Hostname()
}

// BaseURL returns Site without a trailing slash so that paths can be
// appended to it.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Site, "/")
}

// ResolvedOutputDir returns OutputDir, or the per-host XDG data directory
// when OutputDir is empty.
func (c *Config) ResolvedOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	host := c.SiteHost()
	if host == "" {
		host = "default"
	}
	return filepath.Join(XDGDataDir(), host)
}

// ScreenshotDir returns the directory screenshots are written to.
func (c *Config) ScreenshotDir() string {
	return filepath.Join(c.ResolvedOutputDir(), ScreenshotDirName)
}

// ReportPath returns the path of the Markdown report.
func (c *Config) ReportPath() string {
	return filepath.Join(c.ResolvedOutputDir(), ReportFileName)
}

// RawResultsPath returns the path of the JSON dump. It sits next to the
// screenshots.
func (c *Config) RawResultsPath() string {
	return filepath.Join(c.ScreenshotDir(), RawResultsFileName)
}

// TranscriptPath returns the path of the smoke-test transcript.
func (c *Config) TranscriptPath() string {
	return filepath.Join(c.ResolvedOutputDir(), TranscriptFileName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found, as a sentinel error that callers
// can match with errors.Is.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Site) == "" {
		return ErrNoTarget
	}

	u, err := url.Parse(c.Site)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSiteURL
	}

	if c.Timeout <= 0 || c.SmokeTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.LinkTimeout <= 0 {
		return ErrInvalidLinkTimeout
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.MaxLinks < 0 {
		return ErrInvalidMaxLinks
	}

	if c.DiscoveryDepth < 0 {
		return ErrInvalidDiscoveryDepth
	}

	if c.LinkConcurrency <= 0 {
		return ErrInvalidLinkConcurrency
	}

	if c.LinkCheckDelay < 0 {
		return ErrInvalidLinkCheckDelay
	}

	if c.Engine != EngineRod && c.Engine != EngineHTTP {
		return ErrUnknownEngine
	}

	return c.Profile.Validate()
}
