package config

import (
	"fmt"
	"maps"
	"path"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/nao1215/uxaudit/internal/model"
)

// Profile defaults. They describe a typical single-page marketing site
// with a card grid on the homepage and a sign-in page at /auth.
const (
	// DefaultAuthPath is the path of the page probed for a login form.
	DefaultAuthPath = "/auth"

	// DefaultMinCardSize is the minimum width and height, in CSS pixels,
	// of an element to count as a card candidate.
	DefaultMinCardSize = 50

	// DefaultMaxCards is the number of card candidates clicked.
	DefaultMaxCards = 10

	// DefaultEmail is typed into the first email-like field of the auth page.
	DefaultEmail = "test@example.com"

	// DefaultPassword is typed into the first password field of the auth page.
	DefaultPassword = "TestPassword123!" //nolint:gosec // placeholder, never submitted

	// HomepageLabel is the label of the site root.
	HomepageLabel = "homepage"

	// AuthLabel is the label of the auth page.
	AuthLabel = "auth"
)

// DefaultCardSelectors is the selector list matching card-like elements.
var DefaultCardSelectors = []string{
	`[class*="card"]`,
	`[class*="era"]`,
	`[class*="Card"]`,
	`button`,
	`[role="button"]`,
}

// SeedPage is a page visited unconditionally at the start of each pass.
type SeedPage struct {
	// Label names the page in the report, e.g. "pricing".
	Label string `yaml:"label"`

	// Path is the site-relative path, e.g. "/pricing".
	Path string `yaml:"path"`
}

// Credentials are the placeholder values typed into the auth form.
// They are never submitted.
type Credentials struct {
	Email    string `yaml:"email,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Profile holds site-specific audit settings.
type Profile struct {
	// SeedPages are visited before discovered pages. When empty, the
	// homepage and AuthPath are used.
	SeedPages []SeedPage `yaml:"seedPages,omitempty"`

	// AuthPath is the path of the auth page.
	AuthPath string `yaml:"authPath,omitempty"`

	// CardSelectors match card candidates on the homepage.
	CardSelectors []string `yaml:"cardSelectors,omitempty"`

	// MinCardSize is the minimum width and height of a card candidate.
	MinCardSize float64 `yaml:"minCardSize,omitempty"`

	// MaxCards is the number of card candidates clicked.
	MaxCards int `yaml:"maxCards,omitempty"`

	// Credentials are typed into the auth form.
	Credentials Credentials `yaml:"credentials,omitempty"`

	// Viewports are the passes of a run, in order. The first one is the
	// detailed pass.
	Viewports []model.Viewport `yaml:"viewports,omitempty"`

	// Cookie is sent with every request, e.g. "name=value; other=value".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are path.Match patterns of discovered paths to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() Profile {
	return Profile{
		AuthPath:      DefaultAuthPath,
		CardSelectors: append([]string(nil), DefaultCardSelectors...),
		MinCardSize:   DefaultMinCardSize,
		MaxCards:      DefaultMaxCards,
		Credentials: Credentials{
			Email:    DefaultEmail,
			Password: DefaultPassword,
		},
		Viewports: []model.Viewport{model.DesktopViewport, model.MobileViewport},
	}
}

// Seeds returns the seed pages in visit order.
func (p Profile) Seeds() []SeedPage {
	if len(p.SeedPages) > 0 {
		return p.SeedPages
	}
	authPath := p.AuthPath
	if authPath == "" {
		authPath = DefaultAuthPath
	}
	return []SeedPage{
		{Label: HomepageLabel, Path: "/"},
		{Label: AuthLabel, Path: authPath},
	}
}

// CardSelector returns the card selectors as a single selector group.
func (p Profile) CardSelector() string {
	return strings.Join(p.CardSelectors, ", ")
}

// Ignored reports whether a discovered path matches an ignore pattern.
func (p Profile) Ignored(urlPath string) bool {
	for _, pattern := range p.IgnorePatterns {
		if ok, err := path.Match(pattern, urlPath); err == nil && ok {
			return true
		}
	}
	return false
}

// Validate checks the profile and returns the first problem found.
// Card selectors are compiled so that a typo fails the run before the
// browser starts.
func (p Profile) Validate() error {
	if len(p.CardSelectors) == 0 {
		return ErrNoCardSelectors
	}
	for _, sel := range p.CardSelectors {
		if _, err := cascadia.Compile(sel); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidSelector, sel, err)
		}
	}

	if p.MinCardSize < 0 {
		return ErrInvalidCardSize
	}
	if p.MaxCards < 0 {
		return ErrInvalidMaxCards
	}

	if p.AuthPath != "" && !strings.HasPrefix(p.AuthPath, "/") {
		return fmt.Errorf("%w: auth path %q", ErrInvalidPath, p.AuthPath)
	}

	labels := make(map[string]struct{})
	for _, seed := range p.SeedPages {
		if !strings.HasPrefix(seed.Path, "/") {
			return fmt.Errorf("%w: seed page %q", ErrInvalidPath, seed.Path)
		}
		if _, dup := labels[seed.Label]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, seed.Label)
		}
		labels[seed.Label] = struct{}{}
	}

	names := make(map[string]struct{})
	for _, vp := range p.Viewports {
		if vp.Name == "" || vp.Width <= 0 || vp.Height <= 0 {
			return fmt.Errorf("%w: %+v", ErrInvalidViewport, vp)
		}
		if _, dup := names[vp.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateViewport, vp.Name)
		}
		names[vp.Name] = struct{}{}
	}

	for _, pattern := range p.IgnorePatterns {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// merge overlays the non-zero fields of over onto base.
// Headers are merged key by key; every other field is replaced.
func merge(base, over Profile) Profile {
	result := base

	if len(over.SeedPages) > 0 {
		result.SeedPages = over.SeedPages
	}
	if over.AuthPath != "" {
		result.AuthPath = over.AuthPath
	}
	if len(over.CardSelectors) > 0 {
		result.CardSelectors = over.CardSelectors
	}
	if over.MinCardSize != 0 {
		result.MinCardSize = over.MinCardSize
	}
	if over.MaxCards != 0 {
		result.MaxCards = over.MaxCards
	}
	if over.Credentials.Email != "" {
		result.Credentials.Email = over.Credentials.Email
	}
	if over.Credentials.Password != "" {
		result.Credentials.Password = over.Credentials.Password
	}
	if len(over.Viewports) > 0 {
		result.Viewports = over.Viewports
	}
	if over.Cookie != "" {
		result.Cookie = over.Cookie
	}
	if len(over.Headers) > 0 {
		headers := make(map[string]string, len(base.Headers)+len(over.Headers))
		maps.Copy(headers, base.Headers)
		maps.Copy(headers, over.Headers)
		result.Headers = headers
	}
	if len(over.IgnorePatterns) > 0 {
		result.IgnorePatterns = over.IgnorePatterns
	}

	return result
}

// File represents the structure of the .uxaudit configuration file.
type File struct {
	// Sites maps host names to their profiles, e.g. "example.com".
	Sites map[string]Profile `yaml:"sites,omitempty"`

	// Defaults is applied to every site before the site's own profile.
	Defaults Profile `yaml:"defaults,omitempty"`
}

// Profile returns the profile of the given host: the built-in defaults,
// overlaid with the file defaults, overlaid with the host's entry.
func (cf *File) Profile(host string) Profile {
	result := merge(DefaultProfile(), cf.Defaults)
	if site, ok := cf.Sites[host]; ok {
		result = merge(result, site)
	}
	return result
}
