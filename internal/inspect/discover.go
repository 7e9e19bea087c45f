package inspect

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/uxaudit/internal/model"
)

// Target is a same-site page queued for a visit.
type Target struct {
	// Label is the logical page name, e.g. "page_pricing".
	Label string

	// URL is the href the page was discovered through.
	URL string

	// Path is the normalized path used for deduplication.
	Path string
}

// Discoverer turns observed anchors into a deduplicated queue of same-site
// pages. A Discoverer belongs to a single run and is not safe for
// concurrent use.
type Discoverer struct {
	site   *url.URL
	limit  int
	seen   map[string]struct{}
	ignore func(path string) bool
	found  int
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithIgnore skips paths for which ignore returns true.
func WithIgnore(ignore func(path string) bool) DiscovererOption {
	return func(d *Discoverer) {
		d.ignore = ignore
	}
}

// WithExcludedPaths marks paths as already known, typically the seed pages.
func WithExcludedPaths(paths ...string) DiscovererOption {
	return func(d *Discoverer) {
		for _, p := range paths {
			d.seen[NormalizePath(p)] = struct{}{}
		}
	}
}

// NewDiscoverer creates a Discoverer for the given site. At most limit
// targets are returned over the Discoverer's lifetime; limit <= 0 disables
// discovery.
func NewDiscoverer(site *url.URL, limit int, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		site:  site,
		limit: limit,
		seen:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add returns the new same-site pages among links, in link order. A page
// is new when its normalized path is non-empty, not "/", and was neither
// excluded nor returned before.
func (d *Discoverer) Add(links []model.Link) []Target {
	targets := make([]Target, 0)
	for _, link := range links {
		if d.found >= d.limit {
			break
		}

		u, err := url.Parse(link.Href)
		if err != nil || !SameHost(d.site, u) {
			continue
		}

		p := NormalizePath(u.Path)
		if p == "" {
			continue
		}
		if _, dup := d.seen[p]; dup {
			continue
		}
		if d.ignore != nil && d.ignore(p) {
			continue
		}

		d.seen[p] = struct{}{}
		d.found++
		targets = append(targets, Target{
			Label: PageLabel(p),
			URL:   link.Href,
			Path:  p,
		})
	}
	return targets
}

// Found returns the number of targets returned so far.
func (d *Discoverer) Found() int {
	return d.found
}

// SameHost reports whether u points at the site's host. The bare host and
// its "www." form count as the same site; other subdomains do not, since
// discovered pages are keyed by path alone. Relative URLs (no host) are not
// considered: discovery runs on resolved hrefs.
func SameHost(site, u *url.URL) bool {
	if u.Host == "" {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(bareHost(u.Hostname()), bareHost(site.Hostname()))
}

func bareHost(host string) string {
	if len(host) > 4 && strings.EqualFold(host[:4], "www.") {
		return host[4:]
	}
	return host
}

// NormalizePath strips trailing slashes. The root path normalizes to "".
func NormalizePath(p string) string {
	return strings.TrimRight(p, "/")
}

// PageLabel builds the label of a discovered page from its path:
// "/blog/post" becomes "page_blog_post".
func PageLabel(p string) string {
	return "page_" + strings.Trim(strings.ReplaceAll(p, "/", "_"), "_")
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SafeLabel replaces every character outside [a-zA-Z0-9_-] with "_" so
// the label can be used in a file name.
func SafeLabel(label string) string {
	return unsafeChars.ReplaceAllString(label, "_")
}

// Slug turns link text into a short file name part: lower case, spaces
// replaced by "-", at most 20 runes, unsafe characters replaced by "_".
func Slug(text string) string {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), " ", "-")
	return SafeLabel(model.Truncate(s, 20))
}
