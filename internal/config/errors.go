package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Profile.Validate().
// Callers can use errors.Is() to tell them apart.
var (
	// ErrNoTarget is returned when no site URL is specified.
	ErrNoTarget = errors.New("no target specified: provide the site URL as an argument")

	// ErrInvalidSiteURL is returned when the site is not an absolute http(s) URL.
	ErrInvalidSiteURL = errors.New("invalid site URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when a navigation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidLinkTimeout is returned when the link check timeout is not positive.
	ErrInvalidLinkTimeout = errors.New("invalid link timeout: must be positive")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxLinks is returned when the link cap is negative.
	ErrInvalidMaxLinks = errors.New("invalid max links: must be non-negative")

	// ErrInvalidDiscoveryDepth is returned when the discovery depth is negative.
	ErrInvalidDiscoveryDepth = errors.New("invalid discovery depth: must be non-negative")

	// ErrInvalidLinkConcurrency is returned when the link check concurrency is not positive.
	ErrInvalidLinkConcurrency = errors.New("invalid link concurrency: must be positive")

	// ErrInvalidLinkCheckDelay is returned when the link check delay is negative.
	ErrInvalidLinkCheckDelay = errors.New("invalid link check delay: must be non-negative")

	// ErrUnknownEngine is returned when the engine is neither rod nor http.
	ErrUnknownEngine = errors.New("unknown engine: must be \"rod\" or \"http\"")

	// ErrInvalidSelector is returned when a card selector does not compile.
	ErrInvalidSelector = errors.New("invalid card selector")

	// ErrNoCardSelectors is returned when the card selector list is empty.
	ErrNoCardSelectors = errors.New("no card selectors: at least one selector is required")

	// ErrInvalidCardSize is returned when the minimum card size is negative.
	ErrInvalidCardSize = errors.New("invalid minimum card size: must be non-negative")

	// ErrInvalidMaxCards is returned when the card cap is negative.
	ErrInvalidMaxCards = errors.New("invalid max cards: must be non-negative")

	// ErrInvalidPath is returned when a seed or auth path is not site-relative.
	ErrInvalidPath = errors.New("invalid path: must start with \"/\"")

	// ErrInvalidViewport is returned when a viewport has no name or a
	// non-positive size.
	ErrInvalidViewport = errors.New("invalid viewport: name, width and height are required")

	// ErrDuplicateViewport is returned when two viewports share a name.
	ErrDuplicateViewport = errors.New("duplicate viewport name")

	// ErrDuplicateLabel is returned when two seed pages share a label.
	ErrDuplicateLabel = errors.New("duplicate seed page label")
)
