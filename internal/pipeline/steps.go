package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/uxaudit/internal/browser"
	"github.com/nao1215/uxaudit/internal/config"
	"github.com/nao1215/uxaudit/internal/inspect"
	"github.com/nao1215/uxaudit/internal/linkcheck"
	"github.com/nao1215/uxaudit/internal/model"
)

// DetailedPassStep visits the seed pages and the same-site pages
// discovered from their links at the detailed viewport, collecting SEO,
// accessibility and console data for each page.
type DetailedPassStep struct {
	session *Session
	visitor *Visitor

	seeds    []config.SeedPage
	maxPages int
	depth    int
	ignore   func(path string) bool

	logger *slog.Logger
}

// DetailedPassStepOption configures a DetailedPassStep.
type DetailedPassStepOption func(*DetailedPassStep)

// WithSeeds sets the pages visited before discovery.
func WithSeeds(seeds []config.SeedPage) DetailedPassStepOption {
	return func(s *DetailedPassStep) {
		s.seeds = seeds
	}
}

// WithMaxPages caps the number of discovered pages. Seeds do not count.
func WithMaxPages(n int) DetailedPassStepOption {
	return func(s *DetailedPassStep) {
		s.maxPages = n
	}
}

// WithDiscoveryDepth sets how many link hops from the seeds are followed.
// 0 disables discovery.
func WithDiscoveryDepth(depth int) DetailedPassStepOption {
	return func(s *DetailedPassStep) {
		s.depth = depth
	}
}

// WithIgnore skips discovered paths for which ignore returns true.
func WithIgnore(ignore func(path string) bool) DetailedPassStepOption {
	return func(s *DetailedPassStep) {
		s.ignore = ignore
	}
}

// WithDetailedPassLogger sets a custom logger for the step.
func WithDetailedPassLogger(logger *slog.Logger) DetailedPassStepOption {
	return func(s *DetailedPassStep) {
		s.logger = logger
	}
}

// NewDetailedPassStep creates the first viewport pass.
func NewDetailedPassStep(session *Session, visitor *Visitor, opts ...DetailedPassStepOption) *DetailedPassStep {
	s := &DetailedPassStep{
		session:  session,
		visitor:  visitor,
		seeds:    config.DefaultProfile().Seeds(),
		maxPages: config.DefaultMaxPages,
		depth:    config.DefaultDiscoveryDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DetailedPassStep) Name() string {
	return s.session.Viewport().Name + "_pass"
}

// Do executes the detailed pass.
func (s *DetailedPassStep) Do(ctx context.Context, report *model.AuditReport) error {
	site, err := url.Parse(report.Site)
	if err != nil {
		return fmt.Errorf("parse site url: %w", err)
	}

	tab, err := s.session.Tab(ctx)
	if err != nil {
		return err
	}
	vp := s.session.Viewport()

	excluded := make([]string, 0, len(s.seeds))
	level := make([]inspect.Target, 0, len(s.seeds))
	for _, seed := range s.seeds {
		excluded = append(excluded, seed.Path)
		level = append(level, inspect.Target{
			Label: seed.Label,
			URL:   strings.TrimSuffix(report.Site, "/") + seed.Path,
			Path:  seed.Path,
		})
	}

	discoverOpts := []inspect.DiscovererOption{inspect.WithExcludedPaths(excluded...)}
	if s.ignore != nil {
		discoverOpts = append(discoverOpts, inspect.WithIgnore(s.ignore))
	}
	limit := s.maxPages
	if s.depth <= 0 {
		limit = 0
	}
	discoverer := inspect.NewDiscoverer(site, limit, discoverOpts...)

	for hop := 0; len(level) > 0; hop++ {
		next := make([]inspect.Target, 0)
		for _, target := range level {
			if err := ctx.Err(); err != nil {
				return err
			}

			visit := s.visitor.Visit(ctx, tab, vp, target.Label, target.URL, true)
			report.AddVisit(visit.Record)
			if visit.Audit == nil {
				continue
			}
			report.AddPageAudit(visit.Audit)
			report.AddLinks(visit.Links)

			if hop < s.depth {
				next = append(next, discoverer.Add(visit.Links)...)
			}
		}
		if len(next) > 0 {
			s.logger.Info("discovered pages", "count", len(next), "hop", hop+1)
		}
		level = next
	}

	return nil
}

// LinkCheckStep checks the links collected by the detailed pass.
type LinkCheckStep struct {
	checker *linkcheck.Checker
	logger  *slog.Logger
}

// NewLinkCheckStep creates a link check step.
func NewLinkCheckStep(checker *linkcheck.Checker, logger *slog.Logger) *LinkCheckStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkCheckStep{checker: checker, logger: logger}
}

// Name returns the step name.
func (s *LinkCheckStep) Name() string {
	return "link_check"
}

// Do executes the link check.
func (s *LinkCheckStep) Do(ctx context.Context, report *model.AuditReport) error {
	broken, err := s.checker.Check(ctx, report.Links)
	report.BrokenLinks = append(report.BrokenLinks, broken...)
	if err != nil {
		return fmt.Errorf("check links: %w", err)
	}
	s.logger.Info("links checked", "broken", len(broken))
	return nil
}

// CardProbeStep clicks the card-like elements of the homepage one by one,
// reloading the homepage before each click.
type CardProbeStep struct {
	session  *Session
	visitor  *Visitor
	selector string
	minSize  float64
	maxCards int
	logger   *slog.Logger
}

// NewCardProbeStep creates a card probe. selector is a selector group such
// as config.Profile.CardSelector returns.
func NewCardProbeStep(session *Session, visitor *Visitor, selector string, minSize float64, maxCards int, logger *slog.Logger) *CardProbeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardProbeStep{
		session:  session,
		visitor:  visitor,
		selector: selector,
		minSize:  minSize,
		maxCards: maxCards,
		logger:   logger,
	}
}

// Name returns the step name.
func (s *CardProbeStep) Name() string {
	return "card_probe"
}

// Do executes the card probe.
func (s *CardProbeStep) Do(ctx context.Context, report *model.AuditReport) error {
	tab, err := s.session.Tab(ctx)
	if err != nil {
		return err
	}
	home := strings.TrimSuffix(report.Site, "/") + "/"

	if _, err := s.visitor.navigate(ctx, tab, home); err != nil {
		s.logger.Warn("card probe skipped, homepage did not load", "error", err)
		return nil
	}
	cards, err := tab.CardCandidates(ctx, s.selector, s.minSize)
	if err != nil {
		s.logger.Warn("card probe skipped, candidates not found", "error", err)
		return nil
	}
	report.CardsFound = cards
	s.logger.Info("card candidates found", "count", len(cards))

	for i := range min(len(cards), s.maxCards) {
		if err := ctx.Err(); err != nil {
			return err
		}
		interaction := model.CardInteraction{
			Index: i,
			Text:  model.Truncate(cards[i].Text, model.MaxCardInteractionTextLen),
		}
		if err := s.click(ctx, tab, home, i, &interaction); err != nil {
			s.logger.Warn("card click failed", "index", i, "error", err)
			interaction.Error = err.Error()
		}
		report.CardInteractions = append(report.CardInteractions, interaction)
	}
	return nil
}

func (s *CardProbeStep) click(ctx context.Context, tab browser.Tab, home string, i int, interaction *model.CardInteraction) error {
	if _, err := s.visitor.navigate(ctx, tab, home); err != nil {
		return err
	}

	clickCtx, cancel := context.WithTimeout(ctx, s.visitor.timeout)
	err := tab.ClickCandidate(clickCtx, s.selector, s.minSize, i)
	cancel()
	if err != nil {
		return err
	}

	interaction.ResultURL = tab.URL()
	interaction.Screenshot = s.visitor.Screenshot(ctx, tab, fmt.Sprintf("card_%d_click.png", i))
	return nil
}

// AuthProbeStep inspects the auth page and types placeholder credentials
// into its email and password fields. The form is never submitted.
type AuthProbeStep struct {
	session     *Session
	visitor     *Visitor
	path        string
	credentials config.Credentials
	logger      *slog.Logger
}

// NewAuthProbeStep creates an auth probe for the page at path.
func NewAuthProbeStep(session *Session, visitor *Visitor, path string, credentials config.Credentials, logger *slog.Logger) *AuthProbeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthProbeStep{
		session:     session,
		visitor:     visitor,
		path:        path,
		credentials: credentials,
		logger:      logger,
	}
}

// Name returns the step name.
func (s *AuthProbeStep) Name() string {
	return "auth_probe"
}

// Do executes the auth probe.
func (s *AuthProbeStep) Do(ctx context.Context, report *model.AuditReport) error {
	tab, err := s.session.Tab(ctx)
	if err != nil {
		return err
	}

	probe := &model.AuthProbe{
		URL:     strings.TrimSuffix(report.Site, "/") + s.path,
		Inputs:  make([]model.AuthInput, 0),
		Buttons: make([]model.AuthButton, 0),
		Fills:   make([]model.FillResult, 0),
	}
	report.AuthProbe = probe

	resp, err := s.visitor.navigate(ctx, tab, probe.URL)
	if err != nil {
		s.logger.Warn("auth probe failed", "url", probe.URL, "error", err)
		probe.Error = err.Error()
		return nil
	}
	probe.URL = resp.URL

	if shot := s.visitor.Screenshot(ctx, tab, "auth_initial.png"); shot != "" {
		probe.Screenshots = append(probe.Screenshots, shot)
	}

	if html, err := tab.HTML(ctx); err != nil {
		s.logger.Warn("failed to read auth page HTML", "error", err)
	} else if doc, err := inspect.ParseString(resp.URL, html); err == nil {
		probe.Inputs = doc.AuthInputs()
		probe.Buttons = doc.AuthButtons()
	}

	s.fill(ctx, tab, probe, "email", inspect.EmailInputSelector, s.credentials.Email)
	s.fill(ctx, tab, probe, "password", inspect.PasswordInputSelector, s.credentials.Password)

	if shot := s.visitor.Screenshot(ctx, tab, "auth_filled.png"); shot != "" {
		probe.Screenshots = append(probe.Screenshots, shot)
	}

	s.logger.Info("auth page probed",
		"inputs", len(probe.Inputs),
		"buttons", len(probe.Buttons),
		"fills", len(probe.Fills),
	)
	return nil
}

// fill types value into the field matched by selector. A page without
// such a field gets no fill result.
func (s *AuthProbeStep) fill(ctx context.Context, tab browser.Tab, probe *model.AuthProbe, field, selector, value string) {
	ctx, cancel := context.WithTimeout(ctx, s.visitor.timeout)
	defer cancel()

	err := tab.Fill(ctx, selector, value)
	switch {
	case err == nil:
		probe.Fills = append(probe.Fills, model.FillResult{Field: field, Result: model.FillSucceeded})
	case browser.IsCode(err, browser.CodeNotFound):
		s.logger.Debug("auth field not present", "field", field)
	default:
		s.logger.Warn("auth field fill failed", "field", field, "error", err)
		probe.Fills = append(probe.Fills, model.FillResult{Field: field, Result: "error: " + err.Error()})
	}
}

// ViewportPassStep revisits every page of the detailed pass at another
// viewport, in a fresh browser context, recording status, load time and a
// screenshot per page.
type ViewportPassStep struct {
	session  *Session
	visitor  *Visitor
	viewport model.Viewport
	logger   *slog.Logger
}

// NewViewportPassStep creates a pass at vp.
func NewViewportPassStep(session *Session, visitor *Visitor, vp model.Viewport, logger *slog.Logger) *ViewportPassStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewportPassStep{
		session:  session,
		visitor:  visitor,
		viewport: vp,
		logger:   logger,
	}
}

// Name returns the step name.
func (s *ViewportPassStep) Name() string {
	return s.viewport.Name + "_pass"
}

// Do executes the viewport pass.
func (s *ViewportPassStep) Do(ctx context.Context, report *model.AuditReport) error {
	if err := s.session.Release(); err != nil {
		s.logger.Warn("failed to close previous tab", "error", err)
	}

	pages := report.VisitsFor(s.session.Viewport().Name)
	if len(pages) == 0 {
		return nil
	}

	tab, err := s.session.NewTab(ctx, s.viewport)
	if err != nil {
		return err
	}
	defer func() {
		if err := tab.Close(); err != nil {
			s.logger.Warn("failed to close tab", "viewport", s.viewport.Name, "error", err)
		}
	}()

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		visit := s.visitor.Visit(ctx, tab, s.viewport, page.Label, page.URL, false)
		report.AddVisit(visit.Record)
	}
	return nil
}

// DefaultPipeline creates a pipeline with all audit steps configured from
// cfg, in the order: detailed pass, link check, card probe, auth probe, then
// one pass per remaining viewport.
func DefaultPipeline(session *Session, cfg *config.Config, pipelineOpts []Option, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := New(pipelineOpts...)
	profile := cfg.Profile

	visitor := NewVisitor(cfg.ScreenshotDir(),
		WithVisitTimeout(cfg.Timeout),
		WithVisitLogger(logger),
	)

	checker := linkcheck.New(
		linkcheck.WithTimeout(cfg.LinkTimeout),
		linkcheck.WithMaxLinks(cfg.MaxLinks),
		linkcheck.WithConcurrency(cfg.LinkConcurrency),
		linkcheck.WithDelay(cfg.LinkCheckDelay),
		linkcheck.WithUserAgent(cfg.UserAgent),
		linkcheck.WithSiteHeaders(cfg.Site, linkHeaders(profile)),
		linkcheck.WithLogger(logger),
	)

	p.AddSteps(
		NewDetailedPassStep(session, visitor,
			WithSeeds(profile.Seeds()),
			WithMaxPages(cfg.MaxPages),
			WithDiscoveryDepth(cfg.DiscoveryDepth),
			WithIgnore(profile.Ignored),
			WithDetailedPassLogger(logger),
		),
		NewLinkCheckStep(checker, logger),
		NewCardProbeStep(session, visitor, profile.CardSelector(), profile.MinCardSize, profile.MaxCards, logger),
		NewAuthProbeStep(session, visitor, authPath(profile), profile.Credentials, logger),
	)

	if len(profile.Viewports) > 1 {
		for _, vp := range profile.Viewports[1:] {
			p.AddStep(NewViewportPassStep(session, visitor, vp, logger))
		}
	}

	return p
}

func authPath(p config.Profile) string {
	if p.AuthPath != "" {
		return p.AuthPath
	}
	return config.DefaultAuthPath
}

func linkHeaders(p config.Profile) map[string]string {
	headers := make(map[string]string, len(p.Headers)+1)
	for k, v := range p.Headers {
		headers[k] = v
	}
	if p.Cookie != "" {
		headers["Cookie"] = p.Cookie
	}
	return headers
}
