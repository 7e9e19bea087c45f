package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/uxaudit/internal/browser"
	"github.com/nao1215/uxaudit/internal/model"
)

// Session holds the browser of one audit run and the tab of its detailed
// pass. The detailed pass, the link check and both probes share that tab;
// later viewport passes release it and open their own.
type Session struct {
	browser  browser.Browser
	viewport model.Viewport
	logger   *slog.Logger

	tab browser.Tab
}

// NewSession creates a session whose detailed pass runs at vp.
func NewSession(b browser.Browser, vp model.Viewport, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		browser:  b,
		viewport: vp,
		logger:   logger,
	}
}

// Viewport returns the viewport of the detailed pass.
func (s *Session) Viewport() model.Viewport {
	return s.viewport
}

// Tab returns the tab of the detailed pass, opening it on first use.
func (s *Session) Tab(ctx context.Context) (browser.Tab, error) {
	if s.tab != nil {
		return s.tab, nil
	}
	tab, err := s.browser.NewTab(ctx, s.viewport)
	if err != nil {
		return nil, fmt.Errorf("open %s tab: %w", s.viewport.Name, err)
	}
	s.logger.Debug("tab opened", "viewport", s.viewport.Name, "engine", s.browser.Name())
	s.tab = tab
	return tab, nil
}

// NewTab opens a tab in a fresh browser context for another viewport pass.
func (s *Session) NewTab(ctx context.Context, vp model.Viewport) (browser.Tab, error) {
	tab, err := s.browser.NewTab(ctx, vp)
	if err != nil {
		return nil, fmt.Errorf("open %s tab: %w", vp.Name, err)
	}
	s.logger.Debug("tab opened", "viewport", vp.Name, "engine", s.browser.Name())
	return tab, nil
}

// Release closes the tab of the detailed pass, if open.
func (s *Session) Release() error {
	if s.tab == nil {
		return nil
	}
	err := s.tab.Close()
	s.tab = nil
	if err != nil {
		return fmt.Errorf("close %s tab: %w", s.viewport.Name, err)
	}
	return nil
}
