package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/uxaudit/internal/config"
	"github.com/nao1215/uxaudit/internal/model"
	"github.com/nao1215/uxaudit/internal/report"
	"github.com/nao1215/uxaudit/internal/smoke"
	"github.com/spf13/cobra"
)

// NewSmokeCmd creates the smoke command.
func NewSmokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke <site-url>",
		Short: "Run a quick smoke test of a website",
		Long: `Smoke runs eight quick checks against a website and writes a plain text
transcript, printing each line as it is produced:

  1. Homepage load (status, title, screenshot)
  2. Key UI elements (navigation, buttons, links, images, headings)
  3. Navigation links
  4. Internal pages linked from the navigation
  5. Auth elements (Sign In, Sign Up, Login, Register, ...)
  6. Mobile viewport screenshot
  7. Console errors and warnings
  8. Homepage load time

A failing check is logged and the next one runs.

Examples:
  # Smoke test a site
  uxaudit smoke https://example.com

  # Give slow secondary pages more time
  uxaudit smoke --page-timeout 30s https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runSmokeCmd,
	}

	addCommonFlags(cmd)

	cmd.Flags().Duration("page-timeout", config.DefaultSmokeTimeout,
		"Timeout for each navigation after the homepage has loaded")

	return cmd
}

// runSmokeCmd executes the smoke command.
func runSmokeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	cfg.SmokeTimeout, err = cmd.Flags().GetDuration("page-timeout")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cmd, cfg.Verbose)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runSmoke(ctx, cfg, cmd.OutOrStdout(), logger)
}

// smokeViewports returns the desktop and mobile viewports of the profile.
// The first profile viewport is the desktop one, the second the mobile one.
func smokeViewports(p config.Profile) (model.Viewport, model.Viewport) {
	desktop, mobile := model.DesktopViewport, model.MobileViewport
	if len(p.Viewports) > 0 {
		desktop = p.Viewports[0]
	}
	if len(p.Viewports) > 1 {
		mobile = p.Viewports[1]
	}
	return desktop, mobile
}

// runSmoke executes the smoke test, writes the transcript file and prints
// the full transcript.
func runSmoke(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting smoke test",
		"site", cfg.Site,
		"engine", cfg.Engine,
		"outputDir", cfg.ResolvedOutputDir(),
	)

	if err := os.MkdirAll(cfg.ScreenshotDir(), 0750); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	b, err := openBrowser(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("failed to close browser", "error", err)
		}
	}()

	desktop, mobile := smokeViewports(cfg.Profile)
	runner := smoke.NewRunner(b, cfg.Site, cfg.ScreenshotDir(),
		smoke.WithHomeTimeout(cfg.Timeout),
		smoke.WithPageTimeout(cfg.SmokeTimeout),
		smoke.WithViewports(desktop, mobile),
		smoke.WithOutput(out),
		smoke.WithLogger(logger),
	)

	transcript, runErr := runner.Run(ctx)
	if transcript == nil {
		return fmt.Errorf("smoke test failed: %w", runErr)
	}

	err = report.WriteFile(cfg.TranscriptPath(), func(w io.Writer) (int, error) {
		return report.NewTranscriptWriter(w).Write(transcript)
	})
	if err != nil {
		return err
	}

	if _, err := report.NewTranscriptWriter(out, report.WithBanner(true)).Write(transcript); err != nil {
		return fmt.Errorf("failed to print transcript: %w", err)
	}
	fmt.Fprintf(out, "\nTranscript written to %s\n", cfg.TranscriptPath())

	if runErr != nil {
		return fmt.Errorf("smoke test interrupted: %w", runErr)
	}
	return nil
}
