package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/uxaudit/internal/browser"
	"github.com/nao1215/uxaudit/internal/config"
	"github.com/nao1215/uxaudit/internal/log"
	"github.com/nao1215/uxaudit/internal/model"
	"github.com/nao1215/uxaudit/internal/pipeline"
	"github.com/nao1215/uxaudit/internal/report"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <site-url>",
		Short: "Run a full UX, SEO and accessibility audit of a website",
		Long: `Audit visits a website at a desktop and a mobile viewport and writes a
Markdown report together with the raw results as JSON.

The desktop pass visits the seed pages (homepage and /auth by default) and
the same-site pages linked from them, collecting for each page:
- HTTP status, load time and a full-page screenshot
- Title, meta description and Open Graph tags
- Images without alt text, broken images, headings and ARIA landmarks
- Console errors and warnings

It then checks the discovered links for HTTP errors, clicks the card-like
elements of the homepage and types placeholder credentials into the auth
form (the form is never submitted). The mobile pass revisits every page.

Examples:
  # Audit a site with a headless Chromium
  uxaudit audit https://example.com

  # Audit without a browser (no JavaScript, no screenshots)
  uxaudit audit --engine http https://example.com

  # Write the report to a specific directory
  uxaudit audit -o ./audit https://example.com

  # Run inside a container as root
  uxaudit audit --no-sandbox https://example.com

Configuration file (.uxaudit) example:
  sites:
    example.com:
      seedPages:
        - label: homepage
          path: /
        - label: pricing
          path: /pricing
      cardSelectors:
        - '[class*="tile"]'`,
		Args: cobra.ExactArgs(1),
		RunE: runAuditCmd,
	}

	addCommonFlags(cmd)

	// Discovery flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of discovered pages visited per viewport (0 disables discovery)")
	cmd.Flags().IntP("depth", "d", config.DefaultDiscoveryDepth,
		"Number of link hops followed from the seed pages")

	// Link check flags
	cmd.Flags().Int("max-links", config.DefaultMaxLinks,
		"Maximum number of distinct links checked")
	cmd.Flags().Int("link-concurrency", config.DefaultLinkConcurrency,
		"Number of link checks in flight")
	cmd.Flags().Duration("link-delay", config.DefaultLinkCheckDelay,
		"Minimum interval between two link checks (0 for no limit)")
	cmd.Flags().Duration("link-timeout", config.DefaultLinkTimeout,
		"Timeout for each link check request")

	return cmd
}

// addCommonFlags registers the flags shared by audit and smoke.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-dir", "o", "",
		"Directory for screenshots and reports (default: $XDG_DATA_HOME/uxaudit/<host>)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page navigation")
	cmd.Flags().StringP("engine", "e", config.EngineRod,
		"Page engine: rod (headless Chromium) or http (plain HTTP)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .uxaudit in current or home directory)")

	// Browser flags
	cmd.Flags().String("browser-bin", "",
		"Path of the Chromium binary (default: locate or download one)")
	cmd.Flags().Bool("no-sandbox", false,
		"Disable the Chromium sandbox (required when running as root in containers)")
	cmd.Flags().Bool("stealth", false,
		"Mask headless browser fingerprints")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User agent of the desktop pass and the link checker")
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := applyAuditFlags(cmd, cfg); err != nil {
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

	return runAudit(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getLogFormat retrieves the log-format flag from the command or its parent.
func getLogFormat(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return string(log.FormatText)
		}
	}
	return format
}

// newLogger creates the masked stderr logger selected by --log-format.
func newLogger(cmd *cobra.Command, verbose bool) (*slog.Logger, error) {
	format, err := log.ParseFormat(getLogFormat(cmd))
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return log.New(cmd.ErrOrStderr(), format, verbose), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, writing partial results...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// buildConfig creates a Config from the flags shared by audit and smoke and
// loads the site profile from the configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	if len(args) > 0 {
		cfg.Site = args[0]
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Engine, err = cmd.Flags().GetString("engine")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.BrowserBin, err = cmd.Flags().GetString("browser-bin")
	if err != nil {
		return nil, err
	}

	cfg.NoSandbox, err = cmd.Flags().GetBool("no-sandbox")
	if err != nil {
		return nil, err
	}

	cfg.Stealth, err = cmd.Flags().GetBool("stealth")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// A missing file is only an error when its path was given explicitly.
	if err := cfg.ApplyConfigFile(); err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
		}
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	return cfg, nil
}

// applyAuditFlags reads the discovery and link check flags of the audit
// command into cfg.
func applyAuditFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return err
	}

	cfg.DiscoveryDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return err
	}

	cfg.MaxLinks, err = cmd.Flags().GetInt("max-links")
	if err != nil {
		return err
	}

	cfg.LinkConcurrency, err = cmd.Flags().GetInt("link-concurrency")
	if err != nil {
		return err
	}

	cfg.LinkCheckDelay, err = cmd.Flags().GetDuration("link-delay")
	if err != nil {
		return err
	}

	cfg.LinkTimeout, err = cmd.Flags().GetDuration("link-timeout")
	if err != nil {
		return err
	}

	return nil
}

// openBrowser starts the engine selected by cfg.Engine.
func openBrowser(cfg *config.Config, logger *slog.Logger) (browser.Browser, error) {
	opts := browser.Options{
		Site:      cfg.Site,
		Headers:   cfg.Profile.Headers,
		Cookie:    cfg.Profile.Cookie,
		UserAgent: cfg.UserAgent,
	}

	if cfg.Engine == config.EngineHTTP {
		return browser.NewHTTPBrowser(opts), nil
	}

	b, err := browser.LaunchRod(browser.RodOptions{
		Options:   opts,
		Bin:       cfg.BrowserBin,
		NoSandbox: cfg.NoSandbox,
		Stealth:   cfg.Stealth,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return b, nil
}

// runAudit executes the audit and writes the report files. An interrupted
// run still writes what was collected and then returns an error.
func runAudit(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting audit",
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

	viewports := cfg.Profile.Viewports
	if len(viewports) == 0 {
		viewports = []model.Viewport{model.DesktopViewport, model.MobileViewport}
		cfg.Profile.Viewports = viewports
	}

	session := pipeline.NewSession(b, viewports[0], logger)
	defer func() {
		if err := session.Release(); err != nil {
			logger.Debug("failed to release session", "error", err)
		}
	}()

	p := pipeline.DefaultPipeline(session, cfg, []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	}, logger)

	result := model.NewAuditReport(cfg.Site)

	fmt.Fprintf(out, "Auditing %s...\n", cfg.Site)
	startTime := time.Now()

	runErr := p.Execute(ctx, result)
	result.Finalize()

	fmt.Fprintf(out, "Audit finished in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err := writeAuditReports(cfg, result, viewports[0].Name); err != nil {
		return err
	}

	printSummary(out, cfg, result, viewports)

	if runErr != nil {
		return fmt.Errorf("audit interrupted: %w", runErr)
	}
	return nil
}

// writeAuditReports writes the Markdown report and the JSON dump.
func writeAuditReports(cfg *config.Config, result *model.AuditReport, perfViewport string) error {
	err := report.WriteFile(cfg.ReportPath(), func(w io.Writer) (int, error) {
		return report.NewMarkdownWriter(w,
			report.WithScreenshotDir(cfg.ScreenshotDir()),
			report.WithPerformanceViewport(perfViewport),
		).Write(result)
	})
	if err != nil {
		return err
	}

	return report.WriteFile(cfg.RawResultsPath(), func(w io.Writer) (int, error) {
		return report.NewJSONWriter(w, report.WithPrettyPrint()).Write(result)
	})
}

// printSummary prints the visits of each viewport pass and the output
// locations.
func printSummary(out io.Writer, cfg *config.Config, result *model.AuditReport, viewports []model.Viewport) {
	caser := cases.Title(language.English)

	for _, vp := range viewports {
		visits := result.VisitsFor(vp.Name)
		if len(visits) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n=== %s (%dx%d) ===\n", caser.String(vp.Name), vp.Width, vp.Height)
		for _, v := range visits {
			if v.Failed() {
				fmt.Fprintf(out, "  %s: FAIL %s\n", v.Label, v.Error)
				continue
			}
			fmt.Fprintf(out, "  %s: %s (%.2fs)\n", v.Label, v.StatusText(), v.LoadTime)
		}
	}

	fmt.Fprintf(out, "\nBroken links: %d\n", len(result.BrokenLinks))
	fmt.Fprintf(out, "Recommendations: %d\n", len(result.Recommendations))

	fmt.Fprintln(out, "\n✅ Audit complete!")
	fmt.Fprintf(out, "  Screenshots: %s/\n", cfg.ScreenshotDir())
	fmt.Fprintf(out, "  Report: %s\n", cfg.ReportPath())
}
