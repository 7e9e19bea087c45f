package main

import (
	"fmt"
	"os"

	"github.com/nao1215/uxaudit/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for uxaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uxaudit",
		Short: "UX, SEO and accessibility audit of a website",
		Long: `uxaudit drives a headless browser through a website and reports on its
user experience, search-engine metadata and accessibility.

The audit command visits the seed and discovered pages at a desktop and a
mobile viewport, checks the links it found, clicks the card-like elements
of the homepage and probes the auth form. The smoke command runs eight
quick checks and writes a plain text transcript.

By default a headless Chromium is used. Use --engine http to fetch pages
over plain HTTP instead (no JavaScript, no screenshots).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Log progress and debug records to stderr")
	flags.String("log-format", string(log.FormatText), "Log record format: text or json")

	cmd.AddCommand(
		NewAuditCmd(),
		NewSmokeCmd(),
		NewInitCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
