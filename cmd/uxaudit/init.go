package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/uxaudit/internal/config"
	"github.com/spf13/cobra"
)

// configTemplate is the annotated configuration file written by init.
//
//go:embed templates/uxaudit.yaml
var configTemplate []byte

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated configuration file",
		Long: `Init writes an annotated .uxaudit configuration file.

The file holds the built-in defaults (card selectors, auth path, placeholder
credentials, viewports) under "defaults" and an example site profile with
seed pages and ignore patterns under "sites". Every option is documented in
place.

Examples:
  # Write .uxaudit in the current directory
  uxaudit init

  # Write the file somewhere else
  uxaudit init -o configs/staging.yaml

  # Replace an existing file
  uxaudit init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "Path of the configuration file to write")
	cmd.Flags().BoolP("force", "f", false, "Replace the file if it already exists")

	return cmd
}

// runInitCmd writes the configuration template.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeTemplate(path, force); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), `Created configuration file: %s

Add a profile under "sites" for each host you audit, then run:
  uxaudit audit --config %s https://<host>
`, path, path)
	return nil
}

// writeTemplate writes configTemplate to path with mode 0600. Without force
// an existing file is left alone and an error is returned.
func writeTemplate(path string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(filepath.Clean(path), flags, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	if _, err := f.Write(configTemplate); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}
