package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name looked up in the current
// and home directories.
const DefaultConfigFile = ".uxaudit"

// XDGConfigFileName is the file name looked up inside XDGConfigDir().
const XDGConfigFileName = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads site profiles from a YAML file. Unknown keys are
// rejected so that a misspelled option fails loudly. An empty file yields
// an empty File.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	cf := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cf.Sites == nil {
		cf.Sites = map[string]Profile{}
	}
	return cf, nil
}

// configCandidates lists the implicit configuration file locations in
// lookup order.
func configCandidates() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return append(paths, filepath.Join(XDGConfigDir(), XDGConfigFileName))
}

// FindConfigFile returns the configuration file to load, or "" when there
// is none. An explicit configPath is used as is; otherwise .uxaudit in the
// current directory, .uxaudit in the home directory and config.yaml in the
// XDG config directory are tried in that order.
func FindConfigFile(configPath string) string {
	candidates := configCandidates()
	if configPath != "" {
		candidates = []string{configPath}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// ApplyConfigFile loads the configuration file, if any, and replaces
// c.Profile with the profile of the audited host. A missing file is an
// error only when ConfigFilePath was set.
func (c *Config) ApplyConfigFile() error {
	path := FindConfigFile(c.ConfigFilePath)
	switch {
	case path == "" && c.ConfigFilePath != "":
		return ErrConfigNotFound
	case path == "":
		return nil
	}

	cf, err := LoadConfigFile(path)
	if err != nil {
		return err
	}
	c.Profile = cf.Profile(c.SiteHost())
	return nil
}
