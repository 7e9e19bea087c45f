// Package config provides configuration structures and utilities for uxaudit.
// It defines the run options (timeouts, caps, engine, output directory) and
// the per-site profile (seed pages, auth path, card selectors, placeholder
// credentials, viewports) that can be set in a .uxaudit YAML file.
package config
