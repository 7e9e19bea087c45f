package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format is the encoding of log records.
type Format string

const (
	// FormatText writes key=value records.
	FormatText Format = "text"

	// FormatJSON writes one JSON object per record.
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned by ParseFormat for anything but text or json.
var ErrUnknownFormat = errors.New("unknown log format: must be \"text\" or \"json\"")

// ParseFormat parses a --log-format value, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// New creates a logger writing masked records to w in the given format.
// verbose selects Debug instead of Warn as the minimum level.
func New(w io.Writer, format Format, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var next slog.Handler
	if format == FormatJSON {
		next = slog.NewJSONHandler(w, opts)
	} else {
		next = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewSecureHandler(next))
}

// NewSecureLogger creates a text logger writing masked records to w.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return New(w, FormatText, verbose)
}
