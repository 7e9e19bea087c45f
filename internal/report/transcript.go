package report

import (
	"io"
	"strings"

	"github.com/nao1215/uxaudit/internal/model"
)

// bannerWidth is the width of the "=" rule around the transcript banner.
const bannerWidth = 60

// TranscriptWriter outputs a smoke-test transcript as plain text, one
// line per entry.
type TranscriptWriter struct {
	baseWriter

	// banner prints a "FULL REPORT" heading before the lines.
	banner bool

	// timestamps prefixes every line with its time of day.
	timestamps bool
}

// TranscriptWriterOption configures a TranscriptWriter.
type TranscriptWriterOption func(*TranscriptWriter)

// WithBanner prints a "FULL REPORT" heading framed by rules before the lines.
func WithBanner(banner bool) TranscriptWriterOption {
	return func(w *TranscriptWriter) {
		w.banner = banner
	}
}

// WithTimestamps prefixes every line with "[HH:MM:SS] ".
func WithTimestamps(timestamps bool) TranscriptWriterOption {
	return func(w *TranscriptWriter) {
		w.timestamps = timestamps
	}
}

// NewTranscriptWriter creates a TranscriptWriter that outputs to the given writer.
func NewTranscriptWriter(output io.Writer, opts ...TranscriptWriterOption) *TranscriptWriter {
	w := &TranscriptWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the transcript. Lines are joined by a newline with no
// trailing newline after the last one.
func (w *TranscriptWriter) Write(transcript *model.Transcript) (int, error) {
	var sb strings.Builder

	if w.banner {
		rule := strings.Repeat("=", bannerWidth)
		sb.WriteString("\n\n")
		sb.WriteString(rule)
		sb.WriteString("\nFULL REPORT\n")
		sb.WriteString(rule)
		sb.WriteString("\n")
	}

	for i, line := range transcript.Lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		if w.timestamps {
			sb.WriteString("[")
			sb.WriteString(line.Time.Format("15:04:05"))
			sb.WriteString("] ")
		}
		sb.WriteString(line.Text)
	}

	if w.banner {
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}
