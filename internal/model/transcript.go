package model

import (
	"fmt"
	"time"
)

// TranscriptLine is one line of the smoke-test transcript.
type TranscriptLine struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Transcript is the ordered log produced by a smoke-test run.
type Transcript struct {
	// Site is the base URL that was tested.
	Site string `json:"site"`

	// Started is when the run began.
	Started time.Time `json:"started"`

	// Lines holds the log lines in the order they were written.
	Lines []TranscriptLine `json:"lines"`

	// now is the clock used to stamp lines. Tests replace it.
	now func() time.Time
}

// NewTranscript creates an empty transcript for the given site.
func NewTranscript(site string) *Transcript {
	return &Transcript{
		Site:    site,
		Started: time.Now(),
		Lines:   make([]TranscriptLine, 0),
		now:     time.Now,
	}
}

// WithClock replaces the clock used to stamp new lines.
func (t *Transcript) WithClock(now func() time.Time) *Transcript {
	t.now = now
	return t
}

// Log appends a line.
func (t *Transcript) Log(text string) TranscriptLine {
	clock := t.now
	if clock == nil {
		clock = time.Now
	}
	line := TranscriptLine{Time: clock(), Text: text}
	t.Lines = append(t.Lines, line)
	return line
}

// Logf appends a formatted line.
func (t *Transcript) Logf(format string, args ...any) TranscriptLine {
	return t.Log(fmt.Sprintf(format, args...))
}

// Section appends a section header preceded by a blank line.
// The first section of a transcript has no leading blank line.
func (t *Transcript) Section(number int, title string) TranscriptLine {
	header := fmt.Sprintf("=== TEST %d: %s ===", number, title)
	if len(t.Lines) > 0 {
		header = "\n" + header
	}
	return t.Log(header)
}

// Texts returns the text of every line, in order.
func (t *Transcript) Texts() []string {
	texts := make([]string, len(t.Lines))
	for i, l := range t.Lines {
		texts[i] = l.Text
	}
	return texts
}
