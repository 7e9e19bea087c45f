// Package report renders audit results.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: the human-readable audit report
//   - JSONWriter: the raw results for tool integration
//   - TranscriptWriter: the plain text log of a smoke-test run
//
// Audit writers implement the Writer interface. WriteFile renders any of
// them into a file.
package report
