// Package model defines the data structures produced by an audit run.
//
// This package contains the following main types:
//   - AuditReport: The accumulator every audit step reads from and writes to
//   - PageVisit: One navigation at one viewport (status, load time, screenshot)
//   - PageAudit: SEO, accessibility and console data of a desktop visit
//   - Recommendation: A single actionable item derived from threshold checks
//   - Transcript: The ordered log written by the smoke-test driver
//
// All records are created when observed, never mutated afterwards, and
// discarded when the process exits. The types are serializable to JSON
// for the raw results dump.
package model
