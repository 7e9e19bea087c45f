// Package pipeline runs the steps of an audit in sequence.
//
// Each Step receives the AuditReport accumulated by the steps before it and
// appends its own records. DefaultPipeline assembles the audit: a detailed
// pass over the seed and discovered pages, the link check, the card probe,
// the auth probe, and one pass per remaining viewport.
//
// A page that fails to load is recorded on its visit and never stops the
// run. Only a cancelled context or a browser that cannot open a tab ends
// the pipeline early; the partial report is kept either way.
package pipeline
