// Package linkcheck finds links that answer with an HTTP error status.
//
// A Checker deduplicates the links of a run, caps their number, and probes
// each remaining href with a GET. Requests are spaced by an x/time/rate
// limiter and may fan out through an errgroup; results keep the input order.
package linkcheck
