// Package smoke implements the smoke test: eight quick checks of a site run
// in one tab, each writing human-readable lines to a Transcript.
//
// The checks are, in order: homepage load, key UI element counts, the
// navigation links, a visit to every same-site navigation link, auth
// element counts, a mobile viewport screenshot, the console problems seen
// so far, and the homepage load time at the desktop viewport.
package smoke
