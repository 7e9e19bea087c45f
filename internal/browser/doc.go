// Package browser drives the pages an audit visits.
//
// Two engines implement Browser. RodBrowser renders pages in headless
// Chromium through go-rod and observes the live DOM, the console and image
// load state. HTTPBrowser fetches pages with net/http and inspects the raw
// HTML; it is used when no Chromium is available and by tests.
//
// Every failure is returned as *Error with a Code, so callers can tell a
// timeout from a failed navigation or an unsupported operation.
package browser
