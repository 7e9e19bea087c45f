// Package inspect extracts audit facts from the HTML of a rendered page.
//
// Document wraps a goquery document built on golang.org/x/net/html and
// answers the questions the audit asks of every page: SEO metadata, images
// without alt text, form controls without a label, anchors, the heading
// outline, and the inputs and buttons of an auth page. Discoverer turns the
// anchors of visited pages into a deduplicated queue of same-site pages.
//
// The package never performs I/O: page engines fetch or render the HTML and
// hand it over.
package inspect
