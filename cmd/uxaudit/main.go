// Package main provides the entry point for the uxaudit CLI.
//
// uxaudit drives a headless browser through a website and reports on its
// user experience: page performance, SEO metadata, accessibility, console
// errors, broken links, clickable cards and the auth form.
//
// Usage:
//
//	uxaudit audit <site-url>
//	uxaudit smoke <site-url>
//
// See --help for all available options.
package main

// main is the entry point for uxaudit.
func main() {
	Execute()
}
