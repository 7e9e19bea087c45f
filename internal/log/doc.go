// Package log provides slog loggers that mask sensitive information.
//
// The auth probe types placeholder credentials into live login forms, and a
// site profile may carry cookies or extra headers. SecureHandler masks these
// before any record is written:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Form values (email, password) and anything whose key names a credential
//   - Values that look like tokens, keys or email addresses
//   - User info and secret query parameters of URLs
//
// Masking also applies in verbose mode so that logs can be attached to CI
// artifacts.
//
// # Usage
//
//	logger := log.New(os.Stderr, log.FormatText, verbose)
//	logger.Debug("filling auth field", "field", "email", "email", creds.Email)
//	// email=***REDACTED***
package log
