package log

import (
	"net/url"
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// urlMask replaces sensitive parts inside a URL. It needs no escaping.
const urlMask = "REDACTED"

// sensitiveKeys are attribute keys whose value is always masked.
// The auth probe types placeholder credentials into live forms and a site
// profile may carry cookies and headers, so none of these reach the log.
var sensitiveKeys = map[string]bool{
	// HTTP headers
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"x-csrf-token":        true,

	// Form fields typed by the auth probe
	"email":    true,
	"username": true,
	"password": true,
	"passwd":   true,

	// Tokens and sessions
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"api_key":       true,
	"apikey":        true,
	"session":       true,
	"session_id":    true,
	"sessionid":     true,
	"sid":           true,
}

// sensitiveKeywords mask any key that contains them.
// Bare "auth" and "key" are not keywords: "auth" is also the name of the
// probed page ("auth_url", "auth_path") and "key" is the visit record key.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "authorization",
	"credential", "private", "cookie",
}

// sensitivePatterns mask a value whatever its key.
var sensitivePatterns = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	// Long alphanumeric strings (API keys, session ids)
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
	// Email addresses typed into forms
	regexp.MustCompile(`^[^@\s/:]+@[^@\s/]+\.[A-Za-z]{2,}$`),
	// PEM private keys
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// sensitiveKey reports whether the value of key must be masked.
func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// sensitiveValue reports whether value looks like a secret.
func sensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// redactURL masks the password of a URL's user info and the values of
// query parameters with sensitive names, e.g. "?token=...". It returns
// false when value is not an absolute URL or has nothing to mask.
func redactURL(value string) (string, bool) {
	if !strings.Contains(value, "://") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return "", false
	}

	changed := false
	if u.User != nil {
		u.User = url.User(urlMask)
		changed = true
	}

	if u.RawQuery != "" {
		query := u.Query()
		for name := range query {
			if sensitiveKey(name) {
				query.Set(name, urlMask)
				changed = true
			}
		}
		if changed {
			u.RawQuery = query.Encode()
		}
	}

	if !changed {
		return "", false
	}
	return u.String(), true
}
