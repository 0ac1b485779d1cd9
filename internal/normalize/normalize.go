package normalize

import (
	"net/url"
	"strings"
	"unicode"

	"horse.fit/unify/internal/record"
)

// Email lowercases and trims an email address. Placeholder sentinels
// normalize to "" so they can never become a match key.
func Email(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if record.IsPlaceholder(trimmed) {
		return ""
	}
	if !strings.Contains(trimmed, "@") {
		return ""
	}
	return trimmed
}

// LinkedInURL canonicalizes a profile URL: lowercase scheme and host,
// strip "www.", drop the query string and any trailing slash.
func LinkedInURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || record.IsPlaceholder(trimmed) {
		return ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return ""
	}

	path := strings.TrimRight(parsed.EscapedPath(), "/")
	scheme := strings.ToLower(parsed.Scheme)
	return scheme + "://" + host + path
}

// Name lowercases, strips punctuation, and collapses whitespace.
func Name(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if record.IsPlaceholder(trimmed) {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := true
	for _, r := range trimmed {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Domain strips scheme and "www.", lowercases, and drops any trailing
// slash or path so "https://www.Acme.com/about/" and "acme.com" agree.
func Domain(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || record.IsPlaceholder(trimmed) {
		return ""
	}

	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}
	trimmed = strings.TrimPrefix(trimmed, "www.")
	if idx := strings.IndexAny(trimmed, "/?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.IndexByte(trimmed, ':'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if !strings.Contains(trimmed, ".") {
		return ""
	}
	return trimmed
}
