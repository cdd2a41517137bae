// Package textutil provides text and URL normalization helpers shared by the
// pipeline stages.
package textutil

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	oddHyphens = regexp.MustCompile("[‐-―−﹘﹣－-]+")
	spaces     = regexp.MustCompile(`\s+`)
	slashes    = regexp.MustCompile(`/{2,}`)
)

// Fold lowercases a string, strips diacritics and collapses whitespace and
// unicode hyphen variants into single ASCII forms. Matching against folded
// text makes keyword filters tolerant of "Mercado Libre" vs "mercado-libre"
// vs "Mercádo libre".
func Fold(s string) string {
	decomposed := norm.NFKD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))

	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := oddHyphens.ReplaceAllString(b.String(), "-")
	out = spaces.ReplaceAllString(out, " ")

	return strings.ToLower(strings.TrimSpace(out))
}

// CanonicalURL normalizes a URL for deduplication: tracking query parameters
// are removed, default ports and a leading www. are stripped and duplicate
// slashes in the path are collapsed. Unparseable input is returned unchanged.
func CanonicalURL(raw string) string {
	trimmed := strings.TrimSpace(raw)

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return trimmed
	}

	query := u.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") || lower == "fbclid" || lower == "gclid" {
			query.Del(key)
		}
	}

	host := strings.TrimSuffix(u.Host, ":80")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimPrefix(host, "www.")

	path := u.Path
	if path == "" {
		path = "/"
	}
	path = slashes.ReplaceAllString(path, "/")

	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}

	canonical := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: query.Encode(),
	}

	return canonical.String()
}

// HostOf extracts the bare host from a URL, without default ports or a
// leading www. Returns "" for unparseable input.
func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}

	host := strings.TrimSuffix(u.Host, ":80")
	host = strings.TrimSuffix(host, ":443")

	return strings.TrimPrefix(host, "www.")
}

// Truncate shortens a string to at most max runes, appending an ellipsis
// when anything was cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max]) + "..."
}

// NormalizeWhitespace replaces runs of whitespace with single spaces.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
