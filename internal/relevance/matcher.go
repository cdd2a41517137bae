// Package relevance filters scraped rows down to the items that actually
// concern the monitored subject: cheap title/snippet keyword matching
// first, then an on-site content check over a bounded worker pool.
package relevance

import (
	"regexp"
	"strings"

	"prensa/internal/models"
	"prensa/pkg/textutil"
)

// Matcher matches folded text against a keyword list. Each keyword becomes
// a pattern tolerant of spacing and hyphen variants, so "mercado libre"
// also matches "mercado-libre" and "mercadolibre". Matching is
// case-insensitive and accent-folded.
type Matcher struct {
	patterns []*regexp.Regexp
}

// NewMatcher compiles a matcher for the given keywords. Empty keywords are
// skipped; a matcher with no keywords matches everything.
func NewMatcher(keywords []string) *Matcher {
	m := &Matcher{}

	for _, kw := range keywords {
		folded := textutil.Fold(kw)
		if folded == "" {
			continue
		}

		parts := strings.FieldsFunc(folded, func(r rune) bool {
			return r == ' ' || r == '-'
		})
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}

		// Zero or one separator between the keyword's words.
		m.patterns = append(m.patterns, regexp.MustCompile(strings.Join(parts, "[ -]?")))
	}

	return m
}

// Empty reports whether the matcher has no keywords.
func (m *Matcher) Empty() bool {
	return len(m.patterns) == 0
}

// MatchText reports whether the folded text contains any keyword.
func (m *Matcher) MatchText(s string) bool {
	if m.Empty() {
		return true
	}

	folded := textutil.Fold(s)

	for _, p := range m.patterns {
		if p.MatchString(folded) {
			return true
		}
	}

	return false
}

// MatchArticle checks title and snippet without fetching the page.
func (m *Matcher) MatchArticle(a models.Article) bool {
	return m.MatchText(a.Title) || m.MatchText(a.Snippet)
}

// IsReply reports whether a post is reply-only content, i.e. its text
// begins with a mention marker.
func IsReply(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "@")
}

// Prefilter keeps the articles whose title or snippet matches. When the
// prefilter would empty the batch it passes the batch through unchanged:
// some actor versions ship near-empty titles and the on-site check is the
// authoritative filter.
func (m *Matcher) Prefilter(batch []models.Article) []models.Article {
	if m.Empty() {
		return batch
	}

	var kept []models.Article

	for _, a := range batch {
		if m.MatchArticle(a) {
			kept = append(kept, a)
		}
	}

	if len(kept) == 0 {
		return batch
	}

	return kept
}

// DropReplies removes tweets whose text starts with a mention marker.
func DropReplies(batch []models.Tweet) []models.Tweet {
	var kept []models.Tweet

	for _, tw := range batch {
		if !IsReply(tw.Text) {
			kept = append(kept, tw)
		}
	}

	return kept
}
