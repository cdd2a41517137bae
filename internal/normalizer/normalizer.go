// Package normalizer maps heterogeneous actor payloads onto the fixed store
// schemas. Provider key names vary across actor versions; each canonical
// field carries an explicit alias list, unknown provider keys are dropped
// and missing fields get type-appropriate defaults.
package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"prensa/internal/models"
	"prensa/pkg/textutil"
)

// Provider key aliases, ordered by preference.
var (
	articleLinkKeys    = []string{"link", "url"}
	articleTitleKeys   = []string{"title", "headline"}
	articleSnippetKeys = []string{"snippet", "description"}
	articleSourceKeys  = []string{"source", "domain", "publisher"}
	articleDateKeys    = []string{"date_utc", "publishedAt", "published_at", "date"}

	tweetTextKeys     = []string{"text", "full_text", "fullText"}
	tweetLinkKeys     = []string{"url", "twitterUrl", "link"}
	tweetDateKeys     = []string{"createdAt", "created_at", "date"}
	tweetLikeKeys     = []string{"likeCount", "favorite_count", "likes"}
	tweetReplyKeys    = []string{"replyCount", "reply_count", "replies"}
	tweetRetweetKeys  = []string{"retweetCount", "retweet_count", "retweets"}
	tweetQuoteKeys    = []string{"quoteCount", "quote_count", "quotes"}
	tweetBookmarkKeys = []string{"bookmarkCount", "bookmark_count", "bookmarks"}
	tweetViewKeys     = []string{"viewCount", "view_count", "impressions"}

	authorKeys          = []string{"author", "user"}
	authorHandleKeys    = []string{"userName", "username", "screen_name", "handle"}
	authorFollowerKeys  = []string{"followers", "followersCount", "followers_count"}
	tweetRowTypeKey     = "type"
	tweetMockRowType    = "mock_tweet"
	countryDisplayNames = map[string]string{
		"ar": "Argentina",
		"cl": "Chile",
		"pe": "Peru",
		"uy": "Uruguay",
		"mx": "Mexico",
	}
)

// Normalizer converts raw actor items into store records.
type Normalizer struct {
	loc          *time.Location
	countryNames map[string]string
	now          func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCountryNames overrides the country code display-name mapping.
func WithCountryNames(names map[string]string) Option {
	return func(n *Normalizer) { n.countryNames = names }
}

// WithClock overrides the scraped-at clock (tests).
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// NewNormalizer creates a normalizer targeting the given local zone.
func NewNormalizer(loc *time.Location, opts ...Option) *Normalizer {
	n := &Normalizer{
		loc:          loc,
		countryNames: countryDisplayNames,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Article maps one raw news item onto the article schema. country is the
// run configuration's country code.
func (n *Normalizer) Article(raw map[string]any, country string) models.Article {
	link := textutil.CanonicalURL(pickString(raw, articleLinkKeys))

	source := pickString(raw, articleSourceKeys)
	if source == "" {
		source = textutil.HostOf(link)
	}

	return models.Article{
		Date:      n.formatDate(pick(raw, articleDateKeys)),
		Country:   n.countryName(country),
		Title:     pickString(raw, articleTitleKeys),
		Link:      link,
		Source:    source,
		Snippet:   pickString(raw, articleSnippetKeys),
		Tag:       asString(raw["tag"]),
		Sentiment: asString(raw["sentiment"]),
		ScrapedAt: n.now().In(n.loc).Format(models.ScrapedLayout),
	}
}

// Tweet maps one raw social post onto the tweet schema. The second return
// is false for provider filler rows, which callers drop.
func (n *Normalizer) Tweet(raw map[string]any) (models.Tweet, bool) {
	if asString(raw[tweetRowTypeKey]) == tweetMockRowType {
		return models.Tweet{}, false
	}

	handle, followers := n.flattenAuthor(raw)

	likes := CoerceInt(pick(raw, tweetLikeKeys))
	replies := CoerceInt(pick(raw, tweetReplyKeys))
	retweets := CoerceInt(pick(raw, tweetRetweetKeys))
	quotes := CoerceInt(pick(raw, tweetQuoteKeys))

	return models.Tweet{
		Text:         pickString(raw, tweetTextKeys),
		Date:         n.formatStamp(pick(raw, tweetDateKeys)),
		Account:      handle,
		Followers:    followers,
		Link:         textutil.CanonicalURL(pickString(raw, tweetLinkKeys)),
		Impressions:  CoerceInt(pick(raw, tweetViewKeys)),
		Interactions: likes + replies + retweets + quotes,
		Shares:       retweets + quotes,
		Likes:        likes,
		Replies:      replies,
		Retweets:     retweets,
		Quotes:       quotes,
		Bookmarks:    CoerceInt(pick(raw, tweetBookmarkKeys)),
	}, true
}

// flattenAuthor pulls handle and follower count out of the nested author
// sub-object, tolerating top-level fallbacks from older actor versions.
func (n *Normalizer) flattenAuthor(raw map[string]any) (string, int) {
	for _, key := range authorKeys {
		sub, ok := raw[key].(map[string]any)
		if !ok {
			continue
		}

		handle := pickString(sub, authorHandleKeys)
		followers := CoerceInt(pick(sub, authorFollowerKeys))

		if handle != "" || followers > 0 {
			return handle, followers
		}
	}

	return pickString(raw, authorHandleKeys), CoerceInt(pick(raw, authorFollowerKeys))
}

func (n *Normalizer) countryName(code string) string {
	if name, ok := n.countryNames[strings.ToLower(code)]; ok {
		return name
	}

	return code
}

// formatDate renders a provider timestamp as a local dd/mm/yyyy date, or ""
// when unparseable.
func (n *Normalizer) formatDate(v any) string {
	t, ok := parseTime(v)
	if !ok {
		return ""
	}

	return t.In(n.loc).Format(models.DateLayout)
}

// formatStamp renders a provider timestamp as a local dd/mm/yyyy hh:mm
// stamp, or "" when unparseable.
func (n *Normalizer) formatStamp(v any) string {
	t, ok := parseTime(v)
	if !ok {
		return ""
	}

	return t.In(n.loc).Format(models.ScrapedLayout)
}

// CoerceInt parses any counter-like value as an int. Unparseable or missing
// values coerce to 0, never to a null that breaks downstream sums.
func CoerceInt(v any) int {
	switch val := v.(type) {
	case nil:
		return 0
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return int(f)
		}
		return 0
	case string:
		trimmed := strings.TrimSpace(val)
		if i, err := strconv.Atoi(trimmed); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int(f)
		}
		return 0
	default:
		return 0
	}
}

// parseTime accepts RFC3339 strings, common provider layouts and epoch
// seconds (numeric or string).
func parseTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case float64:
		if val <= 0 {
			return time.Time{}, false
		}
		return time.Unix(int64(val), 0).UTC(), true
	case int64:
		if val <= 0 {
			return time.Time{}, false
		}
		return time.Unix(val, 0).UTC(), true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}

		layouts := []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"Mon Jan 02 15:04:05 -0700 2006", // classic twitter format
			"2006-01-02",
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}

		if epoch, err := strconv.ParseInt(s, 10, 64); err == nil && epoch > 0 {
			return time.Unix(epoch, 0).UTC(), true
		}

		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// pick returns the first present value among the alias keys.
func pick(raw map[string]any, keys []string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}

	return nil
}

// pickString returns the first non-empty string among the alias keys.
func pickString(raw map[string]any, keys []string) string {
	for _, key := range keys {
		if s := asString(raw[key]); s != "" {
			return s
		}
	}

	return ""
}

func asString(v any) string {
	s, _ := v.(string)

	return strings.TrimSpace(s)
}
