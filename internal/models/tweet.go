package models

import (
	"strconv"
	"time"

	"prensa/pkg/textutil"
)

// Tweet is one scraped social post in the fixed store schema.
type Tweet struct {
	Text         string `json:"text"`
	Date         string `json:"date"`
	Account      string `json:"account"`
	Followers    int    `json:"followers"`
	Link         string `json:"link"`
	Impressions  int    `json:"impressions"`
	Interactions int    `json:"interactions"`
	Shares       int    `json:"shares"`
	Likes        int    `json:"likes"`
	Replies      int    `json:"replies"`
	Retweets     int    `json:"retweets"`
	Quotes       int    `json:"quotes"`
	Bookmarks    int    `json:"bookmarks"`
}

// TweetHeader is the fixed column order of the tweet sheet.
func TweetHeader() []string {
	return []string{
		"text", "date", "account", "followers", "link", "impressions",
		"interactions", "shares", "likes", "replies", "retweets",
		"quotes", "bookmarks",
	}
}

// Row projects the tweet onto the store's column order.
func (t Tweet) Row() []string {
	return []string{
		t.Text,
		t.Date,
		t.Account,
		strconv.Itoa(t.Followers),
		t.Link,
		strconv.Itoa(t.Impressions),
		strconv.Itoa(t.Interactions),
		strconv.Itoa(t.Shares),
		strconv.Itoa(t.Likes),
		strconv.Itoa(t.Replies),
		strconv.Itoa(t.Retweets),
		strconv.Itoa(t.Quotes),
		strconv.Itoa(t.Bookmarks),
	}
}

// TweetFromRow rebuilds a tweet from a stored row. Short rows are padded,
// unparseable counters become zero.
func TweetFromRow(row []string) Tweet {
	padded := make([]string, len(TweetHeader()))
	copy(padded, row)

	atoi := func(s string) int {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}

	return Tweet{
		Text:         padded[0],
		Date:         padded[1],
		Account:      padded[2],
		Followers:    atoi(padded[3]),
		Link:         padded[4],
		Impressions:  atoi(padded[5]),
		Interactions: atoi(padded[6]),
		Shares:       atoi(padded[7]),
		Likes:        atoi(padded[8]),
		Replies:      atoi(padded[9]),
		Retweets:     atoi(padded[10]),
		Quotes:       atoi(padded[11]),
		Bookmarks:    atoi(padded[12]),
	}
}

// Key returns the natural key: the canonical link, or a composite of
// account, date and a text prefix when the link is empty.
func (t Tweet) Key() string {
	if t.Link != "" {
		return textutil.CanonicalURL(t.Link)
	}

	return t.Account + "|" + t.Date + "|" + textutil.Truncate(t.Text, compositeTextPrefix)
}

// Timestamp parses the post date stamp. The second return reports whether
// a comparable time was found.
func (t Tweet) Timestamp() (time.Time, bool) {
	if ts, err := time.Parse(ScrapedLayout, t.Date); err == nil {
		return ts, true
	}

	if ts, err := time.Parse(DateLayout, t.Date); err == nil {
		return ts, true
	}

	return time.Time{}, false
}

// Engagement sums the interaction counters. Missing counters were coerced
// to zero at normalization time, so the sum is always defined.
func (t Tweet) Engagement() int {
	return t.Likes + t.Replies + t.Retweets + t.Quotes
}
