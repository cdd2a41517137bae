// Package models defines the item records persisted to the tabular store.
package models

import (
	"time"

	"prensa/pkg/textutil"
)

// Timestamp layouts used in the store. Dates are stored in the run's local
// zone, already converted from the provider's UTC values.
const (
	DateLayout    = "02/01/2006"
	ScrapedLayout = "02/01/2006 15:04"
)

// Sentiment labels form a closed set; anything unmappable becomes neutral.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// compositeTextPrefix bounds the text portion of fallback keys.
const compositeTextPrefix = 40

// Article is one scraped news item in the fixed store schema.
type Article struct {
	SentDate  string `json:"sentDate"`
	Date      string `json:"date"`
	Country   string `json:"country"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Source    string `json:"source"`
	Snippet   string `json:"snippet"`
	Tag       string `json:"tag"`
	Sentiment string `json:"sentiment"`
	ScrapedAt string `json:"scrapedAt"`
}

// ArticleHeader is the fixed column order of the article sheet.
func ArticleHeader() []string {
	return []string{
		"sent_date", "date", "country", "title", "link",
		"source", "snippet", "tag", "sentiment", "scraped_at",
	}
}

// Row projects the article onto the store's column order.
func (a Article) Row() []string {
	return []string{
		a.SentDate, a.Date, a.Country, a.Title, a.Link,
		a.Source, a.Snippet, a.Tag, a.Sentiment, a.ScrapedAt,
	}
}

// ArticleFromRow rebuilds an article from a stored row. Short rows are
// padded with empty fields.
func ArticleFromRow(row []string) Article {
	padded := make([]string, len(ArticleHeader()))
	copy(padded, row)

	return Article{
		SentDate:  padded[0],
		Date:      padded[1],
		Country:   padded[2],
		Title:     padded[3],
		Link:      padded[4],
		Source:    padded[5],
		Snippet:   padded[6],
		Tag:       padded[7],
		Sentiment: padded[8],
		ScrapedAt: padded[9],
	}
}

// Key returns the natural key: the canonical link, or a composite of
// source, date and a title prefix when the link is empty.
func (a Article) Key() string {
	if a.Link != "" {
		return textutil.CanonicalURL(a.Link)
	}

	return a.Source + "|" + a.Date + "|" + textutil.Truncate(a.Title, compositeTextPrefix)
}

// Timestamp parses the scraped-at stamp, falling back to the date column.
// The second return reports whether a comparable time was found.
func (a Article) Timestamp() (time.Time, bool) {
	if t, err := time.Parse(ScrapedLayout, a.ScrapedAt); err == nil {
		return t, true
	}

	if t, err := time.Parse(DateLayout, a.Date); err == nil {
		return t, true
	}

	return time.Time{}, false
}
