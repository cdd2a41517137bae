package actor

// NewsInput builds the filter payload for a news search run. Country is a
// two-letter region code driving both the edition and the geo filter.
func NewsInput(query, country string, maxItems int, timePeriod string) map[string]any {
	return map[string]any{
		"cr":          country,
		"gl":          country,
		"lr":          "lang_es",
		"maxItems":    maxItems,
		"query":       query,
		"time_period": timePeriod,
	}
}

// TweetInput builds the filter payload for one account's latest posts. The
// scraper exposes a long list of boolean filters; all are off so the run
// returns the raw timeline.
func TweetInput(account string, maxItems int, withinTime string) map[string]any {
	input := map[string]any{
		"from":        account,
		"maxItems":    maxItems,
		"within_time": withinTime,
		"queryType":   "Latest",

		"-min_faves":    0,
		"-min_replies":  0,
		"-min_retweets": 0,
		"min_faves":     0,
		"min_replies":   0,
		"min_retweets":  0,

		"include:nativeretweets": false,
	}

	for _, filter := range []string{
		"blue_verified", "consumer_video", "has_engagement", "hashtags",
		"images", "links", "media", "mentions", "native_video",
		"nativeretweets", "news", "pro_video", "quote", "replies", "safe",
		"spaces", "twimg", "videos", "vine",
	} {
		input["filter:"+filter] = false
	}

	return input
}
