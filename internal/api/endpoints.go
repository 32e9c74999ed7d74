package api

import (
	"fmt"
	"strings"
)

// Central API resources, relative to the base URL.
const (
	IndeedListings   = "jobs_api/indeed/listings/"
	TickerFrequency  = "social_media_api/reddit/wsb_ticker_freq/"
	YoutubeChannels  = "social_media_api/youtube/channel_daily/"
	NewsArticles     = "news_api/news_articles/"
	CountrySummaries = "geography_api/countries/summary/"
)

// Subreddit returns the resource storing posts of one subreddit.
func Subreddit(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "r/")
	return fmt.Sprintf("social_media_api/reddit/r%s/", name)
}

// IndexComposition returns the resource listing the members of a market
// index such as "nyse" or "nasdaq".
func IndexComposition(index string) string {
	return fmt.Sprintf("finance_api/market_index/%s/composition/", strings.ToLower(strings.TrimSpace(index)))
}
