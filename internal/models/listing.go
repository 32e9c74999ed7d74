package models

import "time"

// DateLayout is the calendar-day format used on the wire.
const DateLayout = "2006-01-02"

// Listing is one job posting parsed from a search results page.
type Listing struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Company    *string `json:"company"`
	Location   string  `json:"location"`
	Summary    *string `json:"summary"`
	DatePosted *string `json:"date_posted"`
	// PostedRaw keeps the relative text the date was resolved from.
	PostedRaw string `json:"-"`
}

// ScrapeParams captures the search inputs for one listing scrape.
type ScrapeParams struct {
	Query     string
	Location  string
	StartPage int
	MaxPages  int
	// Today is the invocation date relative posted times resolve against.
	Today time.Time
}

// StringPtr returns nil for an empty value.
func StringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// Deref returns the pointed-to string or "".
func Deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
