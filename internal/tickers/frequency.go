package tickers

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jimezsa/pipecli/internal/models"
)

// Post is the subset of a subreddit post the extractor reads.
type Post struct {
	Title     string
	Content   string
	CreatedOn time.Time
}

// Frequency maps a YYYY-MM-DD day to symbol mention counts.
type Frequency map[string]map[string]int

// DayCounts is one serialized day of a Frequency.
type DayCounts struct {
	Day        string         `json:"day"`
	FreqCounts map[string]int `json:"freq_counts"`
}

var createdOnLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05.999999-07:00",
}

// ParseCreatedOn parses the post timestamps the API hands back.
func ParseCreatedOn(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range createdOnLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported created_on %q", value)
}

// BuildFrequency counts ticker mentions per day. Each symbol counts at most
// once in a post's title and once in its content; the two are summed. Days
// are taken from created_on in its own location.
func BuildFrequency(posts []Post, symbolLists ...[]string) Frequency {
	symbols := NewSymbols(symbolLists...)
	freq := Frequency{}

	for _, post := range posts {
		title := symbols.Mentions(post.Title)
		content := symbols.Mentions(post.Content)
		if len(title) == 0 && len(content) == 0 {
			continue
		}

		day := post.CreatedOn.Format(models.DateLayout)
		counts, ok := freq[day]
		if !ok {
			counts = map[string]int{}
			freq[day] = counts
		}
		for symbol := range title {
			counts[symbol]++
		}
		for symbol := range content {
			counts[symbol]++
		}
	}

	return freq
}

// Days returns the days in ascending order.
func (f Frequency) Days() []string {
	days := make([]string, 0, len(f))
	for day := range f {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// Records serializes the table sorted by day.
func (f Frequency) Records() []DayCounts {
	records := make([]DayCounts, 0, len(f))
	for _, day := range f.Days() {
		records = append(records, DayCounts{Day: day, FreqCounts: f[day]})
	}
	return records
}
