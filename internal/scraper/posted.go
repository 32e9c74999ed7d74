package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jimezsa/pipecli/internal/models"
)

var daysAgoPattern = regexp.MustCompile(`(?i)(\d+)\+?\s*days?`)

var todayLabels = []string{"just posted", "today"}

// ResolvePostedDate turns relative text such as "3 days ago" into a
// YYYY-MM-DD date counted back from today. Unrecognized text gives nil.
func ResolvePostedDate(raw string, today time.Time) *string {
	raw = cleanText(raw)
	if raw == "" {
		return nil
	}

	if match := daysAgoPattern.FindStringSubmatch(raw); match != nil {
		days, err := strconv.Atoi(match[1])
		if err != nil {
			return nil
		}
		date := today.AddDate(0, 0, -days).Format(models.DateLayout)
		return &date
	}

	lower := strings.ToLower(raw)
	for _, label := range todayLabels {
		if strings.Contains(lower, label) {
			date := today.Format(models.DateLayout)
			return &date
		}
	}
	return nil
}
