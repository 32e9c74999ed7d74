package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/pipecli/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultIndeedBase = "https://ca.indeed.com"
	DefaultPageDelay  = 5 * time.Second
)

const (
	cardSelector = "div.jobsearch-SerpJobCard, a.tapItem"
	nextSelector = `a[aria-label="Next"], a[aria-label="Next Page"]`
)

// CardError reports a result card missing a required field.
type CardError struct {
	Index int
	Field string
}

func (e *CardError) Error() string {
	return fmt.Sprintf("card %d: missing %s", e.Index, e.Field)
}

type IndeedOptions struct {
	Delay  time.Duration
	Logger zerolog.Logger
}

// Indeed walks paginated job search results.
type Indeed struct {
	fetcher *Fetcher
	delay   time.Duration
	logger  zerolog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewIndeed(fetcher *Fetcher, opts IndeedOptions) *Indeed {
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	return &Indeed{
		fetcher: fetcher,
		delay:   delay,
		logger:  opts.Logger,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// BuildSearchURL returns the first results page for a query and location.
func BuildSearchURL(base string, query string, location string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultIndeedBase
	}
	values := url.Values{}
	values.Set("q", query)
	values.Set("l", location)
	return fmt.Sprintf("%s/jobs?%s", base, values.Encode())
}

// Search scrapes the results for params starting at the built search URL.
func (i *Indeed) Search(ctx context.Context, base string, params models.ScrapeParams) ([]models.Listing, error) {
	today := params.Today
	if today.IsZero() {
		today = i.now()
	}
	return i.scrape(ctx, BuildSearchURL(base, params.Query, params.Location), params.StartPage, params.MaxPages, today)
}

// Scrape follows "Next" links from startURL until there is no next page or
// the page index reaches maxPages, waiting the configured delay between
// pages. A failed page fetch discards everything collected so far.
func (i *Indeed) Scrape(ctx context.Context, startURL string, startPage int, maxPages int) ([]models.Listing, error) {
	return i.scrape(ctx, startURL, startPage, maxPages, i.now())
}

func (i *Indeed) scrape(ctx context.Context, startURL string, startPage int, maxPages int, today time.Time) ([]models.Listing, error) {
	var listings []models.Listing
	pageURL := startURL

	for page := startPage; ; page++ {
		doc, err := i.fetcher.Document(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		cards, errs := parseCards(doc, today)
		for _, cardErr := range errs {
			i.logger.Warn().Err(cardErr).Int("page", page).Msg("skipping card")
		}
		listings = append(listings, cards...)

		next := nextLink(doc, pageURL)
		i.logger.Debug().Int("page", page).Int("cards", len(cards)).Str("next", next).Msg("page scraped")
		if next == "" || page >= maxPages {
			break
		}

		if err := i.sleep(ctx, i.delay); err != nil {
			return nil, err
		}
		pageURL = next
	}

	return listings, nil
}

func parseCards(doc *goquery.Document, today time.Time) ([]models.Listing, []*CardError) {
	var listings []models.Listing
	var errs []*CardError

	doc.Find(cardSelector).Each(func(index int, s *goquery.Selection) {
		listing, err := parseCard(index, s, today)
		if err != nil {
			errs = append(errs, err)
			return
		}
		listings = append(listings, listing)
	})
	return listings, errs
}

func parseCard(index int, s *goquery.Selection, today time.Time) (models.Listing, *CardError) {
	id := strings.TrimSpace(s.AttrOr("id", ""))
	if id == "" {
		id = strings.TrimSpace(s.AttrOr("data-jk", ""))
	}
	if id == "" {
		id = strings.TrimSpace(s.Find("[data-jk]").First().AttrOr("data-jk", ""))
	}
	if id == "" {
		return models.Listing{}, &CardError{Index: index, Field: "id"}
	}

	title := firstText(s, "h2.title a", "h2.jobTitle span[title]", "h2.jobTitle span")
	if title == "" {
		return models.Listing{}, &CardError{Index: index, Field: "title"}
	}

	location := firstText(s, "span.location", "div.location", "div.companyLocation", "[data-testid='text-location']")
	if location == "" {
		return models.Listing{}, &CardError{Index: index, Field: "location"}
	}

	posted := firstText(s, "span.date")
	return models.Listing{
		ID:         id,
		Title:      title,
		Company:    models.StringPtr(firstText(s, "span.company", "span.companyName", "[data-testid='company-name']")),
		Location:   location,
		Summary:    models.StringPtr(firstText(s, "div.summary ul", "div.job-snippet")),
		DatePosted: ResolvePostedDate(posted, today),
		PostedRaw:  posted,
	}, nil
}

func nextLink(doc *goquery.Document, pageURL string) string {
	href := strings.TrimSpace(doc.Find(nextSelector).First().AttrOr("href", ""))
	return absoluteURL(pageURL, href)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
