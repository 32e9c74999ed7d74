package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/jimezsa/pipecli/internal/models"
	"github.com/rs/zerolog"
)

const (
	page0URL = "https://ca.indeed.com/jobs?q=Software+Engineer&l=Toronto"
	page1URL = "https://ca.indeed.com/jobs?q=Software+Engineer&l=Toronto&start=10"
	page2URL = "https://ca.indeed.com/jobs?q=Software+Engineer&l=Toronto&start=20"
)

func card(id, title, company, location, summary, date string) string {
	var b strings.Builder
	b.WriteString(`<div class="jobsearch-SerpJobCard" id="` + id + `">`)
	if title != "" {
		b.WriteString(`<h2 class="title"><a href="/rc/clk?jk=` + id + `">` + title + `</a></h2>`)
	}
	if company != "" {
		b.WriteString(`<span class="company">` + company + `</span>`)
	}
	if location != "" {
		b.WriteString(`<span class="location">` + location + `</span>`)
	}
	if summary != "" {
		b.WriteString(`<div class="summary"><ul><li>` + summary + `</li></ul></div>`)
	}
	b.WriteString(`<span class="date">` + date + `</span></div>`)
	return b.String()
}

func resultsPage(next string, cards ...string) string {
	html := "<html><body>" + strings.Join(cards, "")
	if next != "" {
		html += `<nav><a aria-label="Next" href="` + next + `">&raquo;</a></nav>`
	}
	return html + "</body></html>"
}

func testIndeed(doer *fakeDoer) (*Indeed, *[]time.Duration) {
	var slept []time.Duration
	indeed := NewIndeed(testFetcher(doer, 0), IndeedOptions{Delay: DefaultPageDelay, Logger: zerolog.Nop()})
	indeed.now = func() time.Time { return time.Date(2021, 4, 10, 9, 30, 0, 0, time.UTC) }
	indeed.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return indeed, &slept
}

func TestBuildSearchURL(t *testing.T) {
	got := BuildSearchURL("", "Software Engineer", "Toronto, ON")
	want := "https://ca.indeed.com/jobs?l=Toronto%2C+ON&q=Software+Engineer"
	if got != want {
		t.Fatalf("BuildSearchURL() = %q, want %q", got, want)
	}

	got = BuildSearchURL("https://www.indeed.com/", "go", "")
	if got != "https://www.indeed.com/jobs?l=&q=go" {
		t.Fatalf("BuildSearchURL() with base = %q", got)
	}
}

func TestParseCards(t *testing.T) {
	html := resultsPage("",
		card("p_1", "Backend Developer", "Acme", "Toronto, ON", "Write Go", "3 days ago"),
		card("p_2", "Data Engineer", "", "Remote", "", "Today"),
		card("p_3", "", "Beta", "Ottawa, ON", "", "1 day ago"),
		card("p_4", "SRE", "Gamma", "", "", "1 day ago"),
		`<a class="tapItem" data-jk="jk5"><h2 class="jobTitle"><span title="Go Engineer">Go Engineer</span></h2>`+
			`<span class="companyName">Delta</span><div class="companyLocation">Montreal, QC</div>`+
			`<div class="job-snippet">Build   things</div><span class="date">Posted 30+ days ago</span></a>`,
	)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	today := time.Date(2021, 4, 10, 0, 0, 0, 0, time.UTC)
	listings, errs := parseCards(doc, today)

	want := []models.Listing{
		{ID: "p_1", Title: "Backend Developer", Company: models.StringPtr("Acme"), Location: "Toronto, ON", Summary: models.StringPtr("Write Go"), DatePosted: models.StringPtr("2021-04-07"), PostedRaw: "3 days ago"},
		{ID: "p_2", Title: "Data Engineer", Location: "Remote", DatePosted: models.StringPtr("2021-04-10"), PostedRaw: "Today"},
		{ID: "jk5", Title: "Go Engineer", Company: models.StringPtr("Delta"), Location: "Montreal, QC", Summary: models.StringPtr("Build things"), DatePosted: models.StringPtr("2021-03-11"), PostedRaw: "Posted 30+ days ago"},
	}
	if diff := cmp.Diff(want, listings); diff != "" {
		t.Fatalf("parseCards() mismatch (-want +got):\n%s", diff)
	}

	if len(errs) != 2 {
		t.Fatalf("expected 2 card errors, got %d", len(errs))
	}
	if errs[0].Field != "title" || errs[1].Field != "location" {
		t.Fatalf("unexpected card errors: %v, %v", errs[0], errs[1])
	}
}

func TestScrapeFollowsNextLinks(t *testing.T) {
	doer := newFakeDoer()
	doer.add(page0URL, fakePage{body: resultsPage("/jobs?q=Software+Engineer&l=Toronto&start=10",
		card("a", "A", "Co", "Toronto", "", "Today"),
		card("b", "B", "Co", "Toronto", "", "2 days ago"),
	)})
	doer.add(page1URL, fakePage{body: resultsPage("/jobs?q=Software+Engineer&l=Toronto&start=20",
		card("c", "C", "Co", "Toronto", "", "Today"),
	)})
	doer.add(page2URL, fakePage{body: resultsPage("",
		card("d", "D", "Co", "Toronto", "", "Today"),
	)})

	indeed, slept := testIndeed(doer)
	listings, err := indeed.Scrape(context.Background(), page0URL, 0, 10)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	var ids []string
	for _, listing := range listings {
		ids = append(ids, listing.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, ids); diff != "" {
		t.Fatalf("listing ids mismatch (-want +got):\n%s", diff)
	}
	if len(*slept) != 2 {
		t.Fatalf("slept %d times, want 2", len(*slept))
	}
	for _, d := range *slept {
		if d != DefaultPageDelay {
			t.Fatalf("slept %s, want %s", d, DefaultPageDelay)
		}
	}
	if got := *listings[1].DatePosted; got != "2021-04-08" {
		t.Fatalf("date_posted = %s, want 2021-04-08", got)
	}
}

func TestScrapeStopsAtMaxPages(t *testing.T) {
	doer := newFakeDoer()
	doer.add(page0URL, fakePage{body: resultsPage("/jobs?q=Software+Engineer&l=Toronto&start=10",
		card("a", "A", "Co", "Toronto", "", "Today"),
	)})
	doer.add(page1URL, fakePage{body: resultsPage("", card("b", "B", "Co", "Toronto", "", "Today"))})

	indeed, slept := testIndeed(doer)
	listings, err := indeed.Scrape(context.Background(), page0URL, 0, 0)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(listings) != 1 || listings[0].ID != "a" {
		t.Fatalf("expected only page 0 listings, got %+v", listings)
	}
	if len(*slept) != 0 {
		t.Fatalf("expected no delay after the last page, slept %d times", len(*slept))
	}
	if len(doer.order) != 1 {
		t.Fatalf("fetched %d pages, want 1", len(doer.order))
	}
}

func TestScrapeStartPageCountsTowardMax(t *testing.T) {
	doer := newFakeDoer()
	doer.add(page1URL, fakePage{body: resultsPage("/jobs?q=Software+Engineer&l=Toronto&start=20",
		card("b", "B", "Co", "Toronto", "", "Today"),
	)})
	doer.add(page2URL, fakePage{body: resultsPage("/jobs?q=Software+Engineer&l=Toronto&start=30",
		card("c", "C", "Co", "Toronto", "", "Today"),
	)})

	indeed, _ := testIndeed(doer)
	listings, err := indeed.Scrape(context.Background(), page1URL, 1, 2)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected pages 1 and 2, got %d listings", len(listings))
	}
}

func TestScrapeEmptyPageContinues(t *testing.T) {
	doer := newFakeDoer()
	doer.add(page0URL, fakePage{body: resultsPage("/jobs?q=Software+Engineer&l=Toronto&start=10")})
	doer.add(page1URL, fakePage{body: resultsPage("", card("b", "B", "Co", "Toronto", "", "Today"))})

	indeed, _ := testIndeed(doer)
	listings, err := indeed.Scrape(context.Background(), page0URL, 0, 5)
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if len(listings) != 1 || listings[0].ID != "b" {
		t.Fatalf("expected page 1 listing only, got %+v", listings)
	}
}

func TestScrapeAbortsOnFetchError(t *testing.T) {
	doer := newFakeDoer()
	doer.add(page0URL, fakePage{body: resultsPage("/jobs?q=Software+Engineer&l=Toronto&start=10",
		card("a", "A", "Co", "Toronto", "", "Today"),
	)})
	doer.add(page1URL, fakePage{status: 403})

	indeed, _ := testIndeed(doer)
	listings, err := indeed.Scrape(context.Background(), page0URL, 0, 5)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Scrape() error = %v, want *FetchError", err)
	}
	if listings != nil {
		t.Fatalf("expected partial results to be discarded, got %d", len(listings))
	}
}

func TestScrapeHonoursCancelledDelay(t *testing.T) {
	doer := newFakeDoer()
	doer.add(page0URL, fakePage{body: resultsPage("/jobs?q=Software+Engineer&l=Toronto&start=10",
		card("a", "A", "Co", "Toronto", "", "Today"),
	)})

	indeed := NewIndeed(testFetcher(doer, 0), IndeedOptions{Delay: time.Hour, Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := indeed.Scrape(ctx, page0URL, 0, 5); !errors.Is(err, context.Canceled) {
		t.Fatalf("Scrape() error = %v, want context.Canceled", err)
	}
}

func TestSearchUsesParams(t *testing.T) {
	doer := newFakeDoer()
	doer.add("https://ca.indeed.com/jobs?l=Toronto&q=Software+Engineer", fakePage{body: resultsPage("",
		card("a", "A", "Co", "Toronto", "", "5 days ago"),
	)})

	indeed, _ := testIndeed(doer)
	listings, err := indeed.Search(context.Background(), "", models.ScrapeParams{
		Query:    "Software Engineer",
		Location: "Toronto",
		Today:    time.Date(2021, 4, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(listings) != 1 || *listings[0].DatePosted != "2021-04-05" {
		t.Fatalf("unexpected listings: %+v", listings)
	}
}
