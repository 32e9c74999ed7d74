package scraper

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/cenkalti/backoff/v4"
	"github.com/jimezsa/pipecli/internal/network"
)

// FetchError reports a page that answered with a non-2xx status.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: http %d", e.URL, e.Status)
}

// Temporary reports whether the status is worth retrying.
func (e *FetchError) Temporary() bool {
	return e.Status == fhttp.StatusTooManyRequests || e.Status >= 500
}

// Fetcher downloads HTML pages through the browser-like scrape client.
type Fetcher struct {
	client     network.Doer
	retries    uint64
	headers    map[string]string
	newBackOff func() backoff.BackOff
}

func NewFetcher(client network.Doer, retries int) *Fetcher {
	if retries < 0 {
		retries = 0
	}
	return &Fetcher{
		client:  client,
		retries: uint64(retries),
		headers: map[string]string{
			"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"accept-language": "en-US,en;q=0.9",
		},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = time.Minute
			return b
		},
	}
}

// Document fetches target and parses it. Transport errors, 429 and 5xx are
// retried; any other non-2xx status fails immediately with *FetchError.
func (f *Fetcher) Document(ctx context.Context, target string) (*goquery.Document, error) {
	var doc *goquery.Document
	operation := func() error {
		var err error
		doc, err = f.fetchOnce(ctx, target)
		if err == nil {
			return nil
		}
		if fetchErr, ok := err.(*FetchError); ok && !fetchErr.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), f.retries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: target, Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}

func cleanText(value string) string {
	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

// firstText returns the cleaned text of the first selector that matches.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		found := s.Find(selector).First()
		if found.Length() == 0 {
			continue
		}
		if text := cleanText(found.Text()); text != "" {
			return text
		}
	}
	return ""
}

func absoluteURL(base string, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
