package news

import (
	"context"
	"fmt"
	"time"

	"github.com/jimezsa/pipecli/internal/scraper"
)

const DefaultMaxArticles = 20

// Ref points at one article page of a site.
type Ref struct {
	Source string
	URL    string
}

// Crawler finds and parses articles through the scrape client.
type Crawler struct {
	fetcher     *scraper.Fetcher
	maxArticles int
	now         func() time.Time
}

func NewCrawler(fetcher *scraper.Fetcher, maxArticles int) *Crawler {
	if maxArticles <= 0 {
		maxArticles = DefaultMaxArticles
	}
	return &Crawler{fetcher: fetcher, maxArticles: maxArticles, now: time.Now}
}

// Links lists article pages linked from the site's front page.
func (c *Crawler) Links(ctx context.Context, site Site) ([]Ref, error) {
	doc, err := c.fetcher.Document(ctx, site.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", site.Name, err)
	}
	links := ArticleLinks(doc, site.URL, c.maxArticles)
	refs := make([]Ref, 0, len(links))
	for _, link := range links {
		refs = append(refs, Ref{Source: site.Name, URL: link})
	}
	return refs, nil
}

// Article downloads and parses one article.
func (c *Crawler) Article(ctx context.Context, ref Ref) (Article, error) {
	doc, err := c.fetcher.Document(ctx, ref.URL)
	if err != nil {
		return Article{}, err
	}
	article, err := ParseArticle(doc, ref.URL, ref.Source, c.now().UTC())
	if err != nil {
		return Article{}, fmt.Errorf("%s: %w", ref.URL, err)
	}
	return article, nil
}
