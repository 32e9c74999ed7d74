package news

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/google/go-cmp/cmp"
	"github.com/jimezsa/pipecli/internal/scraper"
	"github.com/stretchr/testify/require"
)

const frontPage = `<html><body>
<nav><a href="/news">News</a><a href="/tag/markets">Markets</a></nav>
<a href="/business/markets-rally-as-rates-hold-2021-04-09/">Markets rally</a>
<a href="https://www.example.com/world/europe/123456">Europe</a>
<a href="/business/markets-rally-as-rates-hold-2021-04-09/#comments">Comments</a>
<a href="https://other.com/story-about-something-else">Elsewhere</a>
<a href="/author/jane-doe-smith">Jane</a>
<a href="mailto:tips@example.com">Tips</a>
<a href="/tech/chips-shortage-hits-carmakers">Chips</a>
</body></html>`

const articlePage = `<html><head>
<title>Markets rally | Example</title>
<meta property="og:title" content="Markets rally as rates hold">
<meta name="author" content="Jane Doe and John Roe">
<meta name="keywords" content="markets, rates , stocks">
<meta property="article:published_time" content="2021-04-09T13:45:00Z">
</head><body>
<nav><p>Menu</p></nav>
<article>
  <h1>Markets rally as rates hold</h1>
  <p>Stocks rose on Friday as the central bank held rates steady.</p>
  <figure><p>Photo caption</p></figure>
  <p>Bank stocks led the rally, with <b>rates</b> unchanged.</p>
  <script>var x = 1;</script>
</article>
<footer><p>Copyright</p></footer>
</body></html>`

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestArticleLinks(t *testing.T) {
	links := ArticleLinks(mustDoc(t, frontPage), "https://example.com/", 0)
	want := []string{
		"https://example.com/business/markets-rally-as-rates-hold-2021-04-09/",
		"https://www.example.com/world/europe/123456",
		"https://example.com/tech/chips-shortage-hits-carmakers",
	}
	if diff := cmp.Diff(want, links); diff != "" {
		t.Fatalf("ArticleLinks() mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, ArticleLinks(mustDoc(t, frontPage), "https://example.com/", 2), 2)
}

func TestArticleLinksKeepCaseDistinctPaths(t *testing.T) {
	page := `<a href="/world/Big-Story-1">One</a><a href="/world/big-story-1">Two</a><a href="/world/Big-Story-1">Again</a>`
	links := ArticleLinks(mustDoc(t, page), "https://news.example.com/", 0)
	require.Equal(t, []string{
		"https://news.example.com/world/Big-Story-1",
		"https://news.example.com/world/big-story-1",
	}, links)
}

func TestParseArticle(t *testing.T) {
	now := time.Date(2021, 4, 10, 8, 0, 0, 0, time.UTC)
	article, err := ParseArticle(mustDoc(t, articlePage), "https://example.com/a", "Example", now)
	require.NoError(t, err)

	require.Equal(t, "Markets rally as rates hold", article.Title)
	require.Equal(t, []string{"Jane Doe", "John Roe"}, article.Authors)
	require.Equal(t, []string{"markets", "rates", "stocks"}, article.MetaKeywords)
	require.NotNil(t, article.PublishedDate)
	require.Equal(t, time.Date(2021, 4, 9, 13, 45, 0, 0, time.UTC), article.PublishedDate.UTC())
	require.Equal(t,
		"Stocks rose on Friday as the central bank held rates steady.\n\nBank stocks led the rally, with rates unchanged.",
		article.ArticleText)
	require.Equal(t, "rates", article.NLPKeywords[0])
	require.Equal(t, "Example", article.Source)
	require.Equal(t, now, article.Timestamp)
}

func TestParseArticleRequiresText(t *testing.T) {
	_, err := ParseArticle(mustDoc(t, `<html><head><title>Empty</title></head><body><div>no paragraphs</div></body></html>`), "u", "s", time.Now())
	require.ErrorIs(t, err, ErrNoText)

	_, err = ParseArticle(mustDoc(t, `<html><body><p>text only</p></body></html>`), "u", "s", time.Now())
	require.ErrorIs(t, err, ErrNoTitle)
}

func TestKeywords(t *testing.T) {
	got := Keywords("Rates, rates and RATES. Stocks rally; stocks fall. The bank.", 3)
	require.Equal(t, []string{"rates", "stocks", "bank"}, got)
	require.Empty(t, Keywords("the and of", 5))
}

type pageDoer map[string]string

func (p pageDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	body, ok := p[req.URL.String()]
	status := 200
	if !ok {
		status = 404
	}
	return &fhttp.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: fhttp.Header{}}, nil
}

func TestCrawler(t *testing.T) {
	doer := pageDoer{
		"https://example.com/": frontPage,
		"https://example.com/business/markets-rally-as-rates-hold-2021-04-09/": articlePage,
	}
	crawler := NewCrawler(scraper.NewFetcher(doer, 0), 5)
	crawler.now = func() time.Time { return time.Date(2021, 4, 10, 0, 0, 0, 0, time.UTC) }

	refs, err := crawler.Links(context.Background(), Site{Name: "Example", URL: "https://example.com/"})
	require.NoError(t, err)
	require.Len(t, refs, 3)
	require.Equal(t, "Example", refs[0].Source)

	article, err := crawler.Article(context.Background(), refs[0])
	require.NoError(t, err)
	require.Equal(t, "Markets rally as rates hold", article.Title)

	_, err = crawler.Article(context.Background(), refs[2])
	var fetchErr *scraper.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, 404, fetchErr.Status)
}
