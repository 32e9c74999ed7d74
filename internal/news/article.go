package news

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrNoTitle = errors.New("news: article has no title")
	ErrNoText  = errors.New("news: article has no text")
)

// Article is the record stored for one parsed news article.
type Article struct {
	Title         string     `json:"title"`
	Authors       []string   `json:"authors"`
	PublishedDate *time.Time `json:"published_date"`
	ArticleText   string     `json:"article_text"`
	MetaKeywords  []string   `json:"meta_keywords"`
	NLPKeywords   []string   `json:"nlp_keywords"`
	URL           string     `json:"url"`
	Source        string     `json:"source"`
	Timestamp     time.Time  `json:"timestamp"`
}

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseArticle extracts an article from its page.
func ParseArticle(doc *goquery.Document, pageURL string, source string, now time.Time) (Article, error) {
	title := firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		metaContent(doc, `meta[name="twitter:title"]`),
		doc.Find("h1").First().Text(),
		doc.Find("title").First().Text(),
	)
	if title == "" {
		return Article{}, ErrNoTitle
	}

	text := articleText(doc)
	if text == "" {
		return Article{}, ErrNoText
	}

	return Article{
		Title:         title,
		Authors:       authors(doc),
		PublishedDate: publishedDate(doc),
		ArticleText:   text,
		MetaKeywords:  splitList(metaContent(doc, `meta[name="keywords"]`, `meta[name="news_keywords"]`)),
		NLPKeywords:   Keywords(title+" "+text, DefaultKeywordCount),
		URL:           pageURL,
		Source:        source,
		Timestamp:     now,
	}, nil
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if value := strings.TrimSpace(doc.Find(selector).First().AttrOr("content", "")); value != "" {
			return value
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.Join(strings.Fields(value), " "); value != "" {
			return value
		}
	}
	return ""
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func authors(doc *goquery.Document) []string {
	var names []string
	add := func(value string) {
		value = strings.Join(strings.Fields(value), " ")
		value = strings.TrimPrefix(value, "By ")
		value = strings.TrimPrefix(value, "by ")
		for _, part := range strings.Split(value, " and ") {
			for _, name := range strings.Split(part, ",") {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
		}
	}

	doc.Find(`meta[name="author"], meta[property="article:author"]`).Each(func(_ int, s *goquery.Selection) {
		if content := s.AttrOr("content", ""); !strings.HasPrefix(content, "http") {
			add(content)
		}
	})
	if len(names) == 0 {
		doc.Find(`[rel="author"], [itemprop="author"] [itemprop="name"], .byline__name, .author-name`).Each(func(_ int, s *goquery.Selection) {
			add(s.Text())
		})
	}

	unique := []string{}
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, name)
	}
	return unique
}

func publishedDate(doc *goquery.Document) *time.Time {
	raw := firstNonEmpty(
		metaContent(doc, `meta[property="article:published_time"]`, `meta[name="pubdate"]`, `meta[name="date"]`, `meta[itemprop="datePublished"]`),
		doc.Find("time[datetime]").First().AttrOr("datetime", ""),
	)
	if raw == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	return nil
}

// articleText joins the paragraphs of the main content, preferring an
// <article> element over the whole body.
func articleText(doc *goquery.Document) string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		return ""
	}

	var paragraphs []string
	for _, node := range root.Nodes {
		collectParagraphs(node, &paragraphs)
	}
	return strings.Join(paragraphs, "\n\n")
}

func collectParagraphs(node *html.Node, out *[]string) {
	if node.Type == html.ElementNode {
		switch node.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Aside, atom.Form, atom.Figure:
			return
		case atom.P:
			if text := strings.Join(strings.Fields(nodeText(node)), " "); text != "" {
				*out = append(*out, text)
			}
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectParagraphs(child, out)
	}
}

func nodeText(node *html.Node) string {
	var buffer bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buffer.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return buffer.String()
}
