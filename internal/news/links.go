package news

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/pipecli/internal/seen"
)

var skipSegments = map[string]struct{}{
	"tag": {}, "tags": {}, "topic": {}, "topics": {}, "author": {}, "authors": {},
	"video": {}, "videos": {}, "live": {}, "search": {}, "login": {}, "account": {},
	"subscribe": {}, "newsletters": {}, "about": {}, "contact": {}, "privacy": {}, "terms": {},
}

// ArticleLinks collects up to max distinct links on the site's own host
// that look like article pages.
func ArticleLinks(doc *goquery.Document, pageURL string, max int) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		target := base.ResolveReference(ref)
		target.Fragment = ""
		if !sameHost(base, target) || !looksLikeArticle(target) {
			return
		}
		links = append(links, target.String())
	})

	links = seen.Unique(links, func(link string) string { return link })
	if max > 0 && len(links) > max {
		links = links[:max]
	}
	return links
}

func sameHost(base *url.URL, target *url.URL) bool {
	if target.Scheme != "http" && target.Scheme != "https" {
		return false
	}
	return strings.TrimPrefix(target.Hostname(), "www.") == strings.TrimPrefix(base.Hostname(), "www.")
}

// Article URLs tend to be deep paths with a slug or an id.
func looksLikeArticle(u *url.URL) bool {
	clean := strings.Trim(path.Clean(u.Path), "/")
	if clean == "" || clean == "." {
		return false
	}
	segments := strings.Split(clean, "/")
	for _, segment := range segments {
		if _, skip := skipSegments[strings.ToLower(segment)]; skip {
			return false
		}
	}
	last := segments[len(segments)-1]
	if strings.Count(last, "-") >= 2 {
		return true
	}
	return len(segments) >= 2 && strings.IndexFunc(last, isDigit) >= 0
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
