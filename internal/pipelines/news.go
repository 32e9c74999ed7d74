package pipelines

import (
	"context"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/news"
	"github.com/jimezsa/pipecli/internal/seen"
	"github.com/rs/zerolog"
)

type ArticleSource interface {
	Links(ctx context.Context, site news.Site) ([]news.Ref, error)
	Article(ctx context.Context, ref news.Ref) (news.Article, error)
}

// News crawls the configured sites and stores the parsed articles.
type News struct {
	source    ArticleSource
	store     Store
	sitesPath string
	loadSites func(path string) ([]news.Site, error)
}

func NewNews(source ArticleSource, store Store, sitesPath string) *News {
	return &News{source: source, store: store, sitesPath: sitesPath, loadSites: news.LoadSites}
}

func (p *News) Name() string {
	return NameNews
}

// Extract collects article links from every site. A site that can't be
// fetched is logged and left out.
func (p *News) Extract(ctx context.Context) ([]news.Ref, error) {
	sites, err := p.loadSites(p.sitesPath)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	var refs []news.Ref
	for _, site := range sites {
		links, err := p.source.Links(ctx, site)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Str("site", site.Name).Msg("skipping site")
			continue
		}
		logger.Debug().Str("site", site.Name).Int("links", len(links)).Msg("site crawled")
		refs = append(refs, links...)
	}
	return seen.Unique(refs, func(ref news.Ref) string { return ref.URL }), nil
}

func (p *News) Transform(ctx context.Context, ref news.Ref) (news.Article, error) {
	return p.source.Article(ctx, ref)
}

func (p *News) Load(ctx context.Context, records []news.Article) (int, error) {
	return p.store.Post(ctx, api.NewsArticles, records)
}
