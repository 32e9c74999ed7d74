package pipelines

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/config"
	"github.com/jimezsa/pipecli/internal/models"
	"github.com/jimezsa/pipecli/internal/news"
	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/jimezsa/pipecli/internal/reddit"
	"github.com/jimezsa/pipecli/internal/scraper"
	"github.com/jimezsa/pipecli/internal/tickers"
	"github.com/jimezsa/pipecli/internal/youtube"
	"github.com/rs/zerolog"
)

const (
	NameIndeed    = "indeed"
	NameReddit    = "reddit"
	NameTickers   = "tickers"
	NameYoutube   = "youtube"
	NameNews      = "news"
	NameCountries = "countries"
)

var errNoFetcher = errors.New("scrape client is required")

// Deps are the shared clients pipelines are built from.
type Deps struct {
	Config config.Config
	Store  Store
	// Fetcher is only needed by the HTML pipelines.
	Fetcher *scraper.Fetcher
	Logger  zerolog.Logger
}

type factory func(deps Deps) (pipeline.Runner, error)

var names = []string{NameIndeed, NameReddit, NameTickers, NameYoutube, NameNews, NameCountries}

var factories = map[string]factory{
	NameIndeed:    newIndeed,
	NameReddit:    newReddit,
	NameTickers:   newTickers,
	NameYoutube:   newYoutube,
	NameNews:      newNews,
	NameCountries: newCountries,
}

// Names lists the known pipelines in a stable order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// ScrapesHTML reports whether the named pipeline needs Deps.Fetcher.
func ScrapesHTML(name string) bool {
	return name == NameIndeed || name == NameNews
}

// New builds the named pipeline.
func New(name string, deps Deps) (pipeline.Runner, error) {
	build, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q", name)
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("%s: central api client is required", name)
	}
	runner, err := build(deps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return runner, nil
}

func newIndeed(deps Deps) (pipeline.Runner, error) {
	cfg := deps.Config.Indeed
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Fetcher == nil {
		return nil, errNoFetcher
	}
	source := scraper.NewIndeed(deps.Fetcher, scraper.IndeedOptions{
		Delay:  cfg.Delay(),
		Logger: deps.Logger.With().Str("scraper", NameIndeed).Logger(),
	})
	return pipeline.Bind[models.Listing, models.Listing](NewIndeed(source, deps.Store, cfg)), nil
}

func newReddit(deps Deps) (pipeline.Runner, error) {
	cfg := deps.Config.Reddit
	if cfg.Subreddit == "" {
		return nil, errors.New("subreddit is required")
	}
	client := reddit.NewClient(reddit.Options{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		UserAgent:    cfg.UserAgent,
		Limit:        cfg.Limit,
		Timeout:      deps.Config.API.Timeout(),
	})
	return pipeline.Bind[reddit.Post, reddit.Record](NewReddit(client, deps.Store, cfg)), nil
}

func newTickers(deps Deps) (pipeline.Runner, error) {
	cfg := deps.Config.Tickers
	if cfg.Subreddit == "" {
		return nil, errors.New("subreddit is required")
	}
	return pipeline.Bind[api.Row, tickers.Post](NewTickers(deps.Store, cfg)), nil
}

func newYoutube(deps Deps) (pipeline.Runner, error) {
	cfg := deps.Config.Youtube
	if len(cfg.Channels) == 0 {
		return nil, errors.New("no channels configured")
	}
	client, err := youtube.NewClient(youtube.Options{
		APIKey:  cfg.APIKey,
		Timeout: deps.Config.API.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	channels := make([]youtube.Channel, 0, len(cfg.Channels))
	for _, channel := range cfg.Channels {
		channels = append(channels, youtube.Channel{ID: channel.ID, Name: channel.Name})
	}
	return pipeline.Bind[ChannelStats, youtube.Record](NewYoutube(client, deps.Store, channels)), nil
}

func newNews(deps Deps) (pipeline.Runner, error) {
	if deps.Fetcher == nil {
		return nil, errNoFetcher
	}
	path, err := deps.Config.NewsSitesPath()
	if err != nil {
		return nil, err
	}
	crawler := news.NewCrawler(deps.Fetcher, deps.Config.News.MaxArticles)
	return pipeline.Bind[news.Ref, news.Article](NewNews(crawler, deps.Store, path)), nil
}

func newCountries(deps Deps) (pipeline.Runner, error) {
	url := deps.Config.Countries.URL
	if url == "" {
		url = config.DefaultCountryURL
	}
	return pipeline.Bind[json.RawMessage, json.RawMessage](NewCountries(url, deps.Config.API.Timeout(), deps.Store)), nil
}
