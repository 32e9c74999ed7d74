package pipelines

import (
	"context"
	"time"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/config"
	"github.com/jimezsa/pipecli/internal/reddit"
	"github.com/jimezsa/pipecli/internal/seen"
	"github.com/rs/zerolog"
)

type PostSource interface {
	TopPosts(ctx context.Context, subreddit string, period string) ([]reddit.Post, error)
	Author(ctx context.Context, name string) (*reddit.Author, error)
}

// Reddit stores the day's top posts of a subreddit with their author details.
type Reddit struct {
	source PostSource
	store  Store
	cfg    config.RedditConfig
	now    func() time.Time
}

func NewReddit(source PostSource, store Store, cfg config.RedditConfig) *Reddit {
	if cfg.Period == "" {
		cfg.Period = "day"
	}
	return &Reddit{source: source, store: store, cfg: cfg, now: time.Now}
}

func (p *Reddit) Name() string {
	return NameReddit
}

// Extract returns top posts not yet stored for yesterday through tomorrow.
// When the stored ids can't be read every post is kept.
func (p *Reddit) Extract(ctx context.Context) ([]reddit.Post, error) {
	posts, err := p.source.TopPosts(ctx, p.cfg.Subreddit, p.cfg.Period)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	today := p.now()
	var stored []string
	table, err := p.store.Get(ctx, api.Subreddit(p.cfg.Subreddit), api.Filters{
		StartDate: day(today, -1),
		EndDate:   day(today, 1),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("could not read stored posts, keeping all")
	} else {
		stored = table.IDs()
	}

	unseen, stats := seen.Diff(posts, stored, func(post reddit.Post) string { return post.ID })
	logger.Debug().
		Int("fetched", stats.TotalNew).
		Int("stored", stats.TotalSeen).
		Int("duplicates", stats.Duplicates).
		Int("new", stats.Unseen).
		Msg("filtered stored posts")
	return unseen, nil
}

func (p *Reddit) Transform(ctx context.Context, post reddit.Post) (reddit.Record, error) {
	author, err := p.source.Author(ctx, post.Author)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("post", post.ID).Msg("author unavailable")
		author = nil
	}
	return reddit.NewRecord(post, author), nil
}

func (p *Reddit) Load(ctx context.Context, records []reddit.Record) (int, error) {
	return p.store.Post(ctx, api.Subreddit(p.cfg.Subreddit), records)
}
