package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/config"
	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/jimezsa/pipecli/internal/tickers"
)

const symbolColumn = "symbol"

// Tickers counts daily ticker mentions in stored subreddit posts.
type Tickers struct {
	store Store
	cfg   config.TickersConfig
	now   func() time.Time

	// symbols is filled by Extract for the Load of the same run.
	symbols [][]string
}

func NewTickers(store Store, cfg config.TickersConfig) *Tickers {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 1
	}
	return &Tickers{store: store, cfg: cfg, now: time.Now}
}

func (p *Tickers) Name() string {
	return NameTickers
}

// Extract reads the index compositions and the posts stored over the
// lookback window.
func (p *Tickers) Extract(ctx context.Context) ([]api.Row, error) {
	p.symbols = p.symbols[:0]
	for _, index := range p.cfg.Indexes {
		table, err := p.store.Get(ctx, api.IndexComposition(index), api.Filters{})
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", index, err)
		}
		p.symbols = append(p.symbols, table.Column(symbolColumn))
	}
	if len(p.symbols) == 0 {
		return nil, fmt.Errorf("no market indexes configured")
	}

	today := p.now()
	posts, err := p.store.Get(ctx, api.Subreddit(p.cfg.Subreddit), api.Filters{
		StartDate: day(today, -p.cfg.LookbackDays),
		EndDate:   day(today, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("posts: %w", err)
	}
	return posts.Rows, nil
}

func (p *Tickers) Transform(_ context.Context, row api.Row) (tickers.Post, error) {
	created, err := tickers.ParseCreatedOn(row.String("created_on"))
	if err != nil {
		return tickers.Post{}, fmt.Errorf("post %s: %w", row.String(api.IDField), err)
	}
	return tickers.Post{
		Title:     row.String("title"),
		Content:   row.String("content"),
		CreatedOn: created,
	}, nil
}

func (p *Tickers) Load(ctx context.Context, posts []tickers.Post) (int, error) {
	records := tickers.BuildFrequency(posts, p.symbols...).Records()
	if len(records) == 0 {
		return 0, fmt.Errorf("no ticker mentions in %d posts: %w", len(posts), pipeline.ErrNoRecords)
	}
	return p.store.Post(ctx, api.TickerFrequency, records)
}
