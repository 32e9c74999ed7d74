package pipelines

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/config"
	"github.com/jimezsa/pipecli/internal/models"
	"github.com/jimezsa/pipecli/internal/seen"
	"github.com/rs/zerolog"
)

type ListingSource interface {
	Search(ctx context.Context, base string, params models.ScrapeParams) ([]models.Listing, error)
}

// Indeed scrapes job listings and stores them in the central API.
type Indeed struct {
	source ListingSource
	store  Store
	cfg    config.IndeedConfig
	now    func() time.Time
}

func NewIndeed(source ListingSource, store Store, cfg config.IndeedConfig) *Indeed {
	return &Indeed{source: source, store: store, cfg: cfg, now: time.Now}
}

func (p *Indeed) Name() string {
	return NameIndeed
}

// Extract walks the result pages. Sponsored cards repeat across pages, so
// listings are collapsed by id keeping the first occurrence.
func (p *Indeed) Extract(ctx context.Context) ([]models.Listing, error) {
	listings, err := p.source.Search(ctx, p.cfg.BaseURL, models.ScrapeParams{
		Query:     p.cfg.Query,
		Location:  p.cfg.Location,
		StartPage: p.cfg.StartPage,
		MaxPages:  p.cfg.MaxPages,
		Today:     p.now(),
	})
	if err != nil {
		return nil, err
	}

	unique := seen.Unique(listings, func(l models.Listing) string { return l.ID })
	if dropped := len(listings) - len(unique); dropped > 0 {
		zerolog.Ctx(ctx).Debug().Int("duplicates", dropped).Msg("dropped repeated listings")
	}
	return unique, nil
}

func (p *Indeed) Transform(_ context.Context, listing models.Listing) (models.Listing, error) {
	switch {
	case listing.ID == "":
		return listing, errors.New("listing without id")
	case listing.Title == "":
		return listing, fmt.Errorf("listing %s: missing title", listing.ID)
	case listing.Location == "":
		return listing, fmt.Errorf("listing %s: missing location", listing.ID)
	}
	return listing, nil
}

func (p *Indeed) Load(ctx context.Context, records []models.Listing) (int, error) {
	return p.store.Post(ctx, api.IndeedListings, records)
}
