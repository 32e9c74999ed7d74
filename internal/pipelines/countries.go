package pipelines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/pipeline"
)

// Countries copies the REST Countries summary into the central API as-is.
type Countries struct {
	http  *resty.Client
	url   string
	store Store
}

func NewCountries(url string, timeout time.Duration, store Store) *Countries {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetHeader("accept", "application/json")
	return &Countries{http: client, url: url, store: store}
}

func (p *Countries) Name() string {
	return NameCountries
}

func (p *Countries) Extract(ctx context.Context) ([]json.RawMessage, error) {
	res, err := p.http.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return nil, fmt.Errorf("countries: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("countries: %s: http %d", p.url, res.StatusCode())
	}

	var items []json.RawMessage
	if err := json.Unmarshal(res.Body(), &items); err != nil {
		return nil, fmt.Errorf("countries: decode: %w", err)
	}
	return items, nil
}

func (p *Countries) Transform(_ context.Context, item json.RawMessage) (json.RawMessage, error) {
	if trimmed := bytes.TrimSpace(item); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, pipeline.ErrSkip
	}
	return item, nil
}

func (p *Countries) Load(ctx context.Context, records []json.RawMessage) (int, error) {
	return p.store.Post(ctx, api.CountrySummaries, records)
}
