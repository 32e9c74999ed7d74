package cmd

import (
	"context"
	"io"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/config"
	"github.com/jimezsa/pipecli/internal/events"
	"github.com/jimezsa/pipecli/internal/metrics"
	"github.com/jimezsa/pipecli/internal/network"
	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/jimezsa/pipecli/internal/pipelines"
	"github.com/jimezsa/pipecli/internal/scraper"
	"github.com/jimezsa/pipecli/internal/ui"
	"github.com/rs/zerolog"
)

type Context struct {
	// Base is cancelled on SIGINT/SIGTERM.
	Base       context.Context
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode
}

func (c *Context) context() context.Context {
	if c.Base != nil {
		return c.Base
	}
	return context.Background()
}

func (c *Context) apiClient(cfg config.Config) (*api.Client, error) {
	return api.NewClient(api.Options{
		BaseURL:  cfg.API.BaseURL,
		Token:    cfg.API.Token,
		Username: cfg.API.Username,
		Password: cfg.API.Password,
		Timeout:  cfg.API.Timeout(),
	})
}

func (c *Context) fetcher(cfg config.Config, proxyFlag string) (*scraper.Fetcher, error) {
	proxies, err := config.LoadProxies(proxyFlag)
	if err != nil {
		return nil, err
	}

	var rotator *network.Rotator
	if len(proxies) > 0 {
		rotator, err = network.NewRotator(proxies, cfg.Scrape.ProxyBan())
		if err != nil {
			return nil, err
		}
		c.Logger.Debug().Int("proxies", rotator.Len()).Msg("rotating proxies")
	}

	client, err := network.NewClient(network.Options{Rotator: rotator, Timeout: cfg.Scrape.Timeout()})
	if err != nil {
		return nil, err
	}
	return scraper.NewFetcher(client, cfg.Scrape.Retries), nil
}

// pipelineDeps builds the shared clients for the named pipelines. The scrape
// client is only created when one of them fetches HTML.
func (c *Context) pipelineDeps(cfg config.Config, proxyFlag string, names ...string) (pipelines.Deps, error) {
	store, err := c.apiClient(cfg)
	if err != nil {
		return pipelines.Deps{}, err
	}
	deps := pipelines.Deps{Config: cfg, Store: store, Logger: c.Logger}

	for _, name := range names {
		if !pipelines.ScrapesHTML(name) {
			continue
		}
		deps.Fetcher, err = c.fetcher(cfg, proxyFlag)
		if err != nil {
			return pipelines.Deps{}, err
		}
		break
	}
	return deps, nil
}

// observability collects the observers every run reports to.
type observability struct {
	recorder  *metrics.Recorder
	publisher *events.Publisher
	observers []pipeline.Observer
}

func (c *Context) observability(cfg config.Config, extra ...pipeline.Observer) *observability {
	o := &observability{recorder: metrics.New(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)}
	o.observers = append(o.observers, o.recorder.Observe)

	if cfg.Events.NATSURL != "" {
		publisher, err := events.Connect(cfg.Events.NATSURL, cfg.Events.Subject, c.Version)
		if err != nil {
			c.Logger.Warn().Err(err).Str("url", cfg.Events.NATSURL).Msg("run events disabled")
		} else {
			o.publisher = publisher
			o.observers = append(o.observers, publisher.Observe)
		}
	}

	o.observers = append(o.observers, extra...)
	return o
}

func (o *observability) Close() {
	if o.publisher != nil {
		o.publisher.Close()
	}
}
