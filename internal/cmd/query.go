package cmd

import (
	"strings"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/config"
	"github.com/jimezsa/pipecli/internal/export"
	"github.com/jimezsa/pipecli/internal/pipelines"
)

type QueryCmd struct {
	Resource  string            `arg:"" help:"API resource path, a pipeline name, or r/<subreddit>."`
	StartDate string            `help:"Start-Date filter (YYYY-MM-DD)."`
	EndDate   string            `help:"End-Date filter (YYYY-MM-DD)."`
	Name      string            `help:"Entity name filter."`
	Param     map[string]string `help:"Extra query parameter as key=value; repeatable."`
	Format    string            `help:"Output format: table, csv, json, md, tsv." enum:",table,csv,json,md,tsv" default:""`
	Links     string            `help:"Table link display: short or full." enum:"short,full" default:"short"`
	Output    string            `name:"output" short:"o" help:"Write output to a file."`
}

func (q *QueryCmd) Run(ctx *Context) error {
	format, err := resolveFormat(ctx, q.Format, q.Output)
	if err != nil {
		return err
	}
	client, err := ctx.apiClient(ctx.Config)
	if err != nil {
		return err
	}

	params := map[string]string{}
	for key, value := range q.Param {
		params[key] = value
	}
	if q.Name != "" {
		params["name"] = q.Name
	}

	resource := resolveResource(q.Resource, ctx.Config)
	table, err := client.Get(ctx.context(), resource, api.Filters{
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Params:    params,
	})
	if err != nil {
		return err
	}
	ctx.Logger.Debug().Str("resource", resource).Int("rows", table.Len()).Msg("queried")

	out, closeOut, err := openOutput(ctx, q.Output)
	if err != nil {
		return err
	}
	writeErr := export.WriteTable(out, table, format, export.WriteOptions{
		ColorEnabled: ctx.UI.ColorEnabled && q.Output == "",
		Hyperlinks:   ctx.UI.ColorEnabled && q.Output == "",
		LinkStyle:    export.LinkStyle(q.Links),
		MaxWidth:     80,
	})
	if err := closeOut(); err != nil && writeErr == nil {
		writeErr = err
	}
	return writeErr
}

// resolveResource maps pipeline names and r/<name> shorthands to the
// resource the pipeline writes. Anything else is used as given.
func resolveResource(value string, cfg config.Config) string {
	value = strings.TrimSpace(value)
	switch value {
	case pipelines.NameIndeed:
		return api.IndeedListings
	case pipelines.NameReddit:
		return api.Subreddit(cfg.Reddit.Subreddit)
	case pipelines.NameTickers:
		return api.TickerFrequency
	case pipelines.NameYoutube:
		return api.YoutubeChannels
	case pipelines.NameNews:
		return api.NewsArticles
	case pipelines.NameCountries:
		return api.CountrySummaries
	}
	if strings.HasPrefix(value, "r/") {
		return api.Subreddit(value)
	}
	return value
}
