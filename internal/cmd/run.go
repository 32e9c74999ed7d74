package cmd

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimezsa/pipecli/internal/config"
	"github.com/jimezsa/pipecli/internal/export"
	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/jimezsa/pipecli/internal/pipelines"
)

type RunOptions struct {
	DryRun  bool   `help:"Extract and transform, then print the records instead of posting them."`
	Format  string `help:"Dry-run output format: table, csv, json, md, tsv." enum:",table,csv,json,md,tsv" default:""`
	Links   string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output  string `name:"output" short:"o" help:"Write dry-run records to a file."`
	Proxies string `help:"Comma-separated proxy URLs for page scraping." env:"PIPECLI_PROXIES"`
}

// PipelineCmd runs a pipeline configured entirely from the config file.
type PipelineCmd struct {
	RunOptions
	Pipeline string `kong:"-"`
}

func (p *PipelineCmd) Run(ctx *Context) error {
	return runPipeline(ctx, p.Pipeline, ctx.Config, p.RunOptions)
}

type IndeedCmd struct {
	Query     string  `arg:"" optional:"" help:"Job search query (default: indeed.query)."`
	Location  string  `help:"Job location (default: indeed.location)."`
	StartPage int     `help:"Page index the start URL counts as; -1 uses indeed.start_page." default:"-1"`
	MaxPages  int     `help:"Last page index to scrape; -1 uses indeed.max_pages." default:"-1"`
	Delay     float64 `help:"Seconds to wait between pages; -1 uses indeed.delay_seconds." default:"-1"`
	RunOptions
}

func (c *IndeedCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if c.Query != "" {
		cfg.Indeed.Query = c.Query
	}
	if c.Location != "" {
		cfg.Indeed.Location = c.Location
	}
	if c.StartPage >= 0 {
		cfg.Indeed.StartPage = c.StartPage
	}
	if c.MaxPages >= 0 {
		cfg.Indeed.MaxPages = c.MaxPages
	}
	if c.Delay >= 0 {
		cfg.Indeed.DelaySeconds = c.Delay
	}
	return runPipeline(ctx, pipelines.NameIndeed, cfg, c.RunOptions)
}

type RedditCmd struct {
	Subreddit string `arg:"" optional:"" help:"Subreddit without the r/ prefix (default: reddit.subreddit)."`
	Period    string `help:"Top posts period." enum:",hour,day,week,month,year,all" default:""`
	RunOptions
}

func (c *RedditCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if c.Subreddit != "" {
		cfg.Reddit.Subreddit = strings.TrimPrefix(c.Subreddit, "r/")
	}
	if c.Period != "" {
		cfg.Reddit.Period = c.Period
	}
	return runPipeline(ctx, pipelines.NameReddit, cfg, c.RunOptions)
}

type TickersCmd struct {
	Subreddit string   `arg:"" optional:"" help:"Subreddit whose stored posts are counted (default: tickers.subreddit)."`
	Indexes   []string `help:"Market indexes providing valid symbols (default: tickers.indexes)." sep:","`
	Lookback  int      `help:"Days of posts to read; 0 uses tickers.lookback_days."`
	RunOptions
}

func (c *TickersCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	if c.Subreddit != "" {
		cfg.Tickers.Subreddit = strings.TrimPrefix(c.Subreddit, "r/")
	}
	if len(c.Indexes) > 0 {
		cfg.Tickers.Indexes = c.Indexes
	}
	if c.Lookback > 0 {
		cfg.Tickers.LookbackDays = c.Lookback
	}
	return runPipeline(ctx, pipelines.NameTickers, cfg, c.RunOptions)
}

func runPipeline(ctx *Context, name string, cfg config.Config, opts RunOptions) error {
	format, err := resolveFormat(ctx, opts.Format, opts.Output)
	if err != nil {
		return err
	}

	deps, err := ctx.pipelineDeps(cfg, opts.Proxies, name)
	if err != nil {
		return err
	}
	runner, err := pipelines.New(name, deps)
	if err != nil {
		return err
	}

	obs := ctx.observability(cfg)
	defer obs.Close()

	stop := ctx.UI.Progress("running " + name)
	report, runErr := runner.Run(ctx.context(), pipeline.Options{
		Logger:    ctx.Logger,
		DryRun:    opts.DryRun,
		Observers: obs.observers,
	})
	stop()

	if opts.DryRun && report.Records != nil {
		if err := writeRecords(ctx, report.Records, format, opts); err != nil {
			return err
		}
	}

	if ctx.JSONOutput && !opts.DryRun {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		ctx.UI.Report(report)
	}

	// A failed load is reported above and is not an error of the run.
	return runErr
}

func writeRecords(ctx *Context, records any, format export.Format, opts RunOptions) error {
	out, closeOut, err := openOutput(ctx, opts.Output)
	if err != nil {
		return err
	}
	writeErr := export.WriteRecords(out, records, format, export.WriteOptions{
		ColorEnabled: ctx.UI.ColorEnabled && opts.Output == "",
		Hyperlinks:   ctx.UI.ColorEnabled && opts.Output == "",
		LinkStyle:    export.LinkStyle(opts.Links),
	})
	if err := closeOut(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr == nil && opts.Output != "" {
		ctx.UI.Infof("Wrote records to %s", opts.Output)
	}
	return writeErr
}

func openOutput(ctx *Context, path string) (io.Writer, func() error, error) {
	if strings.TrimSpace(path) == "" {
		return ctx.Out, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

// resolveFormat picks the explicit format, then the output file extension,
// then the global --json/--plain flags.
func resolveFormat(ctx *Context, value string, outputPath string) (export.Format, error) {
	if strings.TrimSpace(value) != "" {
		return export.ParseFormat(value)
	}
	if outputPath != "" {
		switch strings.ToLower(filepath.Ext(outputPath)) {
		case ".json":
			return export.FormatJSON, nil
		case ".csv":
			return export.FormatCSV, nil
		case ".md":
			return export.FormatMarkdown, nil
		case ".tsv":
			return export.FormatTSV, nil
		}
	}
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	return export.FormatTable, nil
}
