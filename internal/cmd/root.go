package cmd

import (
	"github.com/alecthomas/kong"
	"github.com/jimezsa/pipecli/internal/pipelines"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Plain   bool   `help:"TSV output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Version   VersionCmd  `cmd:"" help:"Print version."`
	Config    ConfigCmd   `cmd:"" help:"Manage configuration."`
	Indeed    IndeedCmd   `cmd:"" name:"indeed" help:"Scrape Indeed listings into the central API."`
	Reddit    RedditCmd   `cmd:"" name:"reddit" help:"Store the day's top posts of a subreddit."`
	Tickers   TickersCmd  `cmd:"" name:"tickers" help:"Count daily ticker mentions in stored subreddit posts."`
	Youtube   PipelineCmd `cmd:"" name:"youtube" help:"Store daily YouTube channel statistics."`
	News      PipelineCmd `cmd:"" name:"news" help:"Crawl news sites and store their articles."`
	Countries PipelineCmd `cmd:"" name:"countries" help:"Store the REST Countries summary."`
	Query     QueryCmd    `cmd:"" help:"Read a central API resource."`
	Schedule  ScheduleCmd `cmd:"" help:"Run pipelines on their cron schedules."`
	Proxies   ProxiesCmd  `cmd:"" help:"Proxy utilities."`
}

func NewCLI() *CLI {
	return &CLI{
		Youtube:   PipelineCmd{Pipeline: pipelines.NameYoutube},
		News:      PipelineCmd{Pipeline: pipelines.NameNews},
		Countries: PipelineCmd{Pipeline: pipelines.NameCountries},
	}
}
