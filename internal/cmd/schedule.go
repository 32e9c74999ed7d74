package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/jimezsa/pipecli/internal/pipelines"
	"github.com/jimezsa/pipecli/internal/schedule"
	"github.com/jimezsa/pipecli/internal/server"
)

const runLogSize = 200

type ScheduleCmd struct {
	Pipelines []string `arg:"" optional:"" help:"Pipelines to schedule (default: every pipeline with a schedule entry)."`
	Listen    string   `help:"Status server address (default: metrics.listen_addr)."`
	Proxies   string   `help:"Comma-separated proxy URLs for page scraping." env:"PIPECLI_PROXIES"`
}

func (s *ScheduleCmd) Run(ctx *Context) error {
	cfg := ctx.Config
	names, err := scheduledPipelines(s.Pipelines, cfg.Schedule)
	if err != nil {
		return err
	}

	deps, err := ctx.pipelineDeps(cfg, s.Proxies, names...)
	if err != nil {
		return err
	}

	runs := server.NewRunLog(runLogSize)
	obs := ctx.observability(cfg, runs.Observe)
	defer obs.Close()

	runners, err := scheduledRunners(names, deps, len(s.Pipelines) > 0, ctx.UI.Warnf)
	if err != nil {
		return err
	}

	scheduler := schedule.New(ctx.Logger.With().Str("component", "schedule").Logger())
	names = names[:0]
	for _, runner := range runners {
		opts := pipeline.Options{Logger: ctx.Logger, Observers: obs.observers}
		if err := scheduler.Add(cfg.Schedule[runner.Name()], runner, opts); err != nil {
			return err
		}
		names = append(names, runner.Name())
	}

	addr := s.Listen
	if addr == "" {
		addr = cfg.Metrics.ListenAddr
	}
	srv := server.New(addr, server.NewRouter(obs.recorder.Handler(), runs, names), ctx.Logger)

	runCtx, cancel := context.WithCancel(ctx.context())
	defer cancel()
	serverErr := make(chan error, 1)
	go func() {
		err := srv.Run(runCtx)
		if err != nil {
			cancel()
		}
		serverErr <- err
	}()

	ctx.UI.Infof("Scheduled %d pipelines; status on %s", len(names), addr)
	schedErr := scheduler.Run(runCtx)
	cancel()
	if err := <-serverErr; err != nil {
		return fmt.Errorf("status server: %w", err)
	}
	return schedErr
}

// scheduledRunners builds a runner per name. Explicitly requested pipelines
// must build; from the default list, unconfigured ones are skipped with a
// warning.
func scheduledRunners(names []string, deps pipelines.Deps, requested bool, warnf func(string, ...any)) ([]pipeline.Runner, error) {
	runners := make([]pipeline.Runner, 0, len(names))
	for _, name := range names {
		runner, err := pipelines.New(name, deps)
		if err != nil {
			if requested {
				return nil, err
			}
			warnf("Skipping %v", err)
			continue
		}
		runners = append(runners, runner)
	}
	if len(runners) == 0 {
		return nil, errors.New("no scheduled pipeline is configured")
	}
	return runners, nil
}

// scheduledPipelines validates the requested names, or lists every known
// pipeline with a cron spec when none are requested.
func scheduledPipelines(requested []string, specs map[string]string) ([]string, error) {
	known := map[string]bool{}
	for _, name := range pipelines.Names() {
		known[name] = true
	}

	if len(requested) == 0 {
		var names []string
		for _, name := range pipelines.Names() {
			if specs[name] != "" {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no pipelines have a schedule entry")
		}
		return names, nil
	}

	names := make([]string, 0, len(requested))
	seen := map[string]bool{}
	for _, name := range requested {
		if !known[name] {
			return nil, fmt.Errorf("unknown pipeline %q", name)
		}
		if specs[name] == "" {
			return nil, fmt.Errorf("%s: no schedule entry", name)
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
