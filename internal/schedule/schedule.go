package schedule

import (
	"context"
	"fmt"

	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs pipelines on cron specs. A pipeline still running when its
// next trigger fires is skipped for that trigger.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	jobs   map[string]cron.EntryID
}

func New(logger zerolog.Logger) *Scheduler {
	cronLog := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: logger,
		ctx:    context.Background(),
		jobs:   map[string]cron.EntryID{},
	}
}

// Add registers runner under spec. Runs use opts and the context passed to Run.
func (s *Scheduler) Add(spec string, runner pipeline.Runner, opts pipeline.Options) error {
	name := runner.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("schedule: %s already scheduled", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		if _, err := runner.Run(s.ctx, opts); err != nil {
			s.logger.Error().Err(err).Str("pipeline", name).Msg("scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule: %s: %w", name, err)
	}
	s.jobs[name] = id
	s.logger.Info().Str("pipeline", name).Str("spec", spec).Msg("pipeline scheduled")
	return nil
}

// Entries lists the scheduled pipelines with their next run time.
func (s *Scheduler) Entries() map[string]cron.Entry {
	out := make(map[string]cron.Entry, len(s.jobs))
	for name, id := range s.jobs {
		out[name] = s.cron.Entry(id)
	}
	return out
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// running pipelines to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
