package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNoRecords marks a run that had nothing to load.
	ErrNoRecords = errors.New("pipeline: no records to load")
	// ErrSkip lets Transform drop an item without it being logged as a failure.
	ErrSkip = errors.New("pipeline: item skipped")
)

// Pipeline is one extract -> transform -> load job. Extract gathers raw
// items, Transform maps each to a record, Load writes the batch and returns
// the status code of the write. Load may return ErrNoRecords when the batch
// reduces to nothing worth writing.
type Pipeline[I, R any] interface {
	Name() string
	Extract(ctx context.Context) ([]I, error)
	Transform(ctx context.Context, item I) (R, error)
	Load(ctx context.Context, records []R) (int, error)
}

// Observer is told about every finished run.
type Observer func(ctx context.Context, report Report)

type Options struct {
	Logger    zerolog.Logger
	DryRun    bool
	Observers []Observer
	now       func() time.Time
}

// Report summarizes one run.
type Report struct {
	RunID       string    `json:"run_id"`
	Pipeline    string    `json:"pipeline"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Extracted   int       `json:"extracted"`
	Transformed int       `json:"transformed"`
	Skipped     int       `json:"skipped"`
	Loaded      int       `json:"loaded"`
	LoadStatus  int       `json:"load_status,omitempty"`
	LoadError   string    `json:"load_error,omitempty"`
	Error       string    `json:"error,omitempty"`
	Empty       bool      `json:"empty,omitempty"`
	DryRun      bool      `json:"dry_run,omitempty"`
	// Records holds the transformed batch of a dry run.
	Records any `json:"-"`
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome classifies a finished run.
func (r Report) Outcome() string {
	switch {
	case r.Error != "":
		return "extract_error"
	case r.LoadError != "":
		return "load_error"
	case r.Empty:
		return "empty"
	case r.DryRun:
		return "dry_run"
	default:
		return "success"
	}
}

// Succeeded is false when extraction or the load failed.
func (r Report) Succeeded() bool {
	return r.Error == "" && r.LoadError == ""
}

// Run sequences p. Only an extract failure is returned as an error; item
// and load failures are logged and recorded in the report.
func Run[I, R any](ctx context.Context, p Pipeline[I, R], opts Options) (Report, error) {
	now := opts.now
	if now == nil {
		now = time.Now
	}

	report := Report{
		RunID:     uuid.NewString(),
		Pipeline:  p.Name(),
		StartedAt: now(),
		DryRun:    opts.DryRun,
	}
	logger := opts.Logger.With().Str("pipeline", report.Pipeline).Str("run_id", report.RunID).Logger()
	ctx = logger.WithContext(ctx)

	finish := func() Report {
		report.FinishedAt = now()
		for _, observe := range opts.Observers {
			observe(ctx, report)
		}
		return report
	}

	logger.Info().Msg("extracting")
	items, err := p.Extract(ctx)
	if err != nil {
		report.Error = err.Error()
		logger.Error().Err(err).Msg("extract failed")
		return finish(), fmt.Errorf("%s: extract: %w", report.Pipeline, err)
	}
	report.Extracted = len(items)

	records := make([]R, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			report.Error = err.Error()
			return finish(), err
		}
		record, err := p.Transform(ctx, item)
		if err != nil {
			report.Skipped++
			if errors.Is(err, ErrSkip) {
				logger.Debug().Err(err).Int("item", i).Msg("item skipped")
			} else {
				logger.Warn().Err(err).Int("item", i).Msg("transform failed, skipping item")
			}
			continue
		}
		records = append(records, record)
	}
	report.Transformed = len(records)

	if len(records) == 0 {
		report.Empty = true
		logger.Info().Int("extracted", report.Extracted).Msg(ErrNoRecords.Error())
		return finish(), nil
	}

	if opts.DryRun {
		report.Records = records
		logger.Info().Int("records", len(records)).Msg("dry run, not loading")
		return finish(), nil
	}

	status, err := p.Load(ctx, records)
	report.LoadStatus = status
	if errors.Is(err, ErrNoRecords) {
		report.Empty = true
		logger.Info().Int("transformed", report.Transformed).Msg(ErrNoRecords.Error())
		return finish(), nil
	}
	if err != nil {
		report.LoadError = err.Error()
		logger.Error().Err(err).Int("status", status).Int("records", len(records)).Msg("load failed")
		return finish(), nil
	}
	report.Loaded = len(records)
	logger.Info().Int("status", status).Int("records", len(records)).Msg("loaded")
	return finish(), nil
}

// Runner is a pipeline with its item and record types erased.
type Runner interface {
	Name() string
	Run(ctx context.Context, opts Options) (Report, error)
}

type bound[I, R any] struct {
	p Pipeline[I, R]
}

// Bind wraps p so pipelines of different types can share a registry.
func Bind[I, R any](p Pipeline[I, R]) Runner {
	return bound[I, R]{p: p}
}

func (b bound[I, R]) Name() string {
	return b.p.Name()
}

func (b bound[I, R]) Run(ctx context.Context, opts Options) (Report, error) {
	return Run(ctx, b.p, opts)
}
