package metrics

import (
	"context"
	"net/http"

	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog"
)

// Recorder keeps run metrics in its own registry so one process can serve
// them and push them to a Pushgateway.
type Recorder struct {
	registry *prometheus.Registry
	pushURL  string
	job      string

	runs        *prometheus.CounterVec
	records     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	loadStatus  *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

func New(pushURL string, job string) *Recorder {
	if job == "" {
		job = "pipecli"
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		pushURL:  pushURL,
		job:      job,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipecli_runs_total",
				Help: "Pipeline runs by outcome",
			},
			[]string{"pipeline", "outcome"},
		),
		records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipecli_records_total",
				Help: "Items seen by each pipeline stage",
			},
			[]string{"pipeline", "stage"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipecli_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"pipeline"},
		),
		loadStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipecli_last_load_status",
				Help: "HTTP status of the most recent load",
			},
			[]string{"pipeline"},
		),
		lastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipecli_last_success_timestamp_seconds",
				Help: "Unix time of the most recent successful run",
			},
			[]string{"pipeline"},
		),
	}
}

// Observe records report. It has the pipeline.Observer signature.
func (r *Recorder) Observe(ctx context.Context, report pipeline.Report) {
	name := report.Pipeline
	outcome := report.Outcome()

	r.runs.WithLabelValues(name, outcome).Inc()
	r.records.WithLabelValues(name, "extracted").Add(float64(report.Extracted))
	r.records.WithLabelValues(name, "transformed").Add(float64(report.Transformed))
	r.records.WithLabelValues(name, "skipped").Add(float64(report.Skipped))
	r.records.WithLabelValues(name, "loaded").Add(float64(report.Loaded))
	r.duration.WithLabelValues(name).Observe(report.Duration().Seconds())
	if report.LoadStatus != 0 {
		r.loadStatus.WithLabelValues(name).Set(float64(report.LoadStatus))
	}
	if report.Succeeded() {
		r.lastSuccess.WithLabelValues(name).Set(float64(report.FinishedAt.Unix()))
	}

	if r.pushURL == "" {
		return
	}
	if err := r.Push(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("pushgateway", r.pushURL).Msg("metrics push failed")
	}
}

// Push sends the registry to the configured Pushgateway.
func (r *Recorder) Push(ctx context.Context) error {
	if r.pushURL == "" {
		return nil
	}
	return push.New(r.pushURL, r.job).Gatherer(r.registry).PushContext(ctx)
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
