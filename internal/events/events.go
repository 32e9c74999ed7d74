package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const Source = "pipecli"

// Conn is the part of a NATS connection the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// RunMessage is published once per finished pipeline run.
type RunMessage struct {
	Report    pipeline.Report `json:"report"`
	Outcome   string          `json:"outcome"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
}

// Publisher sends run summaries to NATS.
type Publisher struct {
	conn    Conn
	subject string
	version string
}

func Connect(url string, subject string, version string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name(Source), nats.MaxReconnects(5), nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, err
	}
	return NewPublisher(nc, subject, version), nil
}

func NewPublisher(conn Conn, subject string, version string) *Publisher {
	return &Publisher{conn: conn, subject: subject, version: version}
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Publish sends one run summary and flushes it.
func (p *Publisher) Publish(report pipeline.Report) error {
	message := RunMessage{
		Report:    report,
		Outcome:   outcome(report),
		Timestamp: time.Now().UTC(),
		Source:    Source,
		Version:   p.version,
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return err
	}
	return p.conn.Flush()
}

// Observe has the pipeline.Observer signature; failures are only logged.
func (p *Publisher) Observe(ctx context.Context, report pipeline.Report) {
	if err := p.Publish(report); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("subject", p.subject).Msg("run event not published")
	}
}

func outcome(report pipeline.Report) string {
	if report.Succeeded() {
		return "ok"
	}
	return "failed"
}
