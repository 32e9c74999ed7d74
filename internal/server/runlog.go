package server

import (
	"context"
	"sync"

	"github.com/jimezsa/pipecli/internal/pipeline"
)

const DefaultRunLogSize = 100

// RunLog keeps the most recent run reports in memory.
type RunLog struct {
	mu      sync.RWMutex
	size    int
	reports []pipeline.Report
}

func NewRunLog(size int) *RunLog {
	if size <= 0 {
		size = DefaultRunLogSize
	}
	return &RunLog{size: size}
}

// Observe has the pipeline.Observer signature.
func (l *RunLog) Observe(_ context.Context, report pipeline.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reports = append(l.reports, report)
	if over := len(l.reports) - l.size; over > 0 {
		l.reports = append([]pipeline.Report(nil), l.reports[over:]...)
	}
}

// Recent returns reports newest first, optionally for one pipeline.
func (l *RunLog) Recent(name string) []pipeline.Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]pipeline.Report, 0, len(l.reports))
	for i := len(l.reports) - 1; i >= 0; i-- {
		if name != "" && l.reports[i].Pipeline != name {
			continue
		}
		out = append(out, l.reports[i])
	}
	return out
}
