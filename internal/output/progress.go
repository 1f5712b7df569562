package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/flood/internal/metrics"
)

// Snapshotter is the view of a running aggregation the reporter polls.
type Snapshotter interface {
	Snapshot(elapsed time.Duration) metrics.Stats
}

// ProgressReporter displays real-time progress updates and records a
// history point on every tick.
type ProgressReporter struct {
	source   Snapshotter
	history  *metrics.History
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
// history may be nil.
func NewProgressReporter(source Snapshotter, history *metrics.History, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	if history == nil {
		history = &metrics.History{}
	}
	return &ProgressReporter{
		source:   source,
		history:  history,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates and terminates the progress line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

// History returns the points recorded so far.
func (p *ProgressReporter) History() []metrics.DataPoint {
	return p.history.Points()
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case now := <-p.ticker.C:
			stats := p.source.Snapshot(now.Sub(p.start))
			point := p.history.Add(stats, now)
			fmt.Fprintf(p.writer, "\rRequests: %d | Success: %d | Failures: %d | RPS: %.1f | P99: %.1fms",
				stats.Total, stats.Successes, stats.Failures, point.CurrentRPS, stats.P99LatencyMs)
		case <-p.done:
			return
		}
	}
}
