package watcher

import (
	"context"
	"time"

	"github.com/ritzau/pyimport-graph/pkg/logging"
)

// Default debounce timings.
const (
	DefaultQuietPeriod = 300 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
)

// Debouncer batches rapid file system events to avoid excessive re-analysis.
// A burst becomes one event once input has been quiet for quietPeriod, or
// at the latest maxWait after the burst started.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run processes events and applies debouncing logic
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quietTimer, maxTimer *time.Timer
		quiet, maxWait       <-chan time.Time
		pending              *ChangeEvent
		seen                 map[string]bool
		eventCount           int
	)

	stopTimers := func() {
		if quietTimer != nil {
			quietTimer.Stop()
		}
		if maxTimer != nil {
			maxTimer.Stop()
		}
		quiet, maxWait = nil, nil
	}
	defer stopTimers()

	flush := func() {
		stopTimers()
		if pending == nil {
			return
		}
		logging.Debug("flushing accumulated events", "count", eventCount, "paths", len(pending.Paths))

		pending.Timestamp = time.Now()
		select {
		case d.output <- *pending:
		case <-ctx.Done():
		}
		pending, seen, eventCount = nil, nil, 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			if pending == nil {
				pending = &ChangeEvent{Type: event.Type}
				seen = make(map[string]bool)
				maxTimer = time.NewTimer(d.maxWait)
				maxWait = maxTimer.C
			}
			// the broader change wins
			if event.Type > pending.Type {
				pending.Type = event.Type
			}
			for _, p := range event.Paths {
				if !seen[p] {
					seen[p] = true
					pending.Paths = append(pending.Paths, p)
				}
			}
			eventCount++

			if quietTimer != nil {
				quietTimer.Stop()
			}
			quietTimer = time.NewTimer(d.quietPeriod)
			quiet = quietTimer.C

		case <-quiet:
			flush()

		case <-maxWait:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
