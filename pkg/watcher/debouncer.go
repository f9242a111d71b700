package watcher

import (
	"context"
	"slices"
	"time"

	"github.com/ritzau/agentgraph/pkg/logging"
)

// Debouncer batches rapid file system events so a burst of saves causes a
// single reload. A batch is emitted once input has been quiet for the quiet
// period, or when the first event of the batch is maxWait old.
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

// run processes events and applies debouncing logic. Timers are owned by
// this goroutine only.
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet      = stoppedTimer()
		deadline   = stoppedTimer()
		paths      []string
		latest     ChangeType
		eventCount int
	)

	flush := func() {
		quiet.Stop()
		deadline.Stop()
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount, "type", latest.String())
		d.output <- ChangeEvent{Type: latest, Paths: paths, Timestamp: time.Now()}

		paths = nil
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			// The most recent change decides what the batch means
			latest = event.Type
			for _, p := range event.Paths {
				if !slices.Contains(paths, p) {
					paths = append(paths, p)
				}
			}
			if eventCount == 0 {
				deadline.Reset(d.maxWait)
			}
			eventCount++
			quiet.Reset(d.quietPeriod)

		case <-quiet.C:
			flush()

		case <-deadline.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}
