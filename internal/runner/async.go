// internal/runner/async.go
package runner

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/health-watchdog/internal/logging"
	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// AsyncSink moves a slow sink (network export) off the tick goroutine.
//
// Publish never blocks. Only the newest pending snapshot is kept; older
// ones are dropped, since every snapshot is a full state.
type AsyncSink struct {
	next Sink
	log  logrus.FieldLogger
	in   chan watchdog.Snapshot
}

func NewAsyncSink(next Sink, log logrus.FieldLogger) *AsyncSink {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &AsyncSink{
		next: next,
		log:  log,
		in:   make(chan watchdog.Snapshot, 1),
	}
}

// Publish hands s to the worker, replacing any snapshot not yet taken.
func (a *AsyncSink) Publish(s watchdog.Snapshot) error {
	for {
		select {
		case a.in <- s:
			return nil
		default:
		}
		// Full: drop the stale snapshot and retry.
		select {
		case <-a.in:
		default:
		}
	}
}

// Run delivers snapshots until ctx is cancelled. One goroutine only.
func (a *AsyncSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-a.in:
			if err := a.next.Publish(s); err != nil {
				a.log.WithError(err).WithField("tick", s.Ticks).Warn("runner: async publish failed")
			}
		}
	}
}
