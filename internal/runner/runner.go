// internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/health-watchdog/internal/logging"
	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// ErrRebootRequested is returned by Run once the manager asks for a system
// reboot. The process supervisor is expected to restart the service.
var ErrRebootRequested = errors.New("runner: system reboot requested")

// Sink receives the snapshot produced by each tick.
// Errors are logged; they never stop the loop.
type Sink interface {
	Publish(s watchdog.Snapshot) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(s watchdog.Snapshot) error

func (f SinkFunc) Publish(s watchdog.Snapshot) error { return f(s) }

// Runner owns the Manager and drives it from one goroutine.
type Runner struct {
	mgr      *watchdog.Manager
	interval time.Duration
	sinks    []Sink
	log      logrus.FieldLogger
}

// New builds a Runner. interval must be > 0.
func New(mgr *watchdog.Manager, interval time.Duration, log logrus.FieldLogger, sinks ...Sink) (*Runner, error) {
	if mgr == nil {
		return nil, errors.New("runner: manager required")
	}
	if interval <= 0 {
		return nil, errors.New("runner: interval must be > 0")
	}
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	return &Runner{
		mgr:      mgr,
		interval: interval,
		sinks:    sinks,
		log:      log,
	}, nil
}

// Step runs exactly one tick and publishes the result.
func (r *Runner) Step() watchdog.Snapshot {
	r.mgr.Update()
	snap := r.mgr.Snapshot()

	for _, s := range r.sinks {
		if err := s.Publish(snap); err != nil {
			r.log.WithError(err).WithField("tick", snap.Ticks).Warn("runner: sink publish failed")
		}
	}
	return snap
}

// Run starts the ticker loop. One tick at a time. No overlap.
// It returns nil on context cancellation and ErrRebootRequested when the
// manager flags a reboot.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := r.Step()
			if snap.RebootRequested {
				r.log.WithField("tick", snap.Ticks).Error("runner: reboot requested, stopping")
				return ErrRebootRequested
			}
		}
	}
}
