// internal/runner/async_test.go
package runner

import (
	"context"
	"testing"
	"time"

	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// gatedSink blocks each Publish until released.
type gatedSink struct {
	entered chan uint64
	release chan struct{}
}

func (g *gatedSink) Publish(s watchdog.Snapshot) error {
	g.entered <- s.Ticks
	<-g.release
	return nil
}

func TestAsyncSink_PublishDoesNotBlockAndKeepsNewest(t *testing.T) {
	g := &gatedSink{entered: make(chan uint64, 8), release: make(chan struct{})}
	a := NewAsyncSink(g, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	_ = a.Publish(watchdog.Snapshot{Ticks: 1})
	if got := <-g.entered; got != 1 {
		t.Fatalf("first delivered tick=%d", got)
	}

	// Worker is stuck in the slow sink; these must all return at once.
	done := make(chan struct{})
	go func() {
		for tick := uint64(2); tick <= 5; tick++ {
			_ = a.Publish(watchdog.Snapshot{Ticks: tick})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked behind a slow sink")
	}

	g.release <- struct{}{}
	if got := <-g.entered; got != 5 {
		t.Fatalf("expected newest snapshot 5, got %d", got)
	}
	g.release <- struct{}{}
}
