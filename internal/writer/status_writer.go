// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/tamzrod/health-watchdog/internal/status"
	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// endpointClient is the exact contract the status writer uses.
// Registers are always holding registers (FC 16 semantics); the unit id is
// bound to the client.
type endpointClient interface {
	WriteRegisters(addr uint16, regs []uint16) error
}

// Target locates the status block inside the endpoint's memory.
type Target struct {
	BaseAddress uint16
}

// StatusWriter delivers encoded status blocks to one endpoint.
//
// The first write and the first write after any failure re-assert the full
// block. Otherwise only changed register runs are written.
type StatusWriter struct {
	cli    endpointClient
	target Target
	exec   failsafe.Executor[any]

	needFull bool
	last     []uint16
}

// RetryPolicy builds the per-write retry policy. retries == 0 disables retry.
// No retry starts once budget has elapsed; budget <= 0 means unbounded.
func RetryPolicy(retries int, delay, budget time.Duration) retrypolicy.RetryPolicy[any] {
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	b := retrypolicy.NewBuilder[any]().
		WithBackoff(delay, 8*delay).
		WithMaxRetries(retries)
	if budget > 0 {
		b = b.WithMaxDuration(budget)
	}
	return b.Build()
}

// NewStatusWriter builds a writer. policy wraps every register write; nil
// means a single attempt.
func NewStatusWriter(cli endpointClient, target Target, policy failsafe.Policy[any]) (*StatusWriter, error) {
	if cli == nil {
		return nil, errors.New("status writer: client required")
	}
	if policy == nil {
		policy = RetryPolicy(0, 0, 0)
	}
	return &StatusWriter{
		cli:      cli,
		target:   target,
		exec:     failsafe.With[any](policy),
		needFull: true, // full re-assert on first successful write
	}, nil
}

// Publish encodes a manager snapshot and writes it.
func (sw *StatusWriter) Publish(s watchdog.Snapshot) error {
	return sw.WriteBlock(status.Encode(s))
}

// WriteBlock delivers regs into status memory.
// On any write failure, the next call re-asserts the full block.
func (sw *StatusWriter) WriteBlock(regs []uint16) error {
	if int(sw.target.BaseAddress)+len(regs) > 0x10000 {
		return fmt.Errorf("status writer: block of %d at %d exceeds address space", len(regs), sw.target.BaseAddress)
	}

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull || len(regs) != len(sw.last) {
		if err := sw.write(0, regs); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		sw.needFull = false
		sw.last = append(sw.last[:0], regs...)
		return nil
	}

	// ------------------------------------------------------------
	// Incremental: one write per contiguous changed run
	// ------------------------------------------------------------
	var errs []string
	for _, r := range changedRuns(sw.last, regs) {
		chunk := regs[r.start:r.end]
		if err := sw.write(r.start, chunk); err != nil {
			errs = append(errs, fmt.Sprintf("slots %d..%d write failed: %v", r.start, r.end-1, err))
			continue
		}
		copy(sw.last[r.start:r.end], chunk)
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next call.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *StatusWriter) write(offset int, regs []uint16) error {
	addr := sw.target.BaseAddress + uint16(offset)
	return sw.exec.Run(func() error {
		return sw.cli.WriteRegisters(addr, regs)
	})
}

// run is a half-open slot range [start, end).
type run struct {
	start int
	end   int
}

// changedRuns returns the maximal runs where prev and next differ.
// Both slices must have the same length.
func changedRuns(prev, next []uint16) []run {
	var out []run
	for i := 0; i < len(next); {
		if prev[i] == next[i] {
			i++
			continue
		}
		j := i + 1
		for j < len(next) && prev[j] != next[j] {
			j++
		}
		out = append(out, run{start: i, end: j})
		i = j
	}
	return out
}
