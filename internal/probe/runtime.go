// internal/probe/runtime.go
package probe

import (
	"fmt"
	"runtime"

	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// MemoryProbe checks heap in use, the host analogue of a free-heap check.
type MemoryProbe struct {
	Levels Levels

	// read is swapped in tests.
	read func() uint64
}

func NewMemoryProbe(l Levels) *MemoryProbe {
	return &MemoryProbe{Levels: l, read: heapInUse}
}

func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapInuse
}

func (p *MemoryProbe) CheckHealth() (watchdog.HealthStatus, string) {
	v := p.read()
	s := p.Levels.Classify(v)
	if s == watchdog.HealthOK {
		return s, ""
	}
	return s, fmt.Sprintf("heap in use %dKB", v/1024)
}

// GoroutineProbe flags runaway goroutine growth.
type GoroutineProbe struct {
	Levels Levels

	count func() int
}

func NewGoroutineProbe(l Levels) *GoroutineProbe {
	return &GoroutineProbe{Levels: l, count: runtime.NumGoroutine}
}

func (p *GoroutineProbe) CheckHealth() (watchdog.HealthStatus, string) {
	n := p.count()
	s := p.Levels.Classify(uint64(n))
	if s == watchdog.HealthOK {
		return s, ""
	}
	return s, fmt.Sprintf("%d goroutines", n)
}
