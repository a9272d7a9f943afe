// internal/probe/builder.go
package probe

import (
	"fmt"
	"time"

	"github.com/tamzrod/health-watchdog/internal/config"
	"github.com/tamzrod/health-watchdog/internal/modbus"
	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// Build constructs the health checker for one configured module.
//
// Runtime probes have no recoverer. Register probes recover by reconnecting
// and own a connection, released by the returned closer.
// Config is assumed validated and normalized.
func Build(m config.ModuleConfig) (watchdog.HealthChecker, watchdog.Recoverer, func() error, error) {
	levels := Levels{Warning: m.Probe.Warning, Critical: m.Probe.Critical}
	noop := func() error { return nil }

	switch m.Probe.Kind {
	case config.ProbeMemory:
		return NewMemoryProbe(levels), nil, noop, nil

	case config.ProbeGoroutines:
		return NewGoroutineProbe(levels), nil, noop, nil

	case config.ProbeModbus:
		// client factory: ONE attempt per call
		factory := func() (Client, error) {
			c, err := modbus.New(modbus.Config{
				Endpoint: m.Probe.Endpoint,
				UnitID:   m.Probe.UnitID,
				Timeout:  time.Duration(m.Probe.TimeoutMs) * time.Millisecond,
			})
			if err != nil {
				return nil, err
			}
			if err := c.Connect(); err != nil {
				return nil, err
			}
			return c, nil
		}

		p, err := NewRegisterProbe(m.Probe.FC, m.Probe.Address, levels, factory)
		if err != nil {
			return nil, nil, nil, err
		}
		return p, p, p.Close, nil
	}

	return nil, nil, nil, fmt.Errorf("probe: unknown kind %q (module=%s)", m.Probe.Kind, m.Name)
}
