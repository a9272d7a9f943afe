// internal/config/budget.go
package config

import (
	"fmt"
	"time"
)

// TickBudget is the worst-case time between two feeds: one tick interval
// plus every Modbus probe timing out in the same tick.
// Config must be normalized.
func TickBudget(cfg *Config) time.Duration {
	d := time.Duration(cfg.Watchdog.TickMs) * time.Millisecond
	for _, m := range cfg.Modules {
		if m.Probe.Kind == ProbeModbus {
			d += time.Duration(m.Probe.TimeoutMs) * time.Millisecond
		}
	}
	return d
}

// CheckHardwareTimeout rejects a config whose tick budget does not fit
// below the hardware watchdog timeout. A zero timeout means unknown.
func CheckHardwareTimeout(cfg *Config, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	if budget := TickBudget(cfg); budget >= timeout {
		return fmt.Errorf(
			"watchdog.tick_ms plus probe timeouts (%s) must be below the hardware watchdog timeout (%s)",
			budget, timeout,
		)
	}
	return nil
}
