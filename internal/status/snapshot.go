// internal/status/snapshot.go
package status

import "github.com/tamzrod/health-watchdog/internal/watchdog"

// HealthCode maps a watchdog status to its register code.
func HealthCode(s watchdog.HealthStatus) uint16 {
	if s > watchdog.HealthFailed {
		return HealthFailed
	}
	return uint16(s) + 1
}

// ActionCode maps a recovery action to its register code (the ordinal).
func ActionCode(a watchdog.RecoveryAction) uint16 {
	return uint16(a)
}

func saturate(v uint32) uint16 {
	if v > CounterMax {
		return CounterMax
	}
	return uint16(v)
}

func boolCode(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
