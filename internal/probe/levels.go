// internal/probe/levels.go
package probe

import "github.com/tamzrod/health-watchdog/internal/watchdog"

// Classify maps a reading onto a health status.
func (l Levels) Classify(v uint64) watchdog.HealthStatus {
	switch {
	case l.Critical != 0 && v >= l.Critical:
		return watchdog.HealthCritical
	case l.Warning != 0 && v >= l.Warning:
		return watchdog.HealthWarning
	default:
		return watchdog.HealthOK
	}
}
