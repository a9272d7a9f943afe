// internal/watchdog/types.go
package watchdog

import (
	"fmt"
	"strings"
	"time"
)

// ---- HEALTH STATUS ----

// HealthStatus is the ordinal health of one module.
// Ordering is significant: a larger value is a worse status.
type HealthStatus uint8

const (
	HealthOK HealthStatus = iota
	HealthWarning
	HealthCritical
	HealthFailed
)

func (s HealthStatus) String() string {
	switch s {
	case HealthOK:
		return "OK"
	case HealthWarning:
		return "WARNING"
	case HealthCritical:
		return "CRITICAL"
	case HealthFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("HealthStatus(%d)", uint8(s))
	}
}

// IsFailure reports whether s counts toward a failure streak.
func (s HealthStatus) IsFailure() bool {
	return s >= HealthCritical
}

// ---- RECOVERY ACTION ----

// RecoveryAction is the ordinal remedial response chosen for a failing module.
type RecoveryAction uint8

const (
	RecoveryNone RecoveryAction = iota
	RecoverySoft
	RecoveryModuleRestart
	RecoverySystemReboot
	RecoveryHardwareWatchdogReset
)

func (a RecoveryAction) String() string {
	switch a {
	case RecoveryNone:
		return "NONE"
	case RecoverySoft:
		return "SOFT"
	case RecoveryModuleRestart:
		return "MODULE_RESTART"
	case RecoverySystemReboot:
		return "SYSTEM_REBOOT"
	case RecoveryHardwareWatchdogReset:
		return "HARDWARE_WATCHDOG_RESET"
	default:
		return fmt.Sprintf("RecoveryAction(%d)", uint8(a))
	}
}

// ---- MODULE IDS ----

// ModuleID identifies a monitored subsystem.
// The named constants mirror the firmware module table; other values are
// valid but print as MODULE(n).
type ModuleID int

const (
	ModuleStateMachine ModuleID = iota
	ModuleConfigManager
	ModuleLogger
	ModuleHALButton
	ModuleHALLED
	ModuleHALPIR
	ModuleWebServer
	ModuleWiFiManager
	ModuleMemory
)

var moduleNames = map[ModuleID]string{
	ModuleStateMachine:  "STATE_MACHINE",
	ModuleConfigManager: "CONFIG_MANAGER",
	ModuleLogger:        "LOGGER",
	ModuleHALButton:     "HAL_BUTTON",
	ModuleHALLED:        "HAL_LED",
	ModuleHALPIR:        "HAL_PIR",
	ModuleWebServer:     "WEB_SERVER",
	ModuleWiFiManager:   "WIFI_MANAGER",
	ModuleMemory:        "MEMORY",
}

func (id ModuleID) String() string {
	if n, ok := moduleNames[id]; ok {
		return n
	}
	return fmt.Sprintf("MODULE(%d)", int(id))
}

// ParseModuleID resolves a firmware module name such as "hal_pir".
func ParseModuleID(name string) (ModuleID, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for id, n := range moduleNames {
		if n == want {
			return id, nil
		}
	}
	return 0, fmt.Errorf("watchdog: unknown module %q", name)
}

// ---- CALLBACK CONTRACTS ----

// HealthChecker is polled once per tick. It must return promptly and must
// not block: a slow check stalls the whole tick and with it the hardware
// watchdog feed. An empty message means no message.
type HealthChecker interface {
	CheckHealth() (HealthStatus, string)
}

// HealthCheckFunc adapts a plain function to HealthChecker.
type HealthCheckFunc func() (HealthStatus, string)

func (f HealthCheckFunc) CheckHealth() (HealthStatus, string) { return f() }

// Recoverer performs module-local remediation.
// The result is advisory; a false return is logged, never escalated.
type Recoverer interface {
	Recover(action RecoveryAction) bool
}

// RecoveryFunc adapts a plain function to Recoverer.
type RecoveryFunc func(action RecoveryAction) bool

func (f RecoveryFunc) Recover(action RecoveryAction) bool { return f(action) }

// Feeder is the hardware watchdog feed signal.
type Feeder interface {
	Feed()
}

// Observer receives tick results. All calls happen inside Update, on the
// caller's goroutine.
type Observer interface {
	ModuleChecked(info ModuleInfo)
	RecoveryAttempted(rec RecoveryRecord)
	TickCompleted(system HealthStatus, fed bool)
}

// ---- READ MODELS ----

// ModuleInfo is a copy of one module record.
type ModuleInfo struct {
	ID                  ModuleID
	Status              HealthStatus
	Message             string
	ConsecutiveFailures uint32
	TotalFailures       uint32
	LastAction          RecoveryAction
	LastCheck           time.Time
	HasRecoverer        bool
}

// RecoveryRecord is one escalation decision.
type RecoveryRecord struct {
	Tick         uint64
	Module       ModuleID
	Action       RecoveryAction
	FailureCount uint32
	Recovered    bool
	Manual       bool
}

// Snapshot is the externally visible state after a tick.
type Snapshot struct {
	System          HealthStatus
	Fed             bool
	FeedCount       uint64
	Ticks           uint64
	RebootRequested bool
	Modules         []ModuleInfo
}

// Healthy reports whether the snapshot's system health permits feeding.
func (s Snapshot) Healthy() bool {
	return s.System <= HealthWarning
}

// FeederFunc adapts a plain function to Feeder.
type FeederFunc func()

func (f FeederFunc) Feed() { f() }
