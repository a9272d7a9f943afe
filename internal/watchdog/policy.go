// internal/watchdog/policy.go
package watchdog

// Thresholds configure escalation by consecutive failure count.
// Soft < ModuleRestart < SystemReboot is a precondition; it is validated at
// the config layer, not here.
type Thresholds struct {
	Soft          uint32
	ModuleRestart uint32
	SystemReboot  uint32
}

// DefaultThresholds returns (2, 5, 10).
func DefaultThresholds() Thresholds {
	return Thresholds{
		Soft:          2,
		ModuleRestart: 5,
		SystemReboot:  10,
	}
}

// Action maps a consecutive failure count to a recovery action.
//
//	n <  Soft                      SOFT
//	Soft <= n < ModuleRestart      MODULE_RESTART
//	ModuleRestart <= n < Reboot    SYSTEM_REBOOT
//	n >= SystemReboot              HARDWARE_WATCHDOG_RESET
func (t Thresholds) Action(n uint32) RecoveryAction {
	switch {
	case n >= t.SystemReboot:
		return RecoveryHardwareWatchdogReset
	case n >= t.ModuleRestart:
		return RecoverySystemReboot
	case n >= t.Soft:
		return RecoveryModuleRestart
	default:
		return RecoverySoft
	}
}
