// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/health-watchdog/internal/status"
	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug|info|warn|error", cfg.Log.Level)
	}

	// ------------------------------------------------------------
	// WATCHDOG
	// ------------------------------------------------------------

	w := cfg.Watchdog
	if w.TickMs < 0 {
		return fmt.Errorf("watchdog.tick_ms must be >= 0, got %d", w.TickMs)
	}
	if w.HistoryLimit < 0 {
		return fmt.Errorf("watchdog.history_limit must be >= 0, got %d", w.HistoryLimit)
	}

	if t := w.Thresholds; !t.isZero() {
		if t.Soft == 0 || t.ModuleRestart == 0 || t.SystemReboot == 0 {
			return fmt.Errorf("watchdog.thresholds: set all of soft, module_restart, system_reboot or none")
		}
		if !(t.Soft < t.ModuleRestart && t.ModuleRestart < t.SystemReboot) {
			return fmt.Errorf(
				"watchdog.thresholds must be strictly increasing: soft=%d module_restart=%d system_reboot=%d",
				t.Soft,
				t.ModuleRestart,
				t.SystemReboot,
			)
		}
	}

	// ------------------------------------------------------------
	// MODULES
	// ------------------------------------------------------------

	if len(cfg.Modules) == 0 {
		return fmt.Errorf("modules: at least one module is required")
	}

	seen := make(map[watchdog.ModuleID]int)

	for i, m := range cfg.Modules {
		id, err := watchdog.ParseModuleID(m.Name)
		if err != nil {
			return fmt.Errorf("modules[%d]: %w", i, err)
		}
		if prev, exists := seen[id]; exists {
			return fmt.Errorf("modules[%d]: module %s already configured at modules[%d]", i, id, prev)
		}
		seen[id] = i

		if err := validateProbe(m.Probe); err != nil {
			return fmt.Errorf("modules[%d] (%s): %w", i, id, err)
		}
	}

	// ------------------------------------------------------------
	// STATUS EXPORT GEOMETRY (OPT-IN)
	// ------------------------------------------------------------

	se := cfg.StatusExport
	if se.Enabled() {
		if se.TimeoutMs < 0 {
			return fmt.Errorf("status_export.timeout_ms must be >= 0, got %d", se.TimeoutMs)
		}
		if se.Retries < -1 {
			return fmt.Errorf("status_export.retries must be >= -1, got %d", se.Retries)
		}

		size := status.BlockSize(len(cfg.Modules))
		end := int(se.BaseAddress) + size - 1
		if end > 0xFFFF {
			return fmt.Errorf(
				"status_export: block of %d registers at base_address=%d exceeds the register space",
				size,
				se.BaseAddress,
			)
		}
	}

	return nil
}

func validateProbe(p ProbeConfig) error {
	kind := strings.ToLower(strings.TrimSpace(p.Kind))

	switch kind {
	case ProbeMemory, ProbeGoroutines, ProbeModbus:
	case "":
		return fmt.Errorf("probe.kind is required")
	default:
		return fmt.Errorf("probe.kind %q is not one of memory|goroutines|modbus", p.Kind)
	}

	if p.Warning != 0 && p.Critical != 0 && p.Warning >= p.Critical {
		return fmt.Errorf("probe.warning (%d) must be below probe.critical (%d)", p.Warning, p.Critical)
	}

	if kind != ProbeModbus {
		if p.Endpoint != "" {
			return fmt.Errorf("probe.endpoint is only valid for modbus probes")
		}
		return nil
	}

	if p.Endpoint == "" {
		return fmt.Errorf("modbus probe requires endpoint")
	}
	if p.FC != 0 && p.FC != 3 && p.FC != 4 {
		return fmt.Errorf("modbus probe fc must be 3 or 4, got %d", p.FC)
	}
	if p.TimeoutMs < 0 {
		return fmt.Errorf("modbus probe timeout_ms must be >= 0, got %d", p.TimeoutMs)
	}
	return nil
}
