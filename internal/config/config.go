// internal/config/config.go
package config

type Config struct {
	Log          LogConfig          `yaml:"log"`
	Watchdog     WatchdogConfig     `yaml:"watchdog"`
	Hardware     HardwareConfig     `yaml:"hardware"`
	Modules      []ModuleConfig     `yaml:"modules"`
	StatusExport StatusExportConfig `yaml:"status_export"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level" env:"WATCHDOG_LOG_LEVEL"`
}

// ---- WATCHDOG ----

type WatchdogConfig struct {
	TickMs       int              `yaml:"tick_ms" env:"WATCHDOG_TICK_MS"`
	HistoryLimit int              `yaml:"history_limit"`
	Thresholds   ThresholdsConfig `yaml:"thresholds"`
}

// ThresholdsConfig is all-or-nothing: either all three are set or none
// (defaults 2/5/10 are applied by Normalize).
type ThresholdsConfig struct {
	Soft          uint32 `yaml:"soft"`
	ModuleRestart uint32 `yaml:"module_restart"`
	SystemReboot  uint32 `yaml:"system_reboot"`
}

func (t ThresholdsConfig) isZero() bool {
	return t.Soft == 0 && t.ModuleRestart == 0 && t.SystemReboot == 0
}

// ---- HARDWARE WATCHDOG ----

type HardwareConfig struct {
	// Device is a Linux watchdog character device, e.g. /dev/watchdog.
	// Empty means host mode: feeding only advances the counter.
	Device string `yaml:"device" env:"WATCHDOG_DEVICE"`
}

// ---- MODULES ----

type ModuleConfig struct {
	Name  string      `yaml:"name"` // firmware module name, e.g. HAL_PIR
	Probe ProbeConfig `yaml:"probe"`
}

const (
	ProbeMemory     = "memory"
	ProbeGoroutines = "goroutines"
	ProbeModbus     = "modbus"
)

type ProbeConfig struct {
	Kind string `yaml:"kind"`

	// Levels at or above which the probe reports WARNING / CRITICAL.
	// Zero disables the level.
	Warning  uint64 `yaml:"warning"`
	Critical uint64 `yaml:"critical"`

	// modbus only
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	FC        uint8  `yaml:"fc"` // 3 or 4; 0 => 3
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- STATUS EXPORT ----

// StatusExportConfig is opt-in: an empty Endpoint disables export.
// The block is written to holding registers over Modbus TCP (FC 16).
type StatusExportConfig struct {
	Endpoint    string `yaml:"endpoint"`
	UnitID      uint8  `yaml:"unit_id"`
	BaseAddress uint16 `yaml:"base_address"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	Retries     int    `yaml:"retries"`
}

func (s StatusExportConfig) Enabled() bool {
	return s.Endpoint != ""
}

// ---- METRICS ----

type MetricsConfig struct {
	// Listen is the HTTP address for /metrics and /healthz; empty disables it.
	Listen string `yaml:"listen" env:"WATCHDOG_METRICS_LISTEN"`
}
