// internal/config/normalize.go
package config

import "strings"

const (
	DefaultTickMs       = 1000
	DefaultTimeoutMs    = 1000
	DefaultHistoryLimit = 256
	DefaultRetries      = 2
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	w := &cfg.Watchdog
	if w.TickMs == 0 {
		w.TickMs = DefaultTickMs
	}
	if w.HistoryLimit == 0 {
		w.HistoryLimit = DefaultHistoryLimit
	}
	if w.Thresholds.isZero() {
		w.Thresholds = ThresholdsConfig{Soft: 2, ModuleRestart: 5, SystemReboot: 10}
	}

	for i := range cfg.Modules {
		m := &cfg.Modules[i]
		m.Name = strings.ToUpper(strings.TrimSpace(m.Name))
		m.Probe.Kind = strings.ToLower(strings.TrimSpace(m.Probe.Kind))

		if m.Probe.Kind != ProbeModbus {
			continue
		}
		if m.Probe.FC == 0 {
			m.Probe.FC = 3
		}
		if m.Probe.TimeoutMs == 0 {
			m.Probe.TimeoutMs = DefaultTimeoutMs
		}
	}

	// ------------------------------------------------------------
	// STATUS EXPORT (OPT-IN)
	// ------------------------------------------------------------

	se := &cfg.StatusExport
	if !se.Enabled() {
		return
	}
	if se.TimeoutMs == 0 {
		se.TimeoutMs = DefaultTimeoutMs
	}
	switch {
	case se.Retries == 0:
		se.Retries = DefaultRetries
	case se.Retries < 0:
		// -1 disables retries
		se.Retries = 0
	}
}
