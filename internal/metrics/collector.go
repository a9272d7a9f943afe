// internal/metrics/collector.go
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// Collector exports manager state as Prometheus metrics.
//
// It implements watchdog.Observer for per-tick events and runner.Sink for
// the snapshot served on /healthz.
type Collector struct {
	registry *prometheus.Registry

	moduleHealth        *prometheus.GaugeVec
	consecutiveFailures *prometheus.GaugeVec
	failuresTotal       *prometheus.CounterVec
	recoveryActions     *prometheus.CounterVec
	hwFeeds             prometheus.Counter
	systemHealth        prometheus.Gauge
	rebootRequested     prometheus.Gauge

	mu        sync.RWMutex
	latest    watchdog.Snapshot
	ready     bool
	hwTimeout time.Duration

	// total failures already counted, per module
	seen map[watchdog.ModuleID]uint32
}

// NewCollector registers all watchdog metrics on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		seen:     make(map[watchdog.ModuleID]uint32),
	}

	c.moduleHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "watchdog_module_health",
			Help: "Module health (0=OK, 1=WARNING, 2=CRITICAL, 3=FAILED)",
		},
		[]string{"module"},
	)
	c.consecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "watchdog_module_consecutive_failures",
			Help: "Current failure streak per module",
		},
		[]string{"module"},
	)
	c.failuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdog_module_failures_total",
			Help: "Failed health checks per module",
		},
		[]string{"module"},
	)
	c.recoveryActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdog_recovery_actions_total",
			Help: "Recovery actions taken",
		},
		[]string{"module", "action"},
	)
	c.hwFeeds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchdog_hw_feeds_total",
		Help: "Hardware watchdog feeds",
	})
	c.systemHealth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "watchdog_system_health",
		Help: "Worst module health (0=OK, 1=WARNING, 2=CRITICAL, 3=FAILED)",
	})
	c.rebootRequested = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "watchdog_reboot_requested",
		Help: "1 once a system reboot has been requested",
	})

	c.registry.MustRegister(
		c.moduleHealth,
		c.consecutiveFailures,
		c.failuresTotal,
		c.recoveryActions,
		c.hwFeeds,
		c.systemHealth,
		c.rebootRequested,
	)
	return c
}

// Registry exposes the private registry, mainly for tests and /metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ---- watchdog.Observer ----

func (c *Collector) ModuleChecked(info watchdog.ModuleInfo) {
	name := info.ID.String()
	c.moduleHealth.WithLabelValues(name).Set(float64(info.Status))
	c.consecutiveFailures.WithLabelValues(name).Set(float64(info.ConsecutiveFailures))

	// TotalFailures is monotonic; export the delta so the counter never
	// double counts.
	c.mu.Lock()
	prev := c.seen[info.ID]
	c.seen[info.ID] = info.TotalFailures
	c.mu.Unlock()

	if info.TotalFailures > prev {
		c.failuresTotal.WithLabelValues(name).Add(float64(info.TotalFailures - prev))
	} else {
		// touch so the series exists from the first tick
		c.failuresTotal.WithLabelValues(name)
	}
}

func (c *Collector) RecoveryAttempted(rec watchdog.RecoveryRecord) {
	c.recoveryActions.WithLabelValues(rec.Module.String(), rec.Action.String()).Inc()
	if rec.Action == watchdog.RecoverySystemReboot {
		c.rebootRequested.Set(1)
	}
}

func (c *Collector) TickCompleted(system watchdog.HealthStatus, fed bool) {
	c.systemHealth.Set(float64(system))
	if fed {
		c.hwFeeds.Inc()
	}
}

// ---- runner.Sink ----

// Publish stores the latest snapshot for /healthz.
func (c *Collector) Publish(s watchdog.Snapshot) error {
	if s.RebootRequested {
		c.rebootRequested.Set(1)
	} else {
		c.rebootRequested.Set(0)
	}

	c.mu.Lock()
	c.latest = s
	c.ready = true
	c.mu.Unlock()
	return nil
}

// SetHardwareTimeout records the device timeout shown on /healthz.
func (c *Collector) SetHardwareTimeout(d time.Duration) {
	c.mu.Lock()
	c.hwTimeout = d
	c.mu.Unlock()
}

func (c *Collector) HardwareTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hwTimeout
}

// Latest returns the most recently published snapshot and whether one exists.
func (c *Collector) Latest() (watchdog.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.ready
}
