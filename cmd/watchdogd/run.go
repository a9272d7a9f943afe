// cmd/watchdogd/run.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/health-watchdog/internal/config"
	"github.com/tamzrod/health-watchdog/internal/hwwdt"
	"github.com/tamzrod/health-watchdog/internal/logging"
	"github.com/tamzrod/health-watchdog/internal/metrics"
	"github.com/tamzrod/health-watchdog/internal/probe"
	"github.com/tamzrod/health-watchdog/internal/runner"
	"github.com/tamzrod/health-watchdog/internal/watchdog"
	"github.com/tamzrod/health-watchdog/internal/writer"
)

// loadConfig is Load + Validate + Normalize.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func run(parent context.Context, cfgPath string) error {
	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	log := logging.NewLoggerWithService("watchdogd", cfg.Log.Level)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Metrics (observer + optional HTTP)
	// --------------------

	collector := metrics.NewCollector()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := collector.Serve(ctx, cfg.Metrics.Listen, log); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	opts := []watchdog.Option{
		watchdog.WithThresholds(watchdog.Thresholds{
			Soft:          cfg.Watchdog.Thresholds.Soft,
			ModuleRestart: cfg.Watchdog.Thresholds.ModuleRestart,
			SystemReboot:  cfg.Watchdog.Thresholds.SystemReboot,
		}),
		watchdog.WithHistoryLimit(cfg.Watchdog.HistoryLimit),
		watchdog.WithLogger(log.WithField("component", "watchdog")),
		watchdog.WithObserver(collector),
	}

	// --------------------
	// Hardware watchdog (optional)
	// --------------------

	if cfg.Hardware.Device != "" {
		dev, err := hwwdt.Open(cfg.Hardware.Device, log)
		if err != nil {
			return err
		}
		defer dev.Close()

		if err := config.CheckHardwareTimeout(cfg, dev.Timeout()); err != nil {
			return err
		}
		collector.SetHardwareTimeout(dev.Timeout())
		opts = append(opts, watchdog.WithFeeder(dev))
	} else {
		log.Warn("no hardware watchdog device configured, feeding is counted only")
		feedLog := log.WithField("component", "feeder")
		opts = append(opts, watchdog.WithFeeder(watchdog.FeederFunc(func() {
			feedLog.Trace("feed")
		})))
	}

	mgr := watchdog.New(opts...)

	// --------------------
	// Modules
	// --------------------

	for _, m := range cfg.Modules {
		id, err := watchdog.ParseModuleID(m.Name)
		if err != nil {
			return err
		}

		checker, recoverer, closeProbe, err := probe.Build(m)
		if err != nil {
			return fmt.Errorf("probe build failed (module=%s): %w", m.Name, err)
		}
		defer closeProbe()

		mgr.Register(id, checker, recoverer)
	}

	sinks := []runner.Sink{collector}

	// --------------------
	// Status export (optional)
	// --------------------

	if cfg.StatusExport.Enabled() {
		sw, closeWriter, err := writer.Build(cfg.StatusExport)
		if err != nil {
			return fmt.Errorf("status export build failed: %w", err)
		}
		defer closeWriter()

		// Export runs off the tick goroutine so a dead endpoint never delays a feed.
		export := runner.NewAsyncSink(sw, log.WithField("component", "status_export"))
		go export.Run(ctx)
		sinks = append(sinks, export)
	}

	r, err := runner.New(
		mgr,
		time.Duration(cfg.Watchdog.TickMs)*time.Millisecond,
		log.WithField("component", "runner"),
		sinks...,
	)
	if err != nil {
		return err
	}

	th := mgr.Thresholds()
	log.WithFields(logrus.Fields{
		"modules":    len(cfg.Modules),
		"tick_ms":    cfg.Watchdog.TickMs,
		"thresholds": fmt.Sprintf("%d/%d/%d", th.Soft, th.ModuleRestart, th.SystemReboot),
	}).Info("watchdogd started")

	return r.Run(ctx)
}
