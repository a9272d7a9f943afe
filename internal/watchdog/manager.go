// internal/watchdog/manager.go
package watchdog

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnknownModule is returned by operations addressed to an id that was
// never registered.
var ErrUnknownModule = errors.New("watchdog: unknown module")

const defaultHistoryLimit = 256

type record struct {
	id        ModuleID
	checker   HealthChecker
	recoverer Recoverer

	status      HealthStatus
	message     string
	consecutive uint32
	total       uint32
	lastAction  RecoveryAction
	lastCheck   time.Time
}

func (r *record) info() ModuleInfo {
	return ModuleInfo{
		ID:                  r.id,
		Status:              r.status,
		Message:             r.message,
		ConsecutiveFailures: r.consecutive,
		TotalFailures:       r.total,
		LastAction:          r.lastAction,
		LastCheck:           r.lastCheck,
		HasRecoverer:        r.recoverer != nil,
	}
}

// Manager aggregates module health, escalates recovery per module and gates
// the hardware watchdog feed.
//
// Manager is driven by a single caller: Register during startup, then Update
// once per tick. Queries are safe between ticks on the same goroutine.
// Concurrent use is not supported.
type Manager struct {
	thresholds Thresholds
	feeder     Feeder
	observer   Observer
	log        logrus.FieldLogger
	now        func() time.Time

	order   []ModuleID
	records map[ModuleID]*record

	ticks           uint64
	feedCount       uint64
	fed             bool
	healthy         bool
	rebootRequested bool
	feedSuspended   bool

	history      []RecoveryRecord
	historyLimit int
}

// Option configures a Manager.
type Option func(*Manager)

// WithThresholds overrides DefaultThresholds.
func WithThresholds(t Thresholds) Option {
	return func(m *Manager) { m.thresholds = t }
}

// WithFeeder sets the platform feed signal. Without one, feeding only
// advances the feed counter.
func WithFeeder(f Feeder) Option {
	return func(m *Manager) { m.feeder = f }
}

// WithObserver attaches a tick observer (metrics).
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock replaces time.Now for last-check timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithHistoryLimit bounds the retained recovery history. n <= 0 keeps the default.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.historyLimit = n
		}
	}
}

// New creates a manager with an empty registry.
func New(opts ...Option) *Manager {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	m := &Manager{
		thresholds:   DefaultThresholds(),
		log:          discard,
		now:          time.Now,
		records:      make(map[ModuleID]*record),
		healthy:      true,
		historyLimit: defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thresholds returns the escalation thresholds in effect.
func (m *Manager) Thresholds() Thresholds {
	return m.thresholds
}

// Register adds a module, or replaces the callbacks and state of an already
// registered id while keeping its position in the evaluation order.
// recoverer may be nil. A nil checker is a programming error and panics.
func (m *Manager) Register(id ModuleID, checker HealthChecker, recoverer Recoverer) {
	if checker == nil {
		panic(fmt.Errorf("(*Manager).Register: nil health checker for %s", id))
	}

	if _, exists := m.records[id]; !exists {
		m.order = append(m.order, id)
	}
	m.records[id] = &record{
		id:        id,
		checker:   checker,
		recoverer: recoverer,
		status:    HealthOK,
	}

	m.log.WithFields(logrus.Fields{
		"module":      id.String(),
		"recoverable": recoverer != nil,
	}).Info("watchdog: registered module")
}

// Update runs one tick: poll every module in registration order, apply
// bookkeeping and escalation, then feed the hardware watchdog if the
// aggregated health is OK or WARNING.
func (m *Manager) Update() {
	m.ticks++

	for _, id := range m.order {
		rec := m.records[id]
		status, msg := m.check(rec)
		m.apply(rec, status, msg)
	}

	system := m.SystemHealth()
	healthy := system <= HealthWarning

	if healthy != m.healthy {
		m.healthy = healthy
		if healthy {
			m.log.Info("watchdog: system is now healthy")
		} else {
			m.log.WithField("status", system.String()).Error("watchdog: system is now unhealthy")
		}
	}

	wasFed := m.fed || m.ticks == 1
	m.fed = healthy && !m.feedSuspended
	if m.fed {
		m.feedCount++
		if m.feeder != nil {
			m.feeder.Feed()
		}
	} else {
		entry := m.log.WithField("status", system.String())
		if wasFed {
			entry.Warn("watchdog: stopped feeding hardware watchdog")
		} else {
			entry.Debug("watchdog: not feeding hardware watchdog")
		}
	}

	if m.observer != nil {
		m.observer.TickCompleted(system, m.fed)
	}
}

// check invokes the module's health check. A panic is treated as FAILED.
func (m *Manager) check(rec *record) (status HealthStatus, msg string) {
	defer func() {
		if r := recover(); r != nil {
			status = HealthFailed
			msg = fmt.Sprintf("health check panicked: %v", r)
		}
	}()

	status, msg = rec.checker.CheckHealth()
	if status > HealthFailed {
		status = HealthFailed
	}
	return status, msg
}

func (m *Manager) apply(rec *record, status HealthStatus, msg string) {
	prev := rec.status
	rec.status = status
	rec.message = msg
	rec.lastCheck = m.now()

	if status != prev {
		entry := m.log.WithFields(logrus.Fields{
			"module": rec.id.String(),
			"status": status.String(),
		})
		if msg != "" {
			entry = entry.WithField("message", msg)
		}
		switch status {
		case HealthOK:
			entry.Info("watchdog: module status changed")
		case HealthWarning:
			entry.Warn("watchdog: module status changed")
		default:
			entry.Error("watchdog: module status changed")
		}
	}

	switch {
	case status.IsFailure():
		rec.consecutive++
		rec.total++
		m.escalate(rec)

	case status == HealthOK && rec.consecutive > 0:
		m.log.WithFields(logrus.Fields{
			"module":   rec.id.String(),
			"failures": rec.consecutive,
		}).Info("watchdog: module recovered")
		rec.consecutive = 0
	}

	// WARNING leaves the streak untouched.

	if m.observer != nil {
		m.observer.ModuleChecked(rec.info())
	}
}

func (m *Manager) escalate(rec *record) {
	action := m.thresholds.Action(rec.consecutive)
	rec.lastAction = action

	entry := m.log.WithFields(logrus.Fields{
		"module":   rec.id.String(),
		"failures": rec.consecutive,
		"total":    rec.total,
		"action":   action.String(),
	})
	entry.Warn("watchdog: module failed, escalating")

	recovered := m.runRecoverer(rec, action)

	switch action {
	case RecoverySystemReboot:
		if !m.rebootRequested {
			entry.Error("watchdog: system reboot requested")
		}
		m.rebootRequested = true
	case RecoveryHardwareWatchdogReset:
		entry.Error("watchdog: leaving hardware watchdog unfed")
	}

	m.remember(RecoveryRecord{
		Tick:         m.ticks,
		Module:       rec.id,
		Action:       action,
		FailureCount: rec.consecutive,
		Recovered:    recovered,
	})
}

// runRecoverer invokes the module's recoverer, if any. A panic counts as failure.
func (m *Manager) runRecoverer(rec *record, action RecoveryAction) (ok bool) {
	if rec.recoverer == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.log.WithFields(logrus.Fields{
				"module": rec.id.String(),
				"action": action.String(),
				"panic":  fmt.Sprint(r),
			}).Error("watchdog: recovery panicked")
		}
	}()

	ok = rec.recoverer.Recover(action)

	entry := m.log.WithFields(logrus.Fields{
		"module": rec.id.String(),
		"action": action.String(),
	})
	if ok {
		entry.Info("watchdog: recovery succeeded")
	} else {
		entry.Warn("watchdog: recovery failed")
	}
	return ok
}

func (m *Manager) remember(r RecoveryRecord) {
	if len(m.history) >= m.historyLimit {
		n := copy(m.history, m.history[len(m.history)-m.historyLimit+1:])
		m.history = m.history[:n]
	}
	m.history = append(m.history, r)

	if m.observer != nil {
		m.observer.RecoveryAttempted(r)
	}
}

// ---- manual interventions ----

// ReportHealth records a status pushed by the module itself between ticks.
// Bookkeeping and escalation are the same as for a polled result; the
// hardware watchdog is only fed by Update.
func (m *Manager) ReportHealth(id ModuleID, status HealthStatus, message string) error {
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	if status > HealthFailed {
		status = HealthFailed
	}
	m.apply(rec, status, message)
	return nil
}

// TriggerRecovery runs a recovery action on demand. SYSTEM_REBOOT raises the
// reboot request; HARDWARE_WATCHDOG_RESET suspends feeding until
// ClearRebootRequest. The failure streak is not changed.
func (m *Manager) TriggerRecovery(id ModuleID, action RecoveryAction) (bool, error) {
	rec, ok := m.records[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}

	m.log.WithFields(logrus.Fields{
		"module": id.String(),
		"action": action.String(),
	}).Warn("watchdog: manual recovery triggered")

	var recovered bool
	switch action {
	case RecoveryNone:
		recovered = true
	case RecoverySoft, RecoveryModuleRestart:
		recovered = m.runRecoverer(rec, action)
	case RecoverySystemReboot:
		m.runRecoverer(rec, action)
		m.rebootRequested = true
		recovered = true
	case RecoveryHardwareWatchdogReset:
		m.runRecoverer(rec, action)
		m.feedSuspended = true
		recovered = true
	default:
		return false, fmt.Errorf("watchdog: unsupported recovery action %s", action)
	}

	m.remember(RecoveryRecord{
		Tick:         m.ticks,
		Module:       id,
		Action:       action,
		FailureCount: rec.consecutive,
		Recovered:    recovered,
		Manual:       true,
	})
	return recovered, nil
}

// ResetFailureCount clears a module's streak. The lifetime total is kept.
func (m *Manager) ResetFailureCount(id ModuleID) error {
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	rec.consecutive = 0
	m.log.WithField("module", id.String()).Info("watchdog: failure count reset")
	return nil
}

// ClearRebootRequest drops the reboot request and resumes feeding after a
// manual hardware reset trigger. Intended for tests and controlled restarts.
func (m *Manager) ClearRebootRequest() {
	m.rebootRequested = false
	m.feedSuspended = false
}

// ---- queries ----

// SystemHealth is the worst status across registered modules; OK when none.
func (m *Manager) SystemHealth() HealthStatus {
	worst := HealthOK
	for _, id := range m.order {
		if s := m.records[id].status; s > worst {
			worst = s
		}
	}
	return worst
}

// ModuleHealth returns the last observed status, or FAILED for an id that is
// not registered.
func (m *Manager) ModuleHealth(id ModuleID) HealthStatus {
	rec, ok := m.records[id]
	if !ok {
		return HealthFailed
	}
	return rec.status
}

// IsHealthy reports whether system health is OK or WARNING.
func (m *Manager) IsHealthy() bool {
	return m.SystemHealth() <= HealthWarning
}

// Module returns a copy of one module record.
func (m *Manager) Module(id ModuleID) (ModuleInfo, bool) {
	rec, ok := m.records[id]
	if !ok {
		return ModuleInfo{}, false
	}
	return rec.info(), true
}

// Modules returns copies of all module records in registration order.
func (m *Manager) Modules() []ModuleInfo {
	out := make([]ModuleInfo, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id].info())
	}
	return out
}

// FeedCount is the number of ticks on which the hardware watchdog was fed.
func (m *Manager) FeedCount() uint64 { return m.feedCount }

// Fed reports whether the most recent tick fed the hardware watchdog.
func (m *Manager) Fed() bool { return m.fed }

// Ticks is the number of completed Update calls.
func (m *Manager) Ticks() uint64 { return m.ticks }

// RebootRequested reports whether a SYSTEM_REBOOT escalation has occurred.
// The flag is sticky until ClearRebootRequest.
func (m *Manager) RebootRequested() bool { return m.rebootRequested }

// RecoveryActions returns the retained recovery history, oldest first.
func (m *Manager) RecoveryActions() []RecoveryRecord {
	out := make([]RecoveryRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Snapshot captures the state observable after the last tick.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		System:          m.SystemHealth(),
		Fed:             m.fed,
		FeedCount:       m.feedCount,
		Ticks:           m.ticks,
		RebootRequested: m.rebootRequested,
		Modules:         m.Modules(),
	}
}
