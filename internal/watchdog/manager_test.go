// internal/watchdog/manager_test.go
package watchdog

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

// ---- helpers ----

func always(s HealthStatus, msg string) HealthCheckFunc {
	return func() (HealthStatus, string) { return s, msg }
}

// sequence returns the given statuses in order, then repeats the last one.
func sequence(statuses ...HealthStatus) HealthCheckFunc {
	i := 0
	return func() (HealthStatus, string) {
		s := statuses[i]
		if i < len(statuses)-1 {
			i++
		}
		return s, ""
	}
}

type recorderRecoverer struct {
	actions []RecoveryAction
	result  bool
}

func (r *recorderRecoverer) Recover(a RecoveryAction) bool {
	r.actions = append(r.actions, a)
	return r.result
}

// ---- scenarios ----

func TestUpdate_HealthyModuleFeedsWatchdog(t *testing.T) {
	m := New()
	m.Register(ModuleMemory, always(HealthOK, ""), nil)

	m.Update()

	if !m.Fed() {
		t.Fatalf("expected watchdog fed")
	}
	if m.FeedCount() != 1 {
		t.Fatalf("feed count: got=%d want=1", m.FeedCount())
	}
	if n := len(m.RecoveryActions()); n != 0 {
		t.Fatalf("expected no recovery actions, got %d", n)
	}
}

func TestUpdate_FailTwiceThenRecover(t *testing.T) {
	m := New()
	m.Register(ModuleStateMachine, sequence(HealthFailed, HealthFailed, HealthOK), nil)

	m.Update()
	info, _ := m.Module(ModuleStateMachine)
	if info.ConsecutiveFailures != 1 || info.LastAction != RecoverySoft {
		t.Fatalf("tick 1: failures=%d action=%s", info.ConsecutiveFailures, info.LastAction)
	}

	m.Update()
	info, _ = m.Module(ModuleStateMachine)
	if info.ConsecutiveFailures != 2 {
		t.Fatalf("tick 2: failures=%d want=2", info.ConsecutiveFailures)
	}
	// streak 2 reaches the soft threshold
	if info.LastAction != RecoveryModuleRestart {
		t.Fatalf("tick 2: action=%s want=%s", info.LastAction, RecoveryModuleRestart)
	}

	m.Update()
	info, _ = m.Module(ModuleStateMachine)
	if info.ConsecutiveFailures != 0 {
		t.Fatalf("tick 3: streak not reset: %d", info.ConsecutiveFailures)
	}
	if info.TotalFailures != 2 {
		t.Fatalf("tick 3: total=%d want=2", info.TotalFailures)
	}
}

func TestUpdate_CriticalModuleBlocksFeed(t *testing.T) {
	m := New()
	m.Register(ModuleMemory, always(HealthOK, ""), nil)
	m.Register(ModuleLogger, always(HealthCritical, "log buffer near full"), nil)

	m.Update()

	if m.SystemHealth() != HealthCritical {
		t.Fatalf("system health: got=%s", m.SystemHealth())
	}
	if m.IsHealthy() {
		t.Fatalf("expected unhealthy")
	}
	if m.Fed() || m.FeedCount() != 0 {
		t.Fatalf("watchdog must not be fed: fed=%v count=%d", m.Fed(), m.FeedCount())
	}
}

func TestUpdate_TenFailuresReachHardwareReset(t *testing.T) {
	m := New()
	m.Register(ModuleMemory, always(HealthFailed, "unrecoverable"), nil)

	for tick := 1; tick <= 10; tick++ {
		m.Update()
		if tick < 5 && m.RebootRequested() {
			t.Fatalf("tick %d: reboot requested too early", tick)
		}
		if tick >= 5 && tick <= 9 && !m.RebootRequested() {
			t.Fatalf("tick %d: reboot not requested", tick)
		}
	}

	actions := m.RecoveryActions()
	if got := actions[len(actions)-1].Action; got != RecoveryHardwareWatchdogReset {
		t.Fatalf("tick 10 action: got=%s", got)
	}
}

// ---- properties ----

func TestEscalationFollowsThresholdTable(t *testing.T) {
	m := New()
	m.Register(ModuleHALPIR, always(HealthFailed, ""), nil)

	want := []RecoveryAction{
		// 1
		RecoverySoft,
		// 2-4
		RecoveryModuleRestart, RecoveryModuleRestart, RecoveryModuleRestart,
		// 5-9
		RecoverySystemReboot, RecoverySystemReboot, RecoverySystemReboot,
		RecoverySystemReboot, RecoverySystemReboot,
		// 10+
		RecoveryHardwareWatchdogReset, RecoveryHardwareWatchdogReset, RecoveryHardwareWatchdogReset,
	}

	for range want {
		m.Update()
	}

	got := m.RecoveryActions()
	if len(got) != len(want) {
		t.Fatalf("expected %d actions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Action != want[i] {
			t.Fatalf("streak %d: got=%s want=%s", i+1, got[i].Action, want[i])
		}
		if got[i].FailureCount != uint32(i+1) {
			t.Fatalf("streak %d: recorded count %d", i+1, got[i].FailureCount)
		}
	}
}

func TestThresholds_Custom(t *testing.T) {
	th := Thresholds{Soft: 1, ModuleRestart: 3, SystemReboot: 4}

	cases := map[uint32]RecoveryAction{
		0: RecoverySoft,
		1: RecoveryModuleRestart,
		2: RecoveryModuleRestart,
		3: RecoverySystemReboot,
		4: RecoveryHardwareWatchdogReset,
		9: RecoveryHardwareWatchdogReset,
	}
	for n, want := range cases {
		if got := th.Action(n); got != want {
			t.Fatalf("n=%d: got=%s want=%s", n, got, want)
		}
	}
}

func TestTotalFailuresMonotonic(t *testing.T) {
	m := New()
	pattern := []HealthStatus{
		HealthFailed, HealthOK, HealthCritical, HealthWarning, HealthFailed, HealthOK, HealthOK,
	}
	m.Register(ModuleWebServer, sequence(pattern...), nil)

	var prevTotal uint32
	for i, s := range pattern {
		m.Update()
		info, _ := m.Module(ModuleWebServer)
		want := prevTotal
		if s.IsFailure() {
			want++
		}
		if info.TotalFailures != want {
			t.Fatalf("tick %d: total=%d want=%d", i+1, info.TotalFailures, want)
		}
		if info.ConsecutiveFailures > info.TotalFailures {
			t.Fatalf("tick %d: streak %d exceeds total %d", i+1, info.ConsecutiveFailures, info.TotalFailures)
		}
		prevTotal = info.TotalFailures
	}
}

func TestWarningKeepsStreak(t *testing.T) {
	m := New()
	m.Register(ModuleWiFiManager, sequence(HealthCritical, HealthWarning, HealthCritical), nil)

	m.Update()
	m.Update()
	info, _ := m.Module(ModuleWiFiManager)
	if info.ConsecutiveFailures != 1 {
		t.Fatalf("warning changed streak: %d", info.ConsecutiveFailures)
	}
	if !m.Fed() {
		t.Fatalf("warning must still feed")
	}

	m.Update()
	info, _ = m.Module(ModuleWiFiManager)
	if info.ConsecutiveFailures != 2 {
		t.Fatalf("streak after critical/warning/critical: got=%d want=2", info.ConsecutiveFailures)
	}
}

func TestFeedGating(t *testing.T) {
	var feeds int
	m := New(WithFeeder(FeederFunc(func() { feeds++ })))
	m.Register(ModuleHALLED, sequence(HealthOK, HealthWarning, HealthCritical, HealthFailed, HealthOK), nil)

	wantFed := []bool{true, true, false, false, true}
	var fedTicks uint64
	for i, want := range wantFed {
		m.Update()
		if m.Fed() != want {
			t.Fatalf("tick %d: fed=%v want=%v", i+1, m.Fed(), want)
		}
		if m.IsHealthy() != want {
			t.Fatalf("tick %d: healthy=%v want=%v", i+1, m.IsHealthy(), want)
		}
		if want {
			fedTicks++
		}
		if m.FeedCount() != fedTicks {
			t.Fatalf("tick %d: feed count=%d want=%d", i+1, m.FeedCount(), fedTicks)
		}
	}
	if uint64(feeds) != fedTicks {
		t.Fatalf("platform feeder called %d times, want %d", feeds, fedTicks)
	}
}

func TestSystemHealthIsWorstModule(t *testing.T) {
	m := New()
	if m.SystemHealth() != HealthOK {
		t.Fatalf("empty registry must be OK")
	}

	m.Register(ModuleMemory, always(HealthOK, ""), nil)
	m.Register(ModuleLogger, always(HealthWarning, "minor issue"), nil)
	m.Register(ModuleConfigManager, always(HealthCritical, "major issue"), nil)

	m.Update()

	if m.SystemHealth() != HealthCritical {
		t.Fatalf("system health: got=%s want=CRITICAL", m.SystemHealth())
	}
}

func TestReportedCriticalFlipsSystemHealth(t *testing.T) {
	m := New()
	m.Register(ModuleMemory, always(HealthOK, ""), nil)
	m.Register(ModuleHALButton, always(HealthOK, ""), nil)
	m.Update()

	if err := m.ReportHealth(ModuleHALButton, HealthCritical, "stuck low"); err != nil {
		t.Fatalf("ReportHealth err=%v", err)
	}
	if m.SystemHealth() != HealthCritical {
		t.Fatalf("system health: got=%s", m.SystemHealth())
	}
	info, _ := m.Module(ModuleHALButton)
	if info.ConsecutiveFailures != 1 || info.Message != "stuck low" {
		t.Fatalf("unexpected record: %+v", info)
	}
}

func TestUnknownModuleFailsClosed(t *testing.T) {
	m := New()
	m.Register(ModuleMemory, always(HealthOK, ""), nil)

	if got := m.ModuleHealth(ModuleWebServer); got != HealthFailed {
		t.Fatalf("unknown module: got=%s want=FAILED", got)
	}
	if got := m.ModuleHealth(ModuleID(99)); got != HealthFailed {
		t.Fatalf("unnamed module: got=%s want=FAILED", got)
	}
	if _, ok := m.Module(ModuleWebServer); ok {
		t.Fatalf("Module should report missing")
	}
}

// ---- recovery callbacks ----

func TestRecovererReceivesEveryAction(t *testing.T) {
	m := New(WithThresholds(Thresholds{Soft: 1, ModuleRestart: 2, SystemReboot: 3}))
	rec := &recorderRecoverer{result: true}
	m.Register(ModuleStateMachine, always(HealthFailed, ""), rec)

	for i := 0; i < 4; i++ {
		m.Update()
	}

	want := []RecoveryAction{
		RecoveryModuleRestart, RecoverySystemReboot, RecoveryHardwareWatchdogReset, RecoveryHardwareWatchdogReset,
	}
	if len(rec.actions) != len(want) {
		t.Fatalf("recoverer called %d times, want %d", len(rec.actions), len(want))
	}
	for i := range want {
		if rec.actions[i] != want[i] {
			t.Fatalf("call %d: got=%s want=%s", i, rec.actions[i], want[i])
		}
	}
	for _, r := range m.RecoveryActions() {
		if !r.Recovered {
			t.Fatalf("record not marked recovered: %+v", r)
		}
	}
}

func TestFailedRecoveryDoesNotEscalateWithinTick(t *testing.T) {
	m := New()
	rec := &recorderRecoverer{result: false}
	m.Register(ModuleHALPIR, always(HealthCritical, ""), rec)

	m.Update()

	info, _ := m.Module(ModuleHALPIR)
	if info.ConsecutiveFailures != 1 || info.LastAction != RecoverySoft {
		t.Fatalf("unexpected escalation: %+v", info)
	}
	if len(rec.actions) != 1 {
		t.Fatalf("recoverer called %d times", len(rec.actions))
	}
}

func TestPanickingHealthCheckCountsAsFailed(t *testing.T) {
	m := New()
	m.Register(ModuleConfigManager, HealthCheckFunc(func() (HealthStatus, string) {
		panic("config corrupted")
	}), nil)

	m.Update()

	info, _ := m.Module(ModuleConfigManager)
	if info.Status != HealthFailed {
		t.Fatalf("status: got=%s want=FAILED", info.Status)
	}
	if info.Message != "health check panicked: config corrupted" {
		t.Fatalf("message: %q", info.Message)
	}
	if info.ConsecutiveFailures != 1 {
		t.Fatalf("streak: %d", info.ConsecutiveFailures)
	}
	if m.Fed() {
		t.Fatalf("must not feed after panic")
	}
}

func TestPanickingRecovererIsUnsuccessful(t *testing.T) {
	m := New()
	m.Register(ModuleLogger, always(HealthFailed, ""), RecoveryFunc(func(RecoveryAction) bool {
		panic("boom")
	}))

	m.Update()

	got := m.RecoveryActions()
	if len(got) != 1 || got[0].Recovered {
		t.Fatalf("unexpected records: %+v", got)
	}
}

// ---- registration ----

func TestReRegisterKeepsOrderAndResetsRecord(t *testing.T) {
	var order []ModuleID
	probe := func(id ModuleID, s HealthStatus) HealthCheckFunc {
		return func() (HealthStatus, string) {
			order = append(order, id)
			return s, ""
		}
	}

	m := New()
	m.Register(ModuleMemory, probe(ModuleMemory, HealthFailed), nil)
	m.Register(ModuleLogger, probe(ModuleLogger, HealthOK), nil)
	m.Update()

	m.Register(ModuleMemory, probe(ModuleMemory, HealthOK), nil)
	order = nil
	m.Update()

	if len(order) != 2 || order[0] != ModuleMemory || order[1] != ModuleLogger {
		t.Fatalf("evaluation order: %v", order)
	}
	info, _ := m.Module(ModuleMemory)
	if info.TotalFailures != 0 {
		t.Fatalf("re-registration should replace the record, total=%d", info.TotalFailures)
	}
}

func TestRegisterNilCheckerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New().Register(ModuleMemory, nil, nil)
}

// ---- manual interventions ----

func TestManualOperationsOnUnknownModule(t *testing.T) {
	m := New()

	if err := m.ReportHealth(ModuleMemory, HealthOK, ""); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("ReportHealth err=%v", err)
	}
	if _, err := m.TriggerRecovery(ModuleMemory, RecoverySoft); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("TriggerRecovery err=%v", err)
	}
	if err := m.ResetFailureCount(ModuleMemory); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("ResetFailureCount err=%v", err)
	}
}

func TestResetFailureCountKeepsTotal(t *testing.T) {
	m := New()
	m.Register(ModuleWebServer, always(HealthFailed, ""), nil)
	m.Update()
	m.Update()

	if err := m.ResetFailureCount(ModuleWebServer); err != nil {
		t.Fatalf("err=%v", err)
	}
	info, _ := m.Module(ModuleWebServer)
	if info.ConsecutiveFailures != 0 || info.TotalFailures != 2 {
		t.Fatalf("unexpected counts: %+v", info)
	}

	m.Update()
	info, _ = m.Module(ModuleWebServer)
	if info.LastAction != RecoverySoft {
		t.Fatalf("escalation should restart from SOFT, got %s", info.LastAction)
	}
}

func TestTriggerRecovery(t *testing.T) {
	m := New()
	rec := &recorderRecoverer{result: true}
	m.Register(ModuleWiFiManager, always(HealthOK, ""), rec)

	ok, err := m.TriggerRecovery(ModuleWiFiManager, RecoveryModuleRestart)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(rec.actions) != 1 || rec.actions[0] != RecoveryModuleRestart {
		t.Fatalf("recoverer calls: %v", rec.actions)
	}

	if _, err := m.TriggerRecovery(ModuleWiFiManager, RecoverySystemReboot); err != nil {
		t.Fatalf("err=%v", err)
	}
	if !m.RebootRequested() {
		t.Fatalf("expected reboot request")
	}

	if _, err := m.TriggerRecovery(ModuleWiFiManager, RecoveryHardwareWatchdogReset); err != nil {
		t.Fatalf("err=%v", err)
	}
	m.Update()
	if m.Fed() {
		t.Fatalf("feeding should be suspended after manual hardware reset")
	}

	m.ClearRebootRequest()
	m.Update()
	if !m.Fed() || m.RebootRequested() {
		t.Fatalf("clear should resume feeding: fed=%v reboot=%v", m.Fed(), m.RebootRequested())
	}

	for _, r := range m.RecoveryActions() {
		if !r.Manual {
			t.Fatalf("manual record not flagged: %+v", r)
		}
	}
}

func TestHistoryLimitKeepsNewest(t *testing.T) {
	m := New(WithHistoryLimit(3))
	m.Register(ModuleMemory, always(HealthFailed, ""), nil)

	for i := 0; i < 5; i++ {
		m.Update()
	}

	got := m.RecoveryActions()
	if len(got) != 3 {
		t.Fatalf("history length %d", len(got))
	}
	if got[0].FailureCount != 3 || got[2].FailureCount != 5 {
		t.Fatalf("expected newest records, got %+v", got)
	}
}

// ---- observer ----

type recordingObserver struct {
	checks     []ModuleInfo
	recoveries []RecoveryRecord
	ticks      []bool
}

func (o *recordingObserver) ModuleChecked(info ModuleInfo) {
	o.checks = append(o.checks, info)
}

func (o *recordingObserver) RecoveryAttempted(r RecoveryRecord) {
	o.recoveries = append(o.recoveries, r)
}

func (o *recordingObserver) TickCompleted(_ HealthStatus, fed bool) {
	o.ticks = append(o.ticks, fed)
}

func TestObserverSeesTick(t *testing.T) {
	obs := &recordingObserver{}
	m := New(WithObserver(obs))
	m.Register(ModuleMemory, always(HealthOK, ""), nil)
	m.Register(ModuleLogger, always(HealthFailed, ""), nil)

	m.Update()

	if len(obs.checks) != 2 || obs.checks[1].ConsecutiveFailures != 1 {
		t.Fatalf("checks: %+v", obs.checks)
	}
	if len(obs.recoveries) != 1 || obs.recoveries[0].Tick != 1 {
		t.Fatalf("recoveries: %+v", obs.recoveries)
	}
	if len(obs.ticks) != 1 || obs.ticks[0] {
		t.Fatalf("ticks: %v", obs.ticks)
	}

	snap := m.Snapshot()
	if snap.Ticks != 1 || snap.Healthy() || len(snap.Modules) != 2 {
		t.Fatalf("snapshot: %+v", snap)
	}
}

// ---- options ----

func TestWithClockStampsLastCheck(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := New(WithClock(func() time.Time { return at }))
	m.Register(ModuleConfigManager, always(HealthOK, ""), RecoveryFunc(func(RecoveryAction) bool { return true }))
	m.Register(ModuleLogger, always(HealthOK, ""), nil)

	if info, _ := m.Module(ModuleConfigManager); !info.LastCheck.IsZero() {
		t.Fatalf("last check before first tick: %v", info.LastCheck)
	}

	m.Update()

	info, _ := m.Module(ModuleConfigManager)
	if !info.LastCheck.Equal(at) {
		t.Fatalf("last check: got=%v want=%v", info.LastCheck, at)
	}
	if !info.HasRecoverer {
		t.Fatalf("expected recoverer flag")
	}
	if info, _ := m.Module(ModuleLogger); info.HasRecoverer {
		t.Fatalf("logger has no recoverer")
	}
}

func TestWithThresholds(t *testing.T) {
	th := Thresholds{Soft: 3, ModuleRestart: 6, SystemReboot: 9}
	if got := New(WithThresholds(th)).Thresholds(); got != th {
		t.Fatalf("thresholds: got=%+v want=%+v", got, th)
	}
	if got := New().Thresholds(); got != DefaultThresholds() {
		t.Fatalf("default thresholds: %+v", got)
	}
}

// ---- logging ----

func TestNotFeedingWarnsOncePerOutage(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	m := New(WithLogger(logger))
	m.Register(ModuleHALButton, sequence(HealthOK, HealthFailed, HealthFailed, HealthFailed, HealthOK, HealthFailed), nil)

	for i := 0; i < 6; i++ {
		m.Update()
	}

	stopped, repeated := 0, 0
	for _, e := range hook.AllEntries() {
		switch e.Message {
		case "watchdog: stopped feeding hardware watchdog":
			if e.Level != logrus.WarnLevel {
				t.Fatalf("stop level: %v", e.Level)
			}
			stopped++
		case "watchdog: not feeding hardware watchdog":
			repeated++
		}
	}
	// Two outages; repeats are debug and filtered at the default info level.
	if stopped != 2 || repeated != 0 {
		t.Fatalf("stopped=%d repeated=%d", stopped, repeated)
	}
}
