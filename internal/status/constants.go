// internal/status/constants.go
package status

// Watchdog Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- HEADER GEOMETRY ----

// HeaderSlots is the fixed number of slots before the first module block.
const HeaderSlots = 8

// SlotSystemHealth holds the aggregated system health code.
const SlotSystemHealth = 0

// SlotFed is 1 when the last tick fed the hardware watchdog.
const SlotFed = 1

// SlotRebootRequested is 1 once a SYSTEM_REBOOT escalation happened.
const SlotRebootRequested = 2

// SlotFeedCountHi / SlotFeedCountLo hold the feed counter as two words (big-endian word order).
const SlotFeedCountHi = 3
const SlotFeedCountLo = 4

// SlotTicksHi / SlotTicksLo hold the tick counter as two words.
const SlotTicksHi = 5
const SlotTicksLo = 6

// SlotModuleCount holds the number of module blocks that follow.
const SlotModuleCount = 7

// ---- MODULE BLOCK ----

// SlotsPerModule is the fixed size of one module block.
const SlotsPerModule = 5

const (
	ModuleSlotID          = 0
	ModuleSlotHealth      = 1
	ModuleSlotConsecutive = 2
	ModuleSlotTotal       = 3
	ModuleSlotLastAction  = 4
)

// ---- LIMITS ----

// CounterMax is the saturation value for 16-bit counters.
const CounterMax = 0xFFFF

// ---- HEALTH CODES ----

// HealthUnknown is reported before the first tick.
const HealthUnknown uint16 = 0

// HealthOK .. HealthFailed are the watchdog status ordinal plus one.
const (
	HealthOK       uint16 = 1
	HealthWarning  uint16 = 2
	HealthCritical uint16 = 3
	HealthFailed   uint16 = 4
)

// BlockSize returns the register count of a status block for n modules.
func BlockSize(n int) int {
	return HeaderSlots + n*SlotsPerModule
}
