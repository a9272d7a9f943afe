// internal/status/encode.go
package status

import "github.com/tamzrod/health-watchdog/internal/watchdog"

// Encode converts a watchdog Snapshot into a full status block.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s watchdog.Snapshot) []uint16 {
	regs := make([]uint16, BlockSize(len(s.Modules)))

	booted := s.Ticks > 0

	if booted {
		regs[SlotSystemHealth] = HealthCode(s.System)
	}
	regs[SlotFed] = boolCode(s.Fed)
	regs[SlotRebootRequested] = boolCode(s.RebootRequested)
	regs[SlotFeedCountHi] = uint16(s.FeedCount >> 16)
	regs[SlotFeedCountLo] = uint16(s.FeedCount)
	regs[SlotTicksHi] = uint16(s.Ticks >> 16)
	regs[SlotTicksLo] = uint16(s.Ticks)
	regs[SlotModuleCount] = uint16(len(s.Modules))

	for i, m := range s.Modules {
		base := HeaderSlots + i*SlotsPerModule

		regs[base+ModuleSlotID] = uint16(m.ID)
		if booted {
			regs[base+ModuleSlotHealth] = HealthCode(m.Status)
		}
		regs[base+ModuleSlotConsecutive] = saturate(m.ConsecutiveFailures)
		regs[base+ModuleSlotTotal] = saturate(m.TotalFailures)
		regs[base+ModuleSlotLastAction] = ActionCode(m.LastAction)
	}

	return regs
}
