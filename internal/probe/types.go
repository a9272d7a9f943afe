// internal/probe/types.go
package probe

// Client abstracts the Modbus reads a register probe needs.
type Client interface {
	ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(addr, qty uint16) ([]uint16, error)   // FC 4
	Close() error
}

// Factory dials a new Client. ONE attempt per call.
type Factory func() (Client, error)

// Levels are the thresholds at or above which a reading is WARNING or
// CRITICAL. Zero disables a level.
type Levels struct {
	Warning  uint64
	Critical uint64
}
