// internal/probe/register.go
package probe

import (
	"errors"
	"fmt"

	"github.com/tamzrod/health-watchdog/internal/watchdog"
)

// RegisterProbe reads one register from a field device each check.
//
// The connection is reused while healthy. On transport error the client is
// discarded and the factory is used on a future check. No retries inside a
// check: a check costs at most one read timeout.
type RegisterProbe struct {
	fc      uint8
	address uint16
	levels  Levels

	client  Client
	factory Factory
}

// NewRegisterProbe builds a probe. No connection is made until the first check.
func NewRegisterProbe(fc uint8, address uint16, levels Levels, factory Factory) (*RegisterProbe, error) {
	if factory == nil {
		return nil, errors.New("probe: factory required")
	}
	if fc != 3 && fc != 4 {
		return nil, fmt.Errorf("probe: unsupported function code %d", fc)
	}
	return &RegisterProbe{
		fc:      fc,
		address: address,
		levels:  levels,
		factory: factory,
	}, nil
}

func (p *RegisterProbe) CheckHealth() (watchdog.HealthStatus, string) {
	if p.client == nil {
		c, err := p.factory()
		if err != nil {
			return watchdog.HealthFailed, fmt.Sprintf("connect: %v", err)
		}
		p.client = c
	}

	var (
		regs []uint16
		err  error
	)
	switch p.fc {
	case 3:
		regs, err = p.client.ReadHoldingRegisters(p.address, 1)
	case 4:
		regs, err = p.client.ReadInputRegisters(p.address, 1)
	}
	if err != nil {
		p.drop()
		return watchdog.HealthFailed, fmt.Sprintf("read fc=%d addr=%d: %v", p.fc, p.address, err)
	}
	if len(regs) == 0 {
		p.drop()
		return watchdog.HealthFailed, "short read"
	}

	v := regs[0]
	s := p.levels.Classify(uint64(v))
	if s == watchdog.HealthOK {
		return s, ""
	}
	return s, fmt.Sprintf("register %d = %d", p.address, v)
}

// Recover handles SOFT by dropping the connection (the next check
// reconnects) and MODULE_RESTART by reconnecting now. Heavier actions only
// release the connection ahead of the reboot.
func (p *RegisterProbe) Recover(action watchdog.RecoveryAction) bool {
	switch action {
	case watchdog.RecoverySoft:
		p.drop()
		return true

	case watchdog.RecoveryModuleRestart:
		p.drop()
		c, err := p.factory()
		if err != nil {
			return false
		}
		p.client = c
		return true

	default:
		p.drop()
		return true
	}
}

// Close releases the current connection, if any.
func (p *RegisterProbe) Close() error {
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *RegisterProbe) drop() {
	_ = p.Close()
}
