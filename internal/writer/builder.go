// internal/writer/builder.go
package writer

import (
	"time"

	"github.com/tamzrod/health-watchdog/internal/config"
	"github.com/tamzrod/health-watchdog/internal/modbus"
)

// Build wires the Modbus status endpoint and writer.
// Assumes config has already been validated and normalized.
// The endpoint is dialed on the first write.
func Build(c config.StatusExportConfig) (*StatusWriter, func() error, error) {
	timeout := time.Duration(c.TimeoutMs) * time.Millisecond

	cli, err := modbus.New(modbus.Config{
		Endpoint: c.Endpoint,
		UnitID:   c.UnitID,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, nil, err
	}

	// One attempt plus retries, all inside roughly two timeouts.
	sw, err := NewStatusWriter(
		cli,
		Target{BaseAddress: c.BaseAddress},
		RetryPolicy(c.Retries, timeout/10, 2*timeout),
	)
	if err != nil {
		_ = cli.Close()
		return nil, nil, err
	}
	return sw, cli.Close, nil
}
