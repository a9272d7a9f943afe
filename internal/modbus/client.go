// internal/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// MaxWriteQuantity is the FC 16 limit on registers per request.
const MaxWriteQuantity = 123

// Client is one Modbus TCP connection to one unit.
//
// It serves both health reads (probe) and status block writes (writer).
// The connection is opened on Connect or on the first request and is
// dropped after any failed request, so the next request redials.
type Client struct {
	mu       sync.Mutex
	endpoint string
	handler  *modbus.TCPClientHandler
	client   modbus.Client
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// New builds a client without dialing.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	return &Client{
		endpoint: cfg.Endpoint,
		handler:  h,
		client:   modbus.NewClient(h),
	}, nil
}

// Connect dials now instead of on the first request.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.handler.Connect(); err != nil {
		return fmt.Errorf("modbus: connect %s: %w", c.endpoint, err)
	}
	return nil
}

// Close closes the TCP connection.
func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// ---- reads (FC 3 / FC 4) ----

func (c *Client) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadHoldingRegisters(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackRegisters(raw, qty)
}

func (c *Client) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.client.ReadInputRegisters(addr, qty)
	if err != nil {
		return nil, c.drop(err)
	}
	return unpackRegisters(raw, qty)
}

// ---- writes (FC 16) ----

// WriteRegisters writes regs starting at addr, split into FC 16 sized
// requests. It stops at the first failed request.
func (c *Client) WriteRegisters(addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range chunks(len(regs), MaxWriteQuantity) {
		part := regs[ch.start:ch.end]
		at := addr + uint16(ch.start)
		if _, err := c.client.WriteMultipleRegisters(at, uint16(len(part)), packRegisters(part)); err != nil {
			return c.drop(fmt.Errorf("fc16 addr=%d qty=%d: %w", at, len(part), err))
		}
	}
	return nil
}

// drop closes the connection so the next request redials. Caller holds mu.
func (c *Client) drop(err error) error {
	_ = c.handler.Close()
	return err
}

// ---- helpers (pure geometry) ----

type span struct{ start, end int }

// chunks splits n items into consecutive spans of at most size.
func chunks(n, size int) []span {
	var out []span
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, span{start, end})
	}
	return out
}

// packRegisters encodes registers big-endian, Modbus wire order.
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

// unpackRegisters is the inverse of packRegisters.
func unpackRegisters(data []byte, qty uint16) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, errors.New("modbus: register payload length not even")
	}
	n := len(data) / 2
	if n < int(qty) {
		return nil, fmt.Errorf("modbus: short register payload: got=%d want=%d", n, qty)
	}
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out, nil
}
