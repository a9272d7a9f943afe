// internal/hwwdt/device.go
package hwwdt

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tamzrod/health-watchdog/internal/logging"
)

// DefaultDevice is the Linux watchdog character device.
const DefaultDevice = "/dev/watchdog"

// device is one opened watchdog timer.
type device interface {
	Keepalive() error
	// Timeout returns the programmed timeout; 0 when the driver cannot say.
	Timeout() (time.Duration, error)
	// MagicClose disarms (where the driver allows it) and releases the device.
	MagicClose() error
}

// DeviceFeeder feeds a hardware watchdog.
//
// Opening the device arms the timer. Close disarms on drivers built without
// nowayout; otherwise the board resets once the timeout expires.
type DeviceFeeder struct {
	path    string
	log     logrus.FieldLogger
	timeout time.Duration

	mu     sync.Mutex
	dev    device
	feeds  uint64
	errors uint64
}

// Open arms the device and reads its timeout.
func Open(path string, log logrus.FieldLogger) (*DeviceFeeder, error) {
	if path == "" {
		path = DefaultDevice
	}
	dev, err := openDevice(path)
	if err != nil {
		return nil, err
	}
	return newDeviceFeeder(path, dev, log), nil
}

func newDeviceFeeder(path string, dev device, log logrus.FieldLogger) *DeviceFeeder {
	if log == nil {
		log = logging.NewDiscardLogger()
	}
	d := &DeviceFeeder{
		path: path,
		log:  log.WithField("device", path),
		dev:  dev,
	}

	timeout, err := dev.Timeout()
	if err != nil {
		d.log.WithError(err).Warn("hwwdt: cannot read timeout, tick budget is unchecked")
	} else {
		d.timeout = timeout
		d.log.WithField("timeout", timeout.String()).Info("hwwdt: device armed")
	}
	return d
}

// Timeout is the device timeout read at Open; 0 when unknown.
func (d *DeviceFeeder) Timeout() time.Duration { return d.timeout }

// Feed sends one keepalive. Errors are logged, not returned: a missed feed
// is exactly what the hardware is there to catch.
func (d *DeviceFeeder) Feed() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return
	}
	if err := d.dev.Keepalive(); err != nil {
		d.errors++
		d.log.WithError(err).Error("hwwdt: keepalive failed")
		return
	}
	d.feeds++
}

// Feeds returns the number of successful keepalives.
func (d *DeviceFeeder) Feeds() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.feeds
}

// Errors returns the number of failed keepalives.
func (d *DeviceFeeder) Errors() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errors
}

// Close disarms and releases the device. Safe to call twice.
func (d *DeviceFeeder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dev == nil {
		return nil
	}
	dev := d.dev
	d.dev = nil
	return dev.MagicClose()
}
