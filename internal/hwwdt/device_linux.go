// internal/hwwdt/device_linux.go
//go:build linux

package hwwdt

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// linuxDevice drives the kernel watchdog API (linux/watchdog.h).
type linuxDevice struct {
	f *os.File
}

func openDevice(path string) (device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("hwwdt: open %s: %w", path, err)
	}
	return &linuxDevice{f: f}, nil
}

func (d *linuxDevice) fd() int { return int(d.f.Fd()) }

// Keepalive issues WDIOC_KEEPALIVE.
func (d *linuxDevice) Keepalive() error {
	return unix.IoctlWatchdogKeepalive(d.fd())
}

// Timeout issues WDIOC_GETTIMEOUT (whole seconds).
func (d *linuxDevice) Timeout() (time.Duration, error) {
	secs, err := unix.IoctlGetInt(d.fd(), unix.WDIOC_GETTIMEOUT)
	if err != nil {
		return 0, fmt.Errorf("hwwdt: WDIOC_GETTIMEOUT: %w", err)
	}
	return time.Duration(secs) * time.Second, nil
}

// MagicClose writes 'V' before closing.
func (d *linuxDevice) MagicClose() error {
	_, werr := d.f.Write([]byte("V"))
	if err := d.f.Close(); err != nil {
		return err
	}
	if werr != nil {
		return fmt.Errorf("hwwdt: magic close: %w", werr)
	}
	return nil
}
