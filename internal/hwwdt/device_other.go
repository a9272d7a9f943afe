// internal/hwwdt/device_other.go
//go:build !linux

package hwwdt

import "errors"

func openDevice(path string) (device, error) {
	return nil, errors.New("hwwdt: hardware watchdog devices are only supported on linux")
}
