// internal/hwwdt/device_test.go
package hwwdt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	timeout    time.Duration
	timeoutErr error
	failPing   bool

	pings  int
	closed int
}

func (f *fakeDevice) Keepalive() error {
	if f.failPing {
		return errors.New("device busy")
	}
	f.pings++
	return nil
}

func (f *fakeDevice) Timeout() (time.Duration, error) { return f.timeout, f.timeoutErr }

func (f *fakeDevice) MagicClose() error {
	f.closed++
	return nil
}

func TestDeviceFeeder_FeedAndClose(t *testing.T) {
	dev := &fakeDevice{timeout: 15 * time.Second}
	d := newDeviceFeeder("fake", dev, nil)

	require.Equal(t, 15*time.Second, d.Timeout())

	d.Feed()
	d.Feed()
	require.Equal(t, uint64(2), d.Feeds())
	require.Equal(t, 2, dev.pings)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	require.Equal(t, 1, dev.closed)

	// Feeding after close is a no-op.
	d.Feed()
	require.Equal(t, 2, dev.pings)
}

func TestDeviceFeeder_KeepaliveErrorIsCounted(t *testing.T) {
	d := newDeviceFeeder("fake", &fakeDevice{failPing: true}, nil)

	d.Feed()
	require.Equal(t, uint64(0), d.Feeds())
	require.Equal(t, uint64(1), d.Errors())
}

func TestDeviceFeeder_UnknownTimeout(t *testing.T) {
	d := newDeviceFeeder("fake", &fakeDevice{timeoutErr: errors.New("ENOTTY")}, nil)
	require.Zero(t, d.Timeout())
}
