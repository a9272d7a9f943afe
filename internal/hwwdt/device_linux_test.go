// internal/hwwdt/device_linux_test.go
//go:build linux

package hwwdt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// A regular file accepts the magic close but rejects the watchdog ioctls.
func TestOpen_RegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	d, err := Open(path, nil)
	require.NoError(t, err)
	require.Zero(t, d.Timeout())

	d.Feed()
	require.Equal(t, uint64(1), d.Errors())

	require.NoError(t, d.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("V"), raw)
}

func TestOpen_MissingDevice(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
}
