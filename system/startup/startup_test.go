package startup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceUnit(t *testing.T) {
	unit := ServiceUnit(Unit{
		User:       "pi",
		WorkDir:    "/home/pi/fireplace-controller",
		Binary:     "/usr/local/bin/fireplace-controller",
		ConfigFile: "/etc/fireplace/config.json",
		DBPath:     "/var/lib/fireplace/fireplace.db",
		IRDevice:   "/dev/lirc0",
	})

	assert.Contains(t, unit, "After=network-online.target dev-lirc0.device\n")
	assert.Contains(t, unit, "Wants=dev-lirc0.device\n")
	assert.Contains(t, unit, "User=pi\n")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/fireplace-controller --config-file=/etc/fireplace/config.json --db-path=/var/lib/fireplace/fireplace.db\n")
	assert.Contains(t, unit, "Restart=on-failure")
}

func TestServiceUnitWithoutDevice(t *testing.T) {
	unit := ServiceUnit(Unit{User: "pi", WorkDir: "/tmp", Binary: "/bin/fp"})
	assert.Contains(t, unit, "After=network-online.target\n")
	assert.NotContains(t, unit, ".device")
	assert.Contains(t, unit, "ExecStart=/bin/fp\n")
}

func TestInstallService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "systemd", "fireplace-controller.service")
	u := Unit{User: "pi", WorkDir: "/tmp", Binary: "/bin/fp", IRDevice: "/dev/lirc1"}

	require.NoError(t, InstallService(path, u))
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ServiceUnit(u), string(contents))
}

func TestInstallServiceRequiresBinary(t *testing.T) {
	err := InstallService(filepath.Join(t.TempDir(), "x.service"), Unit{})
	assert.Error(t, err)
}
