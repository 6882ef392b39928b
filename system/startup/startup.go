package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Unit describes how systemd should launch the controller.
type Unit struct {
	User       string
	WorkDir    string
	Binary     string
	ConfigFile string
	DBPath     string
	IRDevice   string
}

// ServiceUnit renders the systemd unit for the controller. The service waits
// for the LIRC device so the IR encoder does not start in disabled mode after
// a cold boot.
func ServiceUnit(u Unit) string {
	args := []string{u.Binary}
	if u.ConfigFile != "" {
		args = append(args, "--config-file="+u.ConfigFile)
	}
	if u.DBPath != "" {
		args = append(args, "--db-path="+u.DBPath)
	}

	var after []string
	after = append(after, "network-online.target")
	var condition string
	if u.IRDevice != "" {
		deviceUnit := systemdDeviceUnit(u.IRDevice)
		after = append(after, deviceUnit)
		condition = fmt.Sprintf("Wants=%s\n", deviceUnit)
	}

	return fmt.Sprintf(`[Unit]
Description=Fireplace thermostat controller
After=%s
Wants=network-online.target
%s
[Service]
Type=simple
User=%s
WorkingDirectory=%s
ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, strings.Join(after, " "), condition, u.User, u.WorkDir, strings.Join(args, " "))
}

// InstallService writes the unit file to path, creating its directory.
func InstallService(path string, u Unit) error {
	if u.Binary == "" {
		return fmt.Errorf("service binary path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(ServiceUnit(u)), 0644); err != nil {
		return fmt.Errorf("write service unit: %w", err)
	}
	return nil
}

// systemdDeviceUnit maps /dev/lirc0 to dev-lirc0.device.
func systemdDeviceUnit(device string) string {
	trimmed := strings.TrimPrefix(filepath.Clean(device), "/")
	return strings.ReplaceAll(trimmed, "/", "-") + ".device"
}
