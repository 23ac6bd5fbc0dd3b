//go:build linux

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// desktopEntry is the XDG autostart entry that starts the indicator at login.
type desktopEntry struct {
	Name string
	Exec string
}

func (entry desktopEntry) encode() []byte {
	lines := []string{
		"[Desktop Entry]",
		"Type=Application",
		"Name=" + entry.Name,
		"Comment=Pomodoro timer indicator",
		"Icon=gnome-pomodoro",
		"Exec=" + quoteExec(entry.Exec),
		"Terminal=false",
		"OnlyShowIn=GNOME;Unity;XFCE;",
		"X-GNOME-Autostart-enabled=true",
		// Started after the shell so the tray and the notification daemon are on the bus.
		"X-GNOME-Autostart-Delay=5",
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func (service *platformService) autostartPath(appName string) (string, error) {
	configDir, err := service.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "autostart", entrySlug(appName)+".desktop"), nil
}

func (service *platformService) EnableAutostart(appName, execPath string) error {
	if appName == "" || execPath == "" {
		return fmt.Errorf("enable autostart: app name and exec path are required")
	}
	path, err := service.autostartPath(appName)
	if err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	entry := desktopEntry{Name: appName, Exec: execPath}
	if err := os.WriteFile(path, entry.encode(), 0o644); err != nil {
		return fmt.Errorf("enable autostart: %w", err)
	}
	return nil
}

func (service *platformService) DisableAutostart(appName string) error {
	if appName == "" {
		return fmt.Errorf("disable autostart: app name is required")
	}
	path, err := service.autostartPath(appName)
	if err != nil {
		return fmt.Errorf("disable autostart: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable autostart: %w", err)
	}
	return nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}
