//go:build linux

package platform

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T) (*platformService, string) {
	t.Helper()
	dir := t.TempDir()
	return &platformService{
		configDir: func() (string, error) { return dir, nil },
		homeDir:   func() (string, error) { return "", errors.New("no home") },
	}, dir
}

func TestAutostartRoundTrip(t *testing.T) {
	service, dir := testService(t)
	path := filepath.Join(dir, "autostart", "pomodoro-indicator.desktop")

	require.NoError(t, service.EnableAutostart("Pomodoro Indicator", "/opt/pomodoro indicator/bin"))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Name=Pomodoro Indicator")
	assert.Contains(t, string(content), `Exec="/opt/pomodoro indicator/bin"`)
	assert.Contains(t, string(content), "X-GNOME-Autostart-enabled=true")

	require.NoError(t, service.DisableAutostart("Pomodoro Indicator"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, service.DisableAutostart("Pomodoro Indicator"), "removing twice is fine")
}

func TestAutostartValidation(t *testing.T) {
	service, _ := testService(t)
	assert.Error(t, service.EnableAutostart("", "/bin/true"))
	assert.Error(t, service.EnableAutostart("app", ""))
	assert.Error(t, service.DisableAutostart(""))
}

func TestConfigDirFallsBackToHome(t *testing.T) {
	service := &platformService{
		configDir: func() (string, error) { return "", errors.New("unset") },
		homeDir:   func() (string, error) { return "/home/ada", nil },
	}
	dir, err := service.GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/ada/.config", dir)

	service.homeDir = func() (string, error) { return "", errors.New("no home") }
	_, err = service.GetConfigDir()
	assert.ErrorContains(t, err, "unset")
}

func TestSyncAutostart(t *testing.T) {
	service, dir := testService(t)
	require.NoError(t, SyncAutostart(service, true, "pomodoro-indicator"))
	assert.FileExists(t, filepath.Join(dir, "autostart", "pomodoro-indicator.desktop"))

	require.NoError(t, SyncAutostart(service, false, "pomodoro-indicator"))
	assert.NoFileExists(t, filepath.Join(dir, "autostart", "pomodoro-indicator.desktop"))
}

func TestParseIdleMillis(t *testing.T) {
	idle, err := parseIdleMillis("1500\n")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, idle)

	idle, err = parseIdleMillis("-3")
	require.NoError(t, err)
	assert.Zero(t, idle)

	_, err = parseIdleMillis("soon")
	assert.Error(t, err)
}

func TestSingleInstanceLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pomodoro-indicator.lock")
	guard, err := acquireLock(path)
	require.NoError(t, err)
	defer guard.Release()
	assert.Equal(t, path, guard.Path())

	_, err = acquireLock(path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.ErrorContains(t, err, strconv.Itoa(os.Getpid()))

	require.NoError(t, guard.Release())
	require.NoError(t, guard.Release(), "releasing twice is fine")
	again, err := acquireLock(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestDesktopEntry(t *testing.T) {
	content := string(desktopEntry{Name: "Pomodoro", Exec: "/usr/bin/pomodoro-indicator"}.encode())
	assert.Contains(t, content, "Exec=/usr/bin/pomodoro-indicator\n")
	assert.Contains(t, content, "Icon=gnome-pomodoro")
	assert.Contains(t, content, "X-GNOME-Autostart-Delay=5")

	assert.Equal(t, `"/opt/it's \$HOME/bin"`, quoteExec(`/opt/it's $HOME/bin`))
	assert.Equal(t, "pomodoro-indicator", entrySlug("  "))
	assert.Equal(t, "pomodoro-indicator", entrySlug("Pomodoro Indicator"))
}
