package shell

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timekeeper"
	"pomodoro/internal/extension"
	"pomodoro/internal/keybinding"
	"pomodoro/internal/notify"
	"pomodoro/internal/storage"
	"pomodoro/internal/ui/overlay"
	"pomodoro/internal/ui/preferences"
	"pomodoro/internal/ui/tray"
)

func immediate(fn func()) { fn() }

type fakeIndicator struct {
	destroyed bool
	onDestroy []func()
}

func (indicator *fakeIndicator) OnDestroy(handler func()) {
	indicator.onDestroy = append(indicator.onDestroy, handler)
}

func (indicator *fakeIndicator) Destroy() {
	indicator.destroyed = true
	for _, handler := range indicator.onDestroy {
		handler()
	}
}

func TestStatusAreaRoles(t *testing.T) {
	shell := New(immediate)
	first, second := &fakeIndicator{}, &fakeIndicator{}

	require.NoError(t, shell.AddToStatusArea("pomodoro", first))
	assert.ErrorIs(t, shell.AddToStatusArea("pomodoro", second), tray.ErrRoleTaken)

	first.Destroy()
	_, ok := shell.StatusArea().Lookup("pomodoro")
	assert.False(t, ok, "destroyed indicators leave the status area")
	assert.NoError(t, shell.AddToStatusArea("pomodoro", second))
}

func TestKeybindings(t *testing.T) {
	shell := New(immediate)
	pressed := 0
	require.NoError(t, shell.AddKeybinding("toggle-timer-key", "<Ctrl><Alt>p", keybinding.FlagsNone, keybinding.ModeAll, func() { pressed++ }))
	assert.ErrorIs(t, shell.AddKeybinding("toggle-timer-key", "", keybinding.FlagsNone, keybinding.ModeAll, func() {}), keybinding.ErrExists)

	assert.True(t, shell.Keybindings().Activate("toggle-timer-key"))
	assert.Equal(t, 1, pressed)

	shell.RemoveKeybinding("toggle-timer-key")
	assert.False(t, shell.Keybindings().Activate("toggle-timer-key"))
}

func TestLogExtensionError(t *testing.T) {
	shell := New(immediate)
	shell.LogExtensionError("pomodoro@test", nil)
	shell.LogExtensionError("pomodoro@test", errors.New("boom"))

	reported := shell.Errors()
	require.Len(t, reported, 1)
	assert.Equal(t, "pomodoro@test", reported[0].UUID)
	assert.EqualError(t, reported[0].Err, "boom")
}

func newComponents(t *testing.T, settings string) (*Components, *Shell) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if settings != "" {
		require.NoError(t, os.WriteFile(path, []byte(settings), 0o644))
	}
	shell := New(immediate)
	components := NewComponents(test.NewTempApp(t), shell, nil, Options{SettingsPath: path})
	return components, shell
}

func TestComponentsWithoutBus(t *testing.T) {
	components, _ := newComponents(t, "pomodoro_minutes: 50\nfullscreen: false\n")

	settings, err := components.Settings()
	require.NoError(t, err)
	assert.True(t, settings.Bool(preferences.KeyShowScreenNotifications))

	handle := components.Timer(settings)
	keeper, ok := handle.(*timekeeper.Keeper)
	require.True(t, ok, "without a bus the local timer runs")
	assert.Equal(t, model.StateNull, keeper.State())

	indicator := components.Indicator(handle)
	require.IsType(t, &tray.Indicator{}, indicator)

	dialog := components.Dialog(handle, settings)
	require.IsType(t, &overlay.Dialog{}, dialog)

	notifications := components.Notifications()
	notice := notifications.NewEndNotice()
	assert.Equal(t, notify.KindEnd, notice.Kind())
	notice.Show()
	notifications.Destroy()

	dialog.Destroy()
	indicator.Destroy()
	handle.Destroy()
}

func TestComponentsSettingsError(t *testing.T) {
	components, _ := newComponents(t, "no_such_key: 1\n")
	_, err := components.Settings()
	assert.ErrorIs(t, err, storage.ErrSchema)

	handle := components.Timer(nil)
	assert.IsType(t, &timekeeper.Keeper{}, handle)
	handle.Destroy()
}

func TestSaveSettings(t *testing.T) {
	components, _ := newComponents(t, "")
	saved := 0
	components.options.OnSettingsSaved = func() { saved++ }
	_, err := components.Settings()
	require.NoError(t, err)

	settings := preferences.DefaultSettings()
	settings.TimerBackend = preferences.BackendLocal
	components.saveSettings(settings)
	assert.Equal(t, 1, saved)

	reloaded, err := storage.OpenFile(components.options.SettingsPath)
	require.NoError(t, err)
	assert.Equal(t, preferences.BackendLocal, reloaded.String(preferences.KeyTimerBackend))
}

type recordingGrabber struct {
	grabbed   map[string]string
	ungrabbed []string
}

func (grabber *recordingGrabber) Grab(name string, accelerator keybinding.Accelerator) error {
	grabber.grabbed[name] = accelerator.String()
	return nil
}

func (grabber *recordingGrabber) Ungrab(name string) error {
	grabber.ungrabbed = append(grabber.ungrabbed, name)
	return nil
}

func TestExtensionRunsOnLocalTimer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("toggle_timer_key: <Super>F9\n"), 0o644))
	calls := make(chan func(), 64)
	shell := New(func(fn func()) { calls <- fn })
	grabber := &recordingGrabber{grabbed: make(map[string]string)}
	shell.Keybindings().SetGrabber(grabber)
	components := NewComponents(test.NewTempApp(t), shell, nil, Options{SettingsPath: path})

	ext := extension.New(shell, components)
	ext.Init(extension.Metadata{UUID: "pomodoro@test"})
	ext.Enable()
	require.True(t, ext.Enabled())

	_, ok := shell.StatusArea().Lookup(extension.PackageName)
	assert.True(t, ok)
	assert.Equal(t, []string{extension.ToggleTimerAction}, shell.Keybindings().Names())
	assert.Equal(t, map[string]string{extension.ToggleTimerAction: "<Super>F9"}, grabber.grabbed,
		"the configured accelerator is bound in the desktop")

	select {
	case fn := <-calls:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("service-connected was not dispatched")
	}

	ext.Disable()
	_, ok = shell.StatusArea().Lookup(extension.PackageName)
	assert.False(t, ok)
	assert.Empty(t, shell.Keybindings().Names())
	assert.Equal(t, []string{extension.ToggleTimerAction}, grabber.ungrabbed)
	assert.Empty(t, shell.Errors())
}
