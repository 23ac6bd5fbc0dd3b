package shell

import (
	"fmt"
	"log"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/godbus/dbus/v5"

	"pomodoro/internal/bus"
	"pomodoro/internal/core/timekeeper"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/extension"
	"pomodoro/internal/notify"
	"pomodoro/internal/platform"
	"pomodoro/internal/storage"
	"pomodoro/internal/ui/overlay"
	"pomodoro/internal/ui/preferences"
	"pomodoro/internal/ui/tray"
)

// Options configures the components.
type Options struct {
	AppName string
	// SettingsPath overrides the settings file location.
	SettingsPath string
	// OnQuit runs when the user quits from the tray.
	OnQuit func()
	// OnSettingsSaved runs after the preferences window stored new settings.
	OnSettingsSaved func()
}

// Components builds the pieces the controller drives. conn may be nil, in
// which case the local timer and fyne notifications are used.
type Components struct {
	app      fyne.App
	shell    *Shell
	conn     *dbus.Conn
	options  Options
	platform platform.Service

	mu          sync.Mutex
	store       *storage.Store
	preferences *preferences.Window
}

var _ extension.Components = (*Components)(nil)

// NewComponents returns a component factory.
func NewComponents(app fyne.App, shell *Shell, conn *dbus.Conn, options Options) *Components {
	if options.AppName == "" {
		options.AppName = "pomodoro-indicator"
	}
	return &Components{
		app:      app,
		shell:    shell,
		conn:     conn,
		options:  options,
		platform: platform.NewService(),
	}
}

// Settings loads the settings file.
func (components *Components) Settings() (extension.Settings, error) {
	var (
		store *storage.Store
		err   error
	)
	if components.options.SettingsPath != "" {
		store, err = storage.OpenFile(components.options.SettingsPath)
	} else {
		store, err = storage.Open(components.options.AppName)
	}
	if err != nil {
		return nil, err
	}
	components.mu.Lock()
	components.store = store
	components.mu.Unlock()
	return store, nil
}

// Timer picks the backend named by the settings.
func (components *Components) Timer(settings extension.Settings) timer.Handle {
	current := components.currentSettings(settings)
	if components.conn != nil && current.TimerBackend != preferences.BackendLocal {
		return bus.NewRemoteTimer(components.conn)
	}
	keeper := timekeeper.New(current.TimerConfig(), timekeeper.Config{})
	keeper.SetIdleChecker(components.idleChecker())
	return keeper
}

// Indicator creates the tray indicator.
func (components *Components) Indicator(handle timer.Handle) extension.Indicator {
	var app tray.App
	if desktopApp, ok := components.app.(desktop.App); ok {
		app = desktopApp
	}
	return tray.New(app, handle, components.shell.Dispatch, tray.Callbacks{
		OnPreferences: components.showPreferences,
		OnQuit:        components.options.OnQuit,
	})
}

// Notifications creates a notification source on the desktop daemon.
func (components *Components) Notifications() extension.Notifications {
	if components.conn == nil {
		source := notify.NewSource(newFyneServer(components.app), components.shell.Dispatch)
		return &notices{source: source}
	}
	server := bus.NewNotificationServer(components.conn, "Pomodoro")
	source := notify.NewSource(server, components.shell.Dispatch)
	if err := server.Watch(source); err != nil {
		log.Printf("notifications: %v", err)
	}
	return &notices{source: source, server: server}
}

// Dialog creates the break screen.
func (components *Components) Dialog(handle timer.Handle, settings extension.Settings) extension.Dialog {
	current := components.currentSettings(settings)
	config := overlay.DefaultConfig()
	config.Fullscreen = current.Fullscreen
	config.IdleTimeToOpen = current.IdleTimeToOpen
	return overlay.New(components.app, handle, components.idleChecker(), components.shell.Dispatch, config)
}

func (components *Components) currentSettings(settings extension.Settings) preferences.Settings {
	if full, ok := settings.(interface{ Settings() preferences.Settings }); ok {
		return full.Settings()
	}
	return preferences.DefaultSettings()
}

func (components *Components) idleChecker() timekeeper.IdleChecker {
	fallback := platform.NewIdleProvider()
	if components.conn == nil {
		return fallback
	}
	return bus.NewIdleMonitor(components.conn, fallback)
}

func (components *Components) showPreferences() {
	components.mu.Lock()
	store := components.store
	components.mu.Unlock()
	if store == nil {
		log.Printf("preferences: settings unavailable")
		return
	}

	if components.preferences == nil {
		components.preferences = preferences.New(components.app, store.Settings(), components.saveSettings)
	} else {
		components.preferences.UpdateSettings(store.Settings())
	}
	components.preferences.Show()
}

func (components *Components) saveSettings(settings preferences.Settings) {
	components.mu.Lock()
	store := components.store
	components.mu.Unlock()
	if store == nil {
		return
	}
	if err := store.Update(settings); err != nil {
		log.Printf("preferences: %v", err)
		return
	}
	if err := platform.SyncAutostart(components.platform, settings.Autostart, components.options.AppName); err != nil {
		log.Printf("autostart: %v", err)
	}
	if components.options.OnSettingsSaved != nil {
		components.options.OnSettingsSaved()
	}
}

// notices adapts a notify.Source to the controller.
type notices struct {
	source *notify.Source
	server *bus.NotificationServer
}

func (notices *notices) NewStartNotice() extension.Notification {
	return notices.source.NewStartNotice()
}

func (notices *notices) NewEndNotice() extension.Notification {
	return notices.source.NewEndNotice()
}

func (notices *notices) NewIssue(message string) extension.Notification {
	return notices.source.NewIssue(message)
}

func (notices *notices) Destroy() {
	notices.source.Destroy()
	if notices.server != nil {
		notices.server.Stop()
	}
}

// fyneServer posts through fyne when no session bus is available. Such
// notices cannot be withdrawn or clicked.
type fyneServer struct {
	app fyne.App

	mu     sync.Mutex
	nextID uint32
}

func newFyneServer(app fyne.App) *fyneServer {
	return &fyneServer{app: app}
}

func (server *fyneServer) Notify(message notify.Message, replacesID uint32) (uint32, error) {
	if server.app == nil {
		return 0, fmt.Errorf("send notification: no application")
	}
	server.app.SendNotification(fyne.NewNotification(message.Summary, message.Body))
	if replacesID != 0 {
		return replacesID, nil
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	server.nextID++
	return server.nextID, nil
}

func (server *fyneServer) CloseNotification(uint32) error {
	return nil
}
