package extension

import (
	"pomodoro/internal/core/timer"
	"pomodoro/internal/keybinding"
	"pomodoro/internal/notify"
)

// Settings is the read side of the settings store.
type Settings interface {
	Bool(key string) bool
	String(key string) string
}

// Notification is a transient pop-up owned by the controller.
type Notification interface {
	Show()
	Hide()
	Destroy()
	Kind() notify.Kind
	OnClicked(handler func())
	OnDestroy(handler func())
}

// Notifications creates notices and owns them until Destroy.
type Notifications interface {
	NewStartNotice() Notification
	NewEndNotice() Notification
	NewIssue(message string) Notification
	Destroy()
}

// Dialog is the full-screen break dialog.
type Dialog interface {
	Open()
	Close()
	PushModal()
	OpenWhenIdle()
	Destroy()
	// OnClosing handlers run whenever an open dialog closes, but not on Destroy.
	OnClosing(handler func())
	OnDestroy(handler func())
}

// Indicator is the status-area presence of the timer.
type Indicator interface {
	Destroy()
}

// Components builds the collaborators of a controller.
type Components interface {
	Settings() (Settings, error)
	Timer(settings Settings) timer.Handle
	Indicator(handle timer.Handle) Indicator
	Notifications() Notifications
	Dialog(handle timer.Handle, settings Settings) Dialog
}

// Host is the desktop shell the extension is loaded into.
type Host interface {
	AddToStatusArea(role string, indicator Indicator) error
	AddKeybinding(name, accelerator string, flags keybinding.Flags, mode keybinding.Mode, handler func()) error
	RemoveKeybinding(name string)
	LogExtensionError(uuid string, err error)
	// Dispatch runs fn on the UI thread. Every controller handler runs there.
	Dispatch(fn func())
}
