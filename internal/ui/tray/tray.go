package tray

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/i18n"
	"pomodoro/resources"
)

const eventBuffer = 16

// App is the part of desktop.App the indicator drives.
type App interface {
	SetSystemTrayMenu(menu *fyne.Menu)
	SetSystemTrayIcon(icon fyne.Resource)
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnPreferences func()
	OnQuit        func()
}

// Indicator shows the timer state in the system tray.
type Indicator struct {
	app       App
	handle    timer.Handle
	dispatch  func(func())
	callbacks Callbacks

	menu       *fyne.Menu
	statusItem *fyne.MenuItem
	toggleItem *fyne.MenuItem

	state     model.TimerState
	remaining time.Duration
	destroyed bool
	done      chan struct{}
	onDestroy []func()
}

// New creates a tray indicator following handle. dispatch runs timer updates on the UI thread.
func New(app App, handle timer.Handle, dispatch func(func()), callbacks Callbacks) *Indicator {
	if dispatch == nil {
		dispatch = fyne.Do
	}
	indicator := &Indicator{
		app:       app,
		handle:    handle,
		dispatch:  dispatch,
		callbacks: callbacks,
		state:     handle.State(),
		done:      make(chan struct{}),
	}

	indicator.statusItem = fyne.NewMenuItem("", nil)
	indicator.statusItem.Disabled = true
	indicator.toggleItem = fyne.NewMenuItem("", func() {
		if !indicator.destroyed {
			indicator.handle.Toggle()
		}
	})

	indicator.menu = fyne.NewMenu(i18n.T("Pomodoro"),
		indicator.statusItem,
		indicator.toggleItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem(i18n.T("Preferences"), func() {
			if indicator.callbacks.OnPreferences != nil {
				indicator.callbacks.OnPreferences()
			}
		}),
		fyne.NewMenuItem(i18n.T("Quit"), func() {
			if indicator.callbacks.OnQuit != nil {
				indicator.callbacks.OnQuit()
			}
		}),
	)
	indicator.statusItem.Label = statusLabel(indicator.state, 0)
	indicator.toggleItem.Label = toggleLabel(indicator.state)
	if app != nil {
		app.SetSystemTrayIcon(stateIcon(indicator.state))
		app.SetSystemTrayMenu(indicator.menu)
	}

	go indicator.watch(handle.Subscribe(eventBuffer))
	return indicator
}

// State returns the state the indicator currently shows.
func (indicator *Indicator) State() model.TimerState {
	return indicator.state
}

// Status returns the status line of the tray menu.
func (indicator *Indicator) Status() string {
	return indicator.statusItem.Label
}

// OnDestroy registers a handler run once on Destroy.
func (indicator *Indicator) OnDestroy(handler func()) {
	indicator.onDestroy = append(indicator.onDestroy, handler)
}

// Destroy stops following the timer and clears the tray menu.
func (indicator *Indicator) Destroy() {
	if indicator.destroyed {
		return
	}
	indicator.destroyed = true
	close(indicator.done)
	if indicator.app != nil {
		indicator.app.SetSystemTrayMenu(fyne.NewMenu(""))
	}

	handlers := indicator.onDestroy
	indicator.onDestroy = nil
	for _, handler := range handlers {
		handler()
	}
}

func (indicator *Indicator) watch(events <-chan timer.Event) {
	for {
		select {
		case <-indicator.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			indicator.dispatch(func() {
				indicator.apply(event)
			})
		}
	}
}

// apply updates the menu in place. The icon and the toggle item change only
// with the state; progress only rewrites the status line.
func (indicator *Indicator) apply(event timer.Event) {
	if indicator.destroyed {
		return
	}
	state := event.State
	if event.Type == timer.EventServiceDisconnected {
		state = model.StateNull
	}
	stateChanged := state != indicator.state
	indicator.state = state
	indicator.remaining = event.Remaining()

	status := statusLabel(state, indicator.remaining)
	if !stateChanged && status == indicator.statusItem.Label {
		return
	}
	indicator.statusItem.Label = status
	if stateChanged {
		indicator.toggleItem.Label = toggleLabel(state)
	}

	if indicator.app == nil {
		return
	}
	if stateChanged {
		indicator.app.SetSystemTrayIcon(stateIcon(state))
	}
	indicator.app.SetSystemTrayMenu(indicator.menu)
}

func toggleLabel(state model.TimerState) string {
	if state == model.StateNull {
		return i18n.T("Start")
	}
	return i18n.T("Stop")
}

func statusLabel(state model.TimerState, remaining time.Duration) string {
	switch state {
	case model.StatePomodoro:
		return fmt.Sprintf("%s %s", i18n.T("Pomodoro"), formatDuration(remaining))
	case model.StatePause:
		return fmt.Sprintf("%s %s", i18n.T("Break"), formatDuration(remaining))
	case model.StateIdle:
		return i18n.T("Idle")
	default:
		return i18n.T("Stopped")
	}
}

func stateIcon(state model.TimerState) fyne.Resource {
	switch state {
	case model.StatePomodoro:
		return resources.MustIcon(resources.IconPomodoro)
	case model.StatePause:
		return resources.MustIcon(resources.IconBreak)
	case model.StateIdle:
		return resources.MustIcon(resources.IconIdle)
	default:
		return resources.MustIcon(resources.IconStopped)
	}
}

func formatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	seconds := int(value.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
