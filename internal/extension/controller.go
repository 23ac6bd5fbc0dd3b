package extension

import (
	"fmt"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/keybinding"
	"pomodoro/internal/notify"
	"pomodoro/internal/ui/preferences"
)

// PackageName is the status-area role of the indicator.
const PackageName = "gnome-pomodoro"

// ToggleTimerAction is the keybinding action that toggles the timer.
const ToggleTimerAction = "toggle-timer-key"

const eventBuffer = 32

// Controller wires the timer to the indicator, the notices and the break dialog.
// All fields are touched on the UI thread only.
type Controller struct {
	metadata   Metadata
	host       Host
	components Components

	settings      Settings
	timer         timer.Handle
	indicator     Indicator
	notifications Notifications
	notification  Notification
	dialog        Dialog

	destroyed bool
	onDestroy []func()
}

func newController(metadata Metadata, host Host, components Components) *Controller {
	controller := &Controller{
		metadata:   metadata,
		host:       host,
		components: components,
	}

	settings, settingsErr := components.Settings()
	if settingsErr != nil {
		controller.logError(fmt.Errorf("load settings: %w", settingsErr))
	} else {
		controller.settings = settings
	}

	controller.timer = components.Timer(controller.settings)

	controller.enableKeybinding()
	controller.enableIndicator()
	controller.enableNotifications()
	controller.enableScreenNotifications()

	if settingsErr != nil {
		controller.notifyIssue(settingsErr.Error())
	}

	events := controller.timer.Subscribe(eventBuffer)
	go controller.pump(events)
	controller.timer.Connect()

	return controller
}

func (controller *Controller) pump(events <-chan timer.Event) {
	for event := range events {
		event := event
		controller.host.Dispatch(func() {
			controller.handleEvent(event)
		})
	}
}

func (controller *Controller) handleEvent(event timer.Event) {
	if controller.destroyed {
		return
	}
	switch event.Type {
	case timer.EventServiceConnected:
		controller.onServiceConnected()
	case timer.EventServiceDisconnected:
		controller.onServiceDisconnected()
	case timer.EventStateChanged:
		controller.onTimerStateChanged()
	case timer.EventPomodoroStart:
		controller.onNotifyPomodoroStart()
	case timer.EventPomodoroEnd:
		controller.onNotifyPomodoroEnd()
	}
}

func (controller *Controller) onServiceConnected() {
	state := controller.timer.State()

	if state == model.StatePomodoro || state == model.StateIdle {
		controller.onNotifyPomodoroStart()
	}

	if state == model.StatePause {
		controller.onNotifyPomodoroEnd()
	}
}

func (controller *Controller) onServiceDisconnected() {
	if controller.dialog != nil {
		controller.dialog.Close()
	}

	if controller.notification != nil {
		controller.notification.Destroy()
		controller.notification = nil
	}
}

func (controller *Controller) onTimerStateChanged() {
	state := controller.timer.State()

	if controller.dialog != nil && state != model.StatePause {
		controller.dialog.Close()
	}

	if controller.notification != nil && state == model.StateNull {
		controller.notification.Destroy()
		controller.notification = nil
	}
}

func (controller *Controller) onNotifyPomodoroStart() {
	if controller.notifications == nil {
		return
	}
	if controller.notification != nil {
		controller.notification.Destroy()
	}

	notification := controller.notifications.NewStartNotice()
	notification.OnDestroy(func() {
		if controller.notification == notification {
			controller.notification = nil
		}
	})
	controller.notification = notification
	notification.Show()
}

func (controller *Controller) onNotifyPomodoroEnd() {
	if controller.notifications == nil {
		return
	}
	showScreenNotifications := controller.settings != nil &&
		controller.settings.Bool(preferences.KeyShowScreenNotifications)

	if controller.notification != nil {
		controller.notification.Destroy()
	}

	notification := controller.notifications.NewEndNotice()
	notification.OnClicked(func() {
		if controller.dialog != nil {
			controller.dialog.Open()
			controller.dialog.PushModal()

			notification.Hide()
		}
	})
	notification.OnDestroy(func() {
		if controller.notification == notification {
			controller.notification = nil
		}
	})
	controller.notification = notification

	if controller.dialog != nil && showScreenNotifications {
		controller.dialog.Open()
	} else {
		notification.Show()
	}
}

func (controller *Controller) onKeybindingPressed() {
	if controller.timer != nil {
		controller.timer.Toggle()
	}
}

func (controller *Controller) onDialogClosing() {
	if controller.destroyed || controller.timer == nil {
		return
	}
	if controller.timer.State() != model.StatePause {
		return
	}
	if controller.notification != nil && controller.notification.Kind() == notify.KindEnd {
		controller.notification.Show()
	}
	// TODO: skip re-arming while another window is fullscreen, e.g. during video playback.
	if controller.dialog != nil {
		controller.dialog.OpenWhenIdle()
	}
}

func (controller *Controller) enableIndicator() {
	controller.indicator = controller.components.Indicator(controller.timer)

	if err := controller.host.AddToStatusArea(PackageName, controller.indicator); err != nil {
		controller.logError(fmt.Errorf("add indicator: %w", err))
	}
}

func (controller *Controller) disableIndicator() {
	if controller.indicator != nil {
		controller.indicator.Destroy()
		controller.indicator = nil
	}
}

func (controller *Controller) enableKeybinding() {
	accelerator := ""
	if controller.settings != nil {
		accelerator = controller.settings.String(preferences.KeyToggleTimerKey)
	}
	err := controller.host.AddKeybinding(ToggleTimerAction,
		accelerator,
		keybinding.FlagsNone,
		keybinding.ModeAll,
		func() {
			controller.host.Dispatch(controller.onKeybindingPressed)
		})
	if err != nil {
		controller.logError(fmt.Errorf("add keybinding: %w", err))
	}
}

func (controller *Controller) disableKeybinding() {
	controller.host.RemoveKeybinding(ToggleTimerAction)
}

func (controller *Controller) enableNotifications() {
	controller.notifications = controller.components.Notifications()
}

func (controller *Controller) disableNotifications() {
	if controller.notification != nil {
		controller.notification.Destroy()
		controller.notification = nil
	}

	if controller.notifications != nil {
		controller.notifications.Destroy()
		controller.notifications = nil
	}
}

func (controller *Controller) enableScreenNotifications() {
	if controller.dialog != nil {
		return
	}
	dialog := controller.components.Dialog(controller.timer, controller.settings)
	if dialog == nil {
		return
	}
	dialog.OnClosing(controller.onDialogClosing)
	dialog.OnDestroy(func() {
		if controller.dialog == dialog {
			controller.dialog = nil
		}
	})
	controller.dialog = dialog
}

func (controller *Controller) disableScreenNotifications() {
	if controller.dialog != nil {
		controller.dialog.Destroy()
		controller.dialog = nil
	}
}

func (controller *Controller) notifyIssue(message string) {
	if controller.notifications == nil {
		return
	}
	controller.notifications.NewIssue(message).Show()
}

func (controller *Controller) logError(err error) {
	controller.host.LogExtensionError(controller.metadata.UUID, err)
}

// OnDestroy registers a handler run once the controller is torn down.
func (controller *Controller) OnDestroy(handler func()) {
	controller.onDestroy = append(controller.onDestroy, handler)
}

func (controller *Controller) destroy() {
	if controller.destroyed {
		return
	}
	controller.destroyed = true

	controller.disableKeybinding()
	controller.disableIndicator()
	controller.disableNotifications()
	controller.disableScreenNotifications()

	if controller.timer != nil {
		controller.timer.Destroy()
		controller.timer = nil
	}

	controller.settings = nil

	handlers := controller.onDestroy
	controller.onDestroy = nil
	for _, handler := range handlers {
		handler()
	}
}
