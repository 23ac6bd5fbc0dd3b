package preferences

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"pomodoro/internal/i18n"
	"pomodoro/internal/keybinding"
)

// Window handles the preferences UI.
type Window struct {
	window   fyne.Window
	settings Settings
	onSave   func(Settings)
	onCancel func()

	pomodoro      *widget.Entry
	shortBreak    *widget.Entry
	longBreak     *widget.Entry
	longInterval  *widget.Entry
	idleToOpen    *widget.Entry
	toggleKey     *widget.Entry
	backend       *widget.Select
	screenNotices *widget.Check
	fullscreen    *widget.Check
	autostart     *widget.Check
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow(i18n.T("Pomodoro Preferences"))

	prefs := &Window{
		window:        window,
		onSave:        onSave,
		pomodoro:      widget.NewEntry(),
		shortBreak:    widget.NewEntry(),
		longBreak:     widget.NewEntry(),
		longInterval:  widget.NewEntry(),
		idleToOpen:    widget.NewEntry(),
		toggleKey:     widget.NewEntry(),
		backend:       widget.NewSelect([]string{BackendDBus, BackendLocal}, nil),
		screenNotices: widget.NewCheck(i18n.T("Show break screen"), nil),
		fullscreen:    widget.NewCheck(i18n.T("Fullscreen break screen"), nil),
		autostart:     widget.NewCheck(i18n.T("Start on login"), nil),
	}
	prefs.toggleKey.SetPlaceHolder("<Ctrl><Alt>p")

	form := container.NewVBox(
		widget.NewLabelWithStyle(i18n.T("Timer"), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel(i18n.T("Backend")), prefs.backend),
		container.NewHBox(widget.NewLabel(i18n.T("Pomodoro")), prefs.pomodoro, widget.NewLabel(i18n.T("min"))),
		container.NewHBox(widget.NewLabel(i18n.T("Short break")), prefs.shortBreak, widget.NewLabel(i18n.T("min"))),
		container.NewHBox(widget.NewLabel(i18n.T("Long break")), prefs.longBreak, widget.NewLabel(i18n.T("min"))),
		container.NewHBox(widget.NewLabel(i18n.T("Long break every")), prefs.longInterval, widget.NewLabel(i18n.T("pomodoros"))),
		widget.NewLabelWithStyle(i18n.T("Notifications"), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.screenNotices,
		prefs.fullscreen,
		container.NewHBox(widget.NewLabel(i18n.T("Reopen break screen after")), prefs.idleToOpen, widget.NewLabel(i18n.T("sec idle"))),
		widget.NewLabelWithStyle(i18n.T("General"), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel(i18n.T("Toggle timer shortcut")), prefs.toggleKey),
		prefs.autostart,
	)

	saveButton := widget.NewButton(i18n.T("Save"), prefs.handleSave)
	cancelButton := widget.NewButton(i18n.T("Cancel"), func() {
		window.Hide()
		if prefs.onCancel != nil {
			prefs.onCancel()
		}
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(460, 480))
	window.SetCloseIntercept(window.Hide)

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// SetOnCancel sets the handler run when editing is abandoned.
func (prefs *Window) SetOnCancel(handler func()) {
	prefs.onCancel = handler
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.pomodoro.SetText(fmt.Sprintf("%d", int(settings.PomodoroDuration.Minutes())))
	prefs.shortBreak.SetText(fmt.Sprintf("%d", int(settings.ShortBreakDuration.Minutes())))
	prefs.longBreak.SetText(fmt.Sprintf("%d", int(settings.LongBreakDuration.Minutes())))
	prefs.longInterval.SetText(fmt.Sprintf("%d", settings.LongBreakInterval))
	prefs.idleToOpen.SetText(fmt.Sprintf("%d", int(settings.IdleTimeToOpen.Seconds())))
	prefs.toggleKey.SetText(settings.ToggleTimerKey)
	prefs.backend.SetSelected(settings.TimerBackend)
	prefs.screenNotices.SetChecked(settings.ShowScreenNotifications)
	prefs.fullscreen.SetChecked(settings.Fullscreen)
	prefs.autostart.SetChecked(settings.Autostart)
}

func (prefs *Window) handleSave() {
	settings := prefs.collect()
	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

// collect reads the form, keeping the previous value of every invalid field.
func (prefs *Window) collect() Settings {
	settings := prefs.settings

	if minutes, ok := parsePositiveInt(prefs.pomodoro.Text); ok {
		settings.PomodoroDuration = time.Duration(minutes) * time.Minute
	}
	if minutes, ok := parsePositiveInt(prefs.shortBreak.Text); ok {
		settings.ShortBreakDuration = time.Duration(minutes) * time.Minute
	}
	if minutes, ok := parsePositiveInt(prefs.longBreak.Text); ok {
		settings.LongBreakDuration = time.Duration(minutes) * time.Minute
	}
	if count, ok := parsePositiveInt(prefs.longInterval.Text); ok {
		settings.LongBreakInterval = count
	}
	if seconds, ok := parsePositiveInt(prefs.idleToOpen.Text); ok {
		settings.IdleTimeToOpen = time.Duration(seconds) * time.Second
	}
	if _, err := keybinding.ParseAccelerator(prefs.toggleKey.Text); err == nil {
		settings.ToggleTimerKey = prefs.toggleKey.Text
	} else {
		log.Printf("preferences: %v", err)
	}
	if prefs.backend.Selected != "" {
		settings.TimerBackend = prefs.backend.Selected
	}

	settings.ShowScreenNotifications = prefs.screenNotices.Checked
	settings.Fullscreen = prefs.fullscreen.Checked
	settings.Autostart = prefs.autostart.Checked
	return settings
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
