package preferences

import (
	"time"

	"pomodoro/internal/core/model"
)

// Setting keys, as looked up by the indicator at runtime.
const (
	KeyShowScreenNotifications = "show-screen-notifications"
	KeyToggleTimerKey          = "toggle-timer-key"
	KeyTimerBackend            = "timer-backend"
	KeyFullscreen              = "fullscreen"
	KeyAutostart               = "autostart"
)

// Timer backends.
const (
	BackendDBus  = "dbus"
	BackendLocal = "local"
)

// Settings defines editable user preferences.
type Settings struct {
	ShowScreenNotifications bool
	ToggleTimerKey          string
	TimerBackend            string

	PomodoroDuration   time.Duration
	ShortBreakDuration time.Duration
	LongBreakDuration  time.Duration
	LongBreakInterval  int

	IdleTimeToOpen time.Duration
	Fullscreen     bool
	Autostart      bool
}

// DefaultSettings returns the settings used when no file exists yet.
func DefaultSettings() Settings {
	return Settings{
		ShowScreenNotifications: true,
		ToggleTimerKey:          "<Ctrl><Alt>p",
		TimerBackend:            BackendDBus,
		PomodoroDuration:        25 * time.Minute,
		ShortBreakDuration:      5 * time.Minute,
		LongBreakDuration:       15 * time.Minute,
		LongBreakInterval:       4,
		IdleTimeToOpen:          time.Minute,
		Fullscreen:              true,
	}
}

// Bool returns a boolean setting by key. Unknown keys are false.
func (settings Settings) Bool(key string) bool {
	switch key {
	case KeyShowScreenNotifications:
		return settings.ShowScreenNotifications
	case KeyFullscreen:
		return settings.Fullscreen
	case KeyAutostart:
		return settings.Autostart
	default:
		return false
	}
}

// String returns a string setting by key. Unknown keys are empty.
func (settings Settings) String(key string) string {
	switch key {
	case KeyToggleTimerKey:
		return settings.ToggleTimerKey
	case KeyTimerBackend:
		return settings.TimerBackend
	default:
		return ""
	}
}

// TimerConfig converts settings to the in-process timer configuration.
func (settings Settings) TimerConfig() model.TimerConfig {
	return model.TimerConfig{
		Pomodoro: settings.PomodoroDuration,
		Short:    model.BreakConfig{Duration: settings.ShortBreakDuration},
		Long: model.LongBreakConfig{
			BreakConfig: model.BreakConfig{Duration: settings.LongBreakDuration},
			Interval:    settings.LongBreakInterval,
		},
		IdleCheckInterval: 5 * time.Second,
		ActiveThreshold:   10 * time.Second,
	}
}
