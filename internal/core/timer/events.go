package timer

import (
	"time"

	"pomodoro/internal/core/model"
)

// EventType defines the type of timer event.
type EventType string

const (
	EventServiceConnected    EventType = "service-connected"
	EventServiceDisconnected EventType = "service-disconnected"
	EventStateChanged        EventType = "state-changed"
	EventPomodoroStart       EventType = "notify-pomodoro-start"
	EventPomodoroEnd         EventType = "notify-pomodoro-end"
	EventProgress            EventType = "progress"
)

// Event represents a timer update for observers.
type Event struct {
	Type     EventType
	State    model.TimerState
	Elapsed  time.Duration
	Duration time.Duration
	At       time.Time
}

// Remaining returns the time left in the current state, never negative.
func (event Event) Remaining() time.Duration {
	remaining := event.Duration - event.Elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
