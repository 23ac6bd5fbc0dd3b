package model

import "strings"

// TimerState is the state reported by the Pomodoro timer service.
type TimerState string

const (
	StateNull     TimerState = "null"
	StateIdle     TimerState = "idle"
	StatePomodoro TimerState = "pomodoro"
	StatePause    TimerState = "pause"
)

// ParseTimerState maps a service state name to a TimerState.
// Unknown names are treated as StateNull.
func ParseTimerState(name string) TimerState {
	switch TimerState(strings.ToLower(strings.TrimSpace(name))) {
	case StateIdle:
		return StateIdle
	case StatePomodoro:
		return StatePomodoro
	case StatePause:
		return StatePause
	default:
		return StateNull
	}
}

// Running reports whether the timer is doing anything at all.
func (state TimerState) Running() bool {
	return state != StateNull && state != ""
}
