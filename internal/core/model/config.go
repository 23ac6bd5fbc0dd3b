package model

import "time"

// BreakConfig defines the length of a break.
type BreakConfig struct {
	Duration time.Duration
}

// LongBreakConfig extends BreakConfig with the number of pomodoros between long breaks.
type LongBreakConfig struct {
	BreakConfig
	Interval int
}

// TimerConfig contains runtime settings for the in-process timer.
type TimerConfig struct {
	Pomodoro time.Duration
	Short    BreakConfig
	Long     LongBreakConfig

	IdleCheckInterval time.Duration
	// ActiveThreshold is the idle time under which the user counts as back at work.
	ActiveThreshold time.Duration
}
