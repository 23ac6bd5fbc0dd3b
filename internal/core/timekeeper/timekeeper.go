// Package timekeeper runs a Pomodoro timer inside the process, for desktops
// where the gnome-pomodoro service is not installed.
package timekeeper

import (
	"errors"
	"log"
	"sync"
	"time"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
)

// ErrIdleUnsupported indicates idle detection is not available on this system.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// IdleChecker reports the duration of user inactivity.
type IdleChecker interface {
	IdleDuration() (time.Duration, error)
}

// Config contains runtime options for the Keeper.
type Config struct {
	TickInterval time.Duration
}

// Keeper is a state machine cycling through pomodoros and breaks.
// It satisfies timer.Handle.
type Keeper struct {
	mu            sync.Mutex
	config        model.TimerConfig
	options       Config
	state         model.TimerState
	elapsed       time.Duration
	duration      time.Duration
	completed     int
	idleChecker   IdleChecker
	lastIdleCheck time.Time
	broadcaster   timer.Broadcaster
	stopCh        chan struct{}
	running       bool
	destroyed     bool
}

var _ timer.Handle = (*Keeper)(nil)

// New creates a Keeper with the provided configuration.
func New(config model.TimerConfig, options Config) *Keeper {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	keeper := &Keeper{
		options: options,
		state:   model.StateNull,
		stopCh:  make(chan struct{}),
	}
	keeper.config = normalizeConfig(config)
	return keeper
}

// SetIdleChecker injects an idle checker used to detect the return to work after a break.
func (keeper *Keeper) SetIdleChecker(checker IdleChecker) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	keeper.idleChecker = checker
}

// Subscribe registers a new observer channel.
func (keeper *Keeper) Subscribe(buffer int) <-chan timer.Event {
	return keeper.broadcaster.Subscribe(buffer)
}

// Connect launches the ticking loop. The in-process service is always reachable,
// so service-connected is emitted right away.
func (keeper *Keeper) Connect() {
	keeper.mu.Lock()
	if keeper.running || keeper.destroyed {
		keeper.mu.Unlock()
		return
	}
	keeper.running = true
	keeper.emitLocked(timer.EventServiceConnected, time.Now())
	keeper.mu.Unlock()

	go keeper.run()
}

// Destroy terminates the ticking loop and closes observers.
func (keeper *Keeper) Destroy() {
	keeper.mu.Lock()
	if keeper.destroyed {
		keeper.mu.Unlock()
		return
	}
	keeper.destroyed = true
	if keeper.running {
		close(keeper.stopCh)
		keeper.running = false
	}
	keeper.mu.Unlock()

	keeper.broadcaster.Close()
}

// State returns the current timer state.
func (keeper *Keeper) State() model.TimerState {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	return keeper.state
}

// Toggle starts a pomodoro when stopped and stops the timer otherwise.
func (keeper *Keeper) Toggle() {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.state == model.StateNull {
		keeper.enterPomodoroLocked(time.Now())
		return
	}
	keeper.state = model.StateNull
	keeper.elapsed = 0
	keeper.duration = 0
	keeper.completed = 0
	keeper.emitLocked(timer.EventStateChanged, time.Now())
}

// UpdateConfig replaces durations. A running interval keeps its length.
func (keeper *Keeper) UpdateConfig(config model.TimerConfig) {
	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	keeper.config = normalizeConfig(config)
}

func (keeper *Keeper) run() {
	ticker := time.NewTicker(keeper.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-keeper.stopCh:
			return
		case tickTime := <-ticker.C:
			keeper.tick(tickTime)
		}
	}
}

func (keeper *Keeper) tick(tickTime time.Time) {
	keeper.mu.Lock()
	if keeper.destroyed {
		keeper.mu.Unlock()
		return
	}
	if keeper.state == model.StateIdle {
		checker := keeper.idleCheckDueLocked(tickTime)
		keeper.mu.Unlock()
		if checker != nil {
			keeper.checkIdle(checker, tickTime)
		}
		return
	}
	defer keeper.mu.Unlock()

	switch keeper.state {
	case model.StatePomodoro:
		keeper.elapsed += keeper.options.TickInterval
		if keeper.elapsed >= keeper.duration {
			keeper.enterBreakLocked(tickTime)
			return
		}
		keeper.emitLocked(timer.EventProgress, tickTime)
	case model.StatePause:
		keeper.elapsed += keeper.options.TickInterval
		if keeper.elapsed >= keeper.duration {
			keeper.state = model.StateIdle
			keeper.elapsed = 0
			keeper.duration = 0
			keeper.lastIdleCheck = time.Time{}
			keeper.emitLocked(timer.EventStateChanged, tickTime)
			keeper.emitLocked(timer.EventPomodoroStart, tickTime)
			return
		}
		keeper.emitLocked(timer.EventProgress, tickTime)
	}
}

// idleCheckDueLocked returns the checker to ask now, or nil. Without a
// checker the pomodoro starts right away.
func (keeper *Keeper) idleCheckDueLocked(now time.Time) IdleChecker {
	if keeper.idleChecker == nil {
		keeper.enterPomodoroLocked(now)
		return nil
	}
	if !keeper.lastIdleCheck.IsZero() && now.Sub(keeper.lastIdleCheck) < keeper.config.IdleCheckInterval {
		return nil
	}
	keeper.lastIdleCheck = now
	return keeper.idleChecker
}

// checkIdle must be called without mu held: the checker may be a bus call.
func (keeper *Keeper) checkIdle(checker IdleChecker, now time.Time) {
	idleDuration, err := checker.IdleDuration()

	keeper.mu.Lock()
	defer keeper.mu.Unlock()
	if keeper.destroyed || keeper.state != model.StateIdle {
		return
	}
	if err != nil {
		if errors.Is(err, ErrIdleUnsupported) {
			keeper.idleChecker = nil
			keeper.enterPomodoroLocked(now)
			return
		}
		log.Printf("timekeeper idle check: %v", err)
		return
	}
	if idleDuration < keeper.config.ActiveThreshold {
		keeper.enterPomodoroLocked(now)
	}
}

func (keeper *Keeper) enterPomodoroLocked(now time.Time) {
	keeper.state = model.StatePomodoro
	keeper.elapsed = 0
	keeper.duration = keeper.config.Pomodoro
	keeper.emitLocked(timer.EventStateChanged, now)
}

func (keeper *Keeper) enterBreakLocked(now time.Time) {
	keeper.completed++
	keeper.state = model.StatePause
	keeper.elapsed = 0
	keeper.duration = keeper.config.Short.Duration
	if keeper.config.Long.Interval > 0 && keeper.completed%keeper.config.Long.Interval == 0 {
		keeper.duration = keeper.config.Long.Duration
	}
	keeper.emitLocked(timer.EventStateChanged, now)
	keeper.emitLocked(timer.EventPomodoroEnd, now)
}

func (keeper *Keeper) emitLocked(eventType timer.EventType, now time.Time) {
	keeper.broadcaster.Emit(timer.Event{
		Type:     eventType,
		State:    keeper.state,
		Elapsed:  keeper.elapsed,
		Duration: keeper.duration,
		At:       now,
	})
}

func normalizeConfig(config model.TimerConfig) model.TimerConfig {
	if config.Pomodoro <= 0 {
		config.Pomodoro = 25 * time.Minute
	}
	if config.Short.Duration <= 0 {
		config.Short.Duration = 5 * time.Minute
	}
	if config.Long.Duration <= 0 {
		config.Long.Duration = 15 * time.Minute
	}
	if config.IdleCheckInterval <= 0 {
		config.IdleCheckInterval = 5 * time.Second
	}
	if config.ActiveThreshold <= 0 {
		config.ActiveThreshold = 10 * time.Second
	}
	return config
}
