// Package timer describes the Pomodoro timer as seen by its consumers.
// The timer itself runs elsewhere: in the gnome-pomodoro service on the
// session bus, or in-process for standalone use.
package timer

import (
	"sync"

	"pomodoro/internal/core/model"
)

// Handle is a connection to a Pomodoro timer.
type Handle interface {
	// Connect starts watching the timer. Subscribe before calling it,
	// otherwise the initial service-connected event is missed.
	Connect()
	Subscribe(buffer int) <-chan Event
	State() model.TimerState
	Toggle()
	// Destroy stops watching the timer and closes all subscriber channels.
	Destroy()
}

// Broadcaster fans events out to subscriber channels without blocking.
// Slow subscribers drop events, as with the TimeKeeper it is based on.
type Broadcaster struct {
	mu     sync.Mutex
	events []chan Event
	closed bool
}

// Subscribe registers a new observer channel.
func (broadcaster *Broadcaster) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.closed {
		close(ch)
		return ch
	}
	broadcaster.events = append(broadcaster.events, ch)
	return ch
}

// Emit delivers event to every subscriber that has room for it.
func (broadcaster *Broadcaster) Emit(event Event) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	for _, ch := range broadcaster.events {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes all subscriber channels. Later subscriptions get a closed channel.
func (broadcaster *Broadcaster) Close() {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.closed {
		return
	}
	broadcaster.closed = true
	for _, ch := range broadcaster.events {
		close(ch)
	}
	broadcaster.events = nil
}
