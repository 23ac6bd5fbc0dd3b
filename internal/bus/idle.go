package bus

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"pomodoro/internal/core/timekeeper"
)

const (
	idleMonitorBusName = "org.gnome.Mutter.IdleMonitor"
	idleMonitorPath    = dbus.ObjectPath("/org/gnome/Mutter/IdleMonitor/Core")
	getIdletime        = "org.gnome.Mutter.IdleMonitor.GetIdletime"
)

// IdleMonitor reads the session idle time from the Mutter idle monitor and
// falls back to another checker once Mutter is found missing.
type IdleMonitor struct {
	object   methodCaller
	fallback timekeeper.IdleChecker

	mu          sync.Mutex
	unavailable bool
}

// NewIdleMonitor returns a monitor on conn. fallback may be nil.
func NewIdleMonitor(conn *dbus.Conn, fallback timekeeper.IdleChecker) *IdleMonitor {
	return newIdleMonitor(conn.Object(idleMonitorBusName, idleMonitorPath), fallback)
}

func newIdleMonitor(object methodCaller, fallback timekeeper.IdleChecker) *IdleMonitor {
	return &IdleMonitor{object: object, fallback: fallback}
}

// IdleDuration returns how long the user has been inactive.
func (monitor *IdleMonitor) IdleDuration() (time.Duration, error) {
	monitor.mu.Lock()
	unavailable := monitor.unavailable
	monitor.mu.Unlock()

	if !unavailable {
		var idleMillis uint64
		err := monitor.object.Call(getIdletime, 0).Store(&idleMillis)
		if err == nil {
			return time.Duration(idleMillis) * time.Millisecond, nil
		}
		log.Printf("idle monitor: %v", err)
		monitor.mu.Lock()
		monitor.unavailable = true
		monitor.mu.Unlock()
	}

	if monitor.fallback == nil {
		return 0, fmt.Errorf("mutter idle monitor: %w", timekeeper.ErrIdleUnsupported)
	}
	return monitor.fallback.IdleDuration()
}
