package bus

import (
	"log"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
)

const (
	TimerBusName   = "org.gnome.Pomodoro"
	TimerPath      = dbus.ObjectPath("/org/gnome/Pomodoro")
	TimerInterface = "org.gnome.Pomodoro"

	timerStart            = TimerInterface + ".Start"
	timerStop             = TimerInterface + ".Stop"
	timerNotifyStart      = TimerInterface + ".NotifyPomodoroStart"
	timerNotifyEnd        = TimerInterface + ".NotifyPomodoroEnd"
	propertyState         = "State"
	propertyElapsed       = "Elapsed"
	propertyStateDuration = "StateDuration"
)

// RemoteTimer is a timer.Handle backed by the gnome-pomodoro service.
type RemoteTimer struct {
	conn    signalConn
	object  methodCaller
	running func() bool

	broadcaster timer.Broadcaster
	now         func() time.Time

	mu        sync.Mutex
	state     model.TimerState
	elapsed   time.Duration
	duration  time.Duration
	connected bool

	sub       *subscription
	done      chan struct{}
	closeOnce sync.Once
}

// NewRemoteTimer returns a handle watching the service on conn.
func NewRemoteTimer(conn *dbus.Conn) *RemoteTimer {
	remote := newRemoteTimer(conn.Object(TimerBusName, TimerPath))
	remote.conn = conn
	remote.running = func() bool { return nameOwned(conn, TimerBusName) }
	return remote
}

func newRemoteTimer(object methodCaller) *RemoteTimer {
	return &RemoteTimer{
		object: object,
		state:  model.StateNull,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// Subscribe registers a new observer channel.
func (remote *RemoteTimer) Subscribe(buffer int) <-chan timer.Event {
	return remote.broadcaster.Subscribe(buffer)
}

// Connect starts watching the service and reports it as connected if it already runs.
func (remote *RemoteTimer) Connect() {
	if remote.conn == nil {
		return
	}
	sub, err := subscribe(remote.conn,
		[]dbus.MatchOption{
			dbus.WithMatchInterface(dbusInterface),
			dbus.WithMatchMember("NameOwnerChanged"),
			dbus.WithMatchArg(0, TimerBusName),
		},
		[]dbus.MatchOption{
			dbus.WithMatchObjectPath(TimerPath),
			dbus.WithMatchInterface(propertiesInterface),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		[]dbus.MatchOption{
			dbus.WithMatchObjectPath(TimerPath),
			dbus.WithMatchInterface(TimerInterface),
		},
	)
	if err != nil {
		log.Printf("remote timer: %v", err)
		return
	}
	remote.sub = sub
	go remote.run(sub.signals)

	if remote.running != nil && remote.running() {
		remote.serviceAppeared()
	}
}

func (remote *RemoteTimer) run(signals <-chan *dbus.Signal) {
	for {
		select {
		case <-remote.done:
			return
		case signal, ok := <-signals:
			if !ok {
				return
			}
			remote.handleSignal(signal)
		}
	}
}

func (remote *RemoteTimer) handleSignal(signal *dbus.Signal) {
	switch signal.Name {
	case nameOwnerChanged:
		if stringArg(signal.Body, 0) != TimerBusName {
			return
		}
		if stringArg(signal.Body, 2) != "" {
			remote.serviceAppeared()
		} else {
			remote.serviceVanished()
		}
	case propertiesChanged:
		if signal.Path != TimerPath || stringArg(signal.Body, 0) != TimerInterface || len(signal.Body) < 2 {
			return
		}
		changed, ok := signal.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		remote.applyProperties(changed)
	case timerNotifyStart:
		remote.emit(timer.EventPomodoroStart)
	case timerNotifyEnd:
		remote.emit(timer.EventPomodoroEnd)
	}
}

func (remote *RemoteTimer) serviceAppeared() {
	remote.refresh()
	remote.mu.Lock()
	remote.connected = true
	remote.mu.Unlock()
	remote.emit(timer.EventServiceConnected)
}

func (remote *RemoteTimer) serviceVanished() {
	remote.mu.Lock()
	wasConnected := remote.connected
	remote.connected = false
	remote.state = model.StateNull
	remote.elapsed = 0
	remote.duration = 0
	remote.mu.Unlock()
	if wasConnected {
		remote.emit(timer.EventServiceDisconnected)
	}
}

func (remote *RemoteTimer) refresh() {
	var properties map[string]dbus.Variant
	if err := remote.object.Call(propertiesGetAll, 0, TimerInterface).Store(&properties); err != nil {
		log.Printf("remote timer: read properties: %v", err)
		return
	}
	remote.mu.Lock()
	remote.store(properties)
	remote.mu.Unlock()
}

func (remote *RemoteTimer) applyProperties(changed map[string]dbus.Variant) {
	remote.mu.Lock()
	previous := remote.state
	remote.store(changed)
	current := remote.state
	remote.mu.Unlock()

	if _, ok := changed[propertyState]; ok && current != previous {
		remote.emit(timer.EventStateChanged)
	}
	_, elapsed := changed[propertyElapsed]
	_, duration := changed[propertyStateDuration]
	if elapsed || duration {
		remote.emit(timer.EventProgress)
	}
}

// store must be called with mu held.
func (remote *RemoteTimer) store(properties map[string]dbus.Variant) {
	if value, ok := properties[propertyState]; ok {
		if name, ok := value.Value().(string); ok {
			remote.state = model.ParseTimerState(name)
		}
	}
	if value, ok := properties[propertyElapsed]; ok {
		remote.elapsed = seconds(value)
	}
	if value, ok := properties[propertyStateDuration]; ok {
		remote.duration = seconds(value)
	}
}

func seconds(value dbus.Variant) time.Duration {
	switch number := value.Value().(type) {
	case float64:
		return time.Duration(number * float64(time.Second))
	case uint32:
		return time.Duration(number) * time.Second
	case int32:
		return time.Duration(number) * time.Second
	default:
		return 0
	}
}

func (remote *RemoteTimer) emit(eventType timer.EventType) {
	remote.mu.Lock()
	event := timer.Event{
		Type:     eventType,
		State:    remote.state,
		Elapsed:  remote.elapsed,
		Duration: remote.duration,
		At:       remote.now(),
	}
	remote.mu.Unlock()
	remote.broadcaster.Emit(event)
}

// State returns the last state reported by the service.
func (remote *RemoteTimer) State() model.TimerState {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	return remote.state
}

// Toggle starts a stopped timer and stops a running one.
func (remote *RemoteTimer) Toggle() {
	method := timerStop
	if remote.State() == model.StateNull {
		method = timerStart
	}
	if call := remote.object.Call(method, 0); call.Err != nil {
		log.Printf("remote timer: %s: %v", method, call.Err)
	}
}

// Destroy stops watching the service and closes subscriber channels.
func (remote *RemoteTimer) Destroy() {
	remote.closeOnce.Do(func() {
		close(remote.done)
		if remote.sub != nil {
			remote.sub.close()
			remote.sub = nil
		}
		remote.broadcaster.Close()
	})
}
