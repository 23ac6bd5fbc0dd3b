package bus

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/notify"
)

type recordedCall struct {
	method string
	args   []interface{}
}

type fakeObject struct {
	calls   []recordedCall
	replies map[string][]interface{}
	errs    map[string]error
}

func newFakeObject() *fakeObject {
	return &fakeObject{
		replies: make(map[string][]interface{}),
		errs:    make(map[string]error),
	}
}

func (object *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	object.calls = append(object.calls, recordedCall{method: method, args: args})
	return &dbus.Call{Method: method, Args: args, Body: object.replies[method], Err: object.errs[method]}
}

func (object *fakeObject) methods() []string {
	methods := make([]string, 0, len(object.calls))
	for _, call := range object.calls {
		methods = append(methods, call.method)
	}
	return methods
}

func receive(t *testing.T, events <-chan timer.Event) timer.Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(time.Second):
		t.Fatal("no event")
		return timer.Event{}
	}
}

func assertQuiet(t *testing.T, events <-chan timer.Event) {
	t.Helper()
	select {
	case event := <-events:
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}
}

func ownerChanged(name, newOwner string) *dbus.Signal {
	return &dbus.Signal{
		Name: nameOwnerChanged,
		Body: []interface{}{name, "", newOwner},
	}
}

func properties(changed map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: TimerPath,
		Name: propertiesChanged,
		Body: []interface{}{TimerInterface, changed, []string{}},
	}
}

func TestRemoteTimerServiceLifecycle(t *testing.T) {
	object := newFakeObject()
	object.replies[propertiesGetAll] = []interface{}{map[string]dbus.Variant{
		propertyState:         dbus.MakeVariant("pause"),
		propertyElapsed:       dbus.MakeVariant(float64(30)),
		propertyStateDuration: dbus.MakeVariant(float64(300)),
	}}
	remote := newRemoteTimer(object)
	events := remote.Subscribe(8)

	remote.handleSignal(ownerChanged("org.example.Other", ":1.9"))
	assertQuiet(t, events)

	remote.handleSignal(ownerChanged(TimerBusName, ":1.42"))
	event := receive(t, events)
	assert.Equal(t, timer.EventServiceConnected, event.Type)
	assert.Equal(t, model.StatePause, event.State)
	assert.Equal(t, 270*time.Second, event.Remaining())
	assert.Equal(t, model.StatePause, remote.State())

	remote.handleSignal(ownerChanged(TimerBusName, ""))
	event = receive(t, events)
	assert.Equal(t, timer.EventServiceDisconnected, event.Type)
	assert.Equal(t, model.StateNull, remote.State())

	remote.handleSignal(ownerChanged(TimerBusName, ""))
	assertQuiet(t, events)
}

func TestRemoteTimerPropertiesAndSignals(t *testing.T) {
	remote := newRemoteTimer(newFakeObject())
	events := remote.Subscribe(8)

	remote.handleSignal(properties(map[string]dbus.Variant{propertyState: dbus.MakeVariant("pomodoro")}))
	assert.Equal(t, timer.EventStateChanged, receive(t, events).Type)
	assert.Equal(t, model.StatePomodoro, remote.State())

	remote.handleSignal(properties(map[string]dbus.Variant{propertyState: dbus.MakeVariant("pomodoro")}))
	assertQuiet(t, events)

	remote.handleSignal(properties(map[string]dbus.Variant{propertyElapsed: dbus.MakeVariant(float64(12.5))}))
	event := receive(t, events)
	assert.Equal(t, timer.EventProgress, event.Type)
	assert.Equal(t, 12500*time.Millisecond, event.Elapsed)

	remote.handleSignal(&dbus.Signal{Path: TimerPath, Name: propertiesChanged, Body: []interface{}{"org.example.Other", map[string]dbus.Variant{}}})
	assertQuiet(t, events)

	remote.handleSignal(&dbus.Signal{Path: TimerPath, Name: timerNotifyEnd})
	assert.Equal(t, timer.EventPomodoroEnd, receive(t, events).Type)
	remote.handleSignal(&dbus.Signal{Path: TimerPath, Name: timerNotifyStart})
	assert.Equal(t, timer.EventPomodoroStart, receive(t, events).Type)
}

func TestRemoteTimerToggle(t *testing.T) {
	object := newFakeObject()
	remote := newRemoteTimer(object)

	remote.Toggle()
	remote.handleSignal(properties(map[string]dbus.Variant{propertyState: dbus.MakeVariant("idle")}))
	remote.Toggle()
	assert.Equal(t, []string{timerStart, timerStop}, object.methods())

	object.errs[timerStop] = errors.New("no such method")
	remote.Toggle()
}

func TestRemoteTimerDestroyClosesSubscribers(t *testing.T) {
	remote := newRemoteTimer(newFakeObject())
	events := remote.Subscribe(1)
	remote.Destroy()
	remote.Destroy()

	_, ok := <-events
	assert.False(t, ok)
}

type fakeSignalConn struct {
	matches  map[string]int
	channels []chan<- *dbus.Signal
	addErr   error
}

func newFakeSignalConn() *fakeSignalConn {
	return &fakeSignalConn{matches: make(map[string]int)}
}

func (conn *fakeSignalConn) AddMatchSignal(options ...dbus.MatchOption) error {
	if conn.addErr != nil {
		return conn.addErr
	}
	conn.matches[fmt.Sprint(options)]++
	return nil
}

func (conn *fakeSignalConn) RemoveMatchSignal(options ...dbus.MatchOption) error {
	key := fmt.Sprint(options)
	if conn.matches[key]--; conn.matches[key] <= 0 {
		delete(conn.matches, key)
	}
	return nil
}

func (conn *fakeSignalConn) Signal(ch chan<- *dbus.Signal) {
	conn.channels = append(conn.channels, ch)
}

func (conn *fakeSignalConn) RemoveSignal(ch chan<- *dbus.Signal) {
	for index, candidate := range conn.channels {
		if candidate == ch {
			conn.channels = append(conn.channels[:index], conn.channels[index+1:]...)
			return
		}
	}
}

func (conn *fakeSignalConn) rules() int {
	total := 0
	for _, count := range conn.matches {
		total += count
	}
	return total
}

func TestRemoteTimerReconnectDropsMatchRules(t *testing.T) {
	conn := newFakeSignalConn()
	for round := 0; round < 3; round++ {
		remote := newRemoteTimer(newFakeObject())
		remote.conn = conn
		remote.running = func() bool { return false }
		events := remote.Subscribe(4)

		remote.Connect()
		assert.Equal(t, 3, conn.rules())
		require.Len(t, conn.channels, 1)
		conn.channels[0] <- &dbus.Signal{Path: TimerPath, Name: timerNotifyStart}
		assert.Equal(t, timer.EventPomodoroStart, receive(t, events).Type)

		remote.Destroy()
		assert.Zero(t, conn.rules(), "round %d", round)
		assert.Empty(t, conn.channels)
	}
}

func TestRemoteTimerConnectReportsRunningService(t *testing.T) {
	conn := newFakeSignalConn()
	remote := newRemoteTimer(newFakeObject())
	remote.conn = conn
	remote.running = func() bool { return true }
	events := remote.Subscribe(4)

	remote.Connect()
	assert.Equal(t, timer.EventServiceConnected, receive(t, events).Type)
	remote.Destroy()

	conn.addErr = errors.New("match rejected")
	failing := newRemoteTimer(newFakeObject())
	failing.conn = conn
	failing.Connect()
	assert.Zero(t, conn.rules())
	assert.Empty(t, conn.channels)
	failing.Destroy()
}

func TestNotificationServerStopDropsMatchRules(t *testing.T) {
	conn := newFakeSignalConn()
	server := newNotificationServer(newFakeObject(), "test")
	server.conn = conn

	require.NoError(t, server.Watch(&fakeSink{}))
	assert.Equal(t, 2, conn.rules())
	server.Stop()
	assert.Zero(t, conn.rules())
	assert.Empty(t, conn.channels)

	require.NoError(t, server.Watch(&fakeSink{}))
	assert.Equal(t, 2, conn.rules())
	server.Stop()
}

type fakeSink struct {
	clicks []string
	closes []notify.CloseReason
}

func (sink *fakeSink) ActionInvoked(id uint32, actionKey string) {
	sink.clicks = append(sink.clicks, actionKey)
}

func (sink *fakeSink) NotificationClosed(id uint32, reason notify.CloseReason) {
	sink.closes = append(sink.closes, reason)
}

func TestNotificationServerNotify(t *testing.T) {
	object := newFakeObject()
	object.replies[notificationsNotify] = []interface{}{uint32(7)}
	server := newNotificationServer(object, "")

	id, err := server.Notify(notify.Message{
		Summary:  "Take a break",
		Body:     "Stretch",
		Icon:     "gnome-pomodoro",
		Actions:  []string{notify.DefaultAction, "Show"},
		Urgency:  notify.UrgencyCritical,
		Resident: true,
		Category: "presence",
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), id)

	call := object.calls[0]
	require.Len(t, call.args, 8)
	assert.Equal(t, defaultAppName, call.args[0])
	assert.Equal(t, uint32(3), call.args[1])
	assert.Equal(t, []string{notify.DefaultAction, "Show"}, call.args[5])
	hints := call.args[6].(map[string]dbus.Variant)
	assert.Equal(t, byte(notify.UrgencyCritical), hints["urgency"].Value())
	assert.Equal(t, true, hints["resident"].Value())
	assert.Equal(t, int32(0), call.args[7])

	object.errs[notificationsNotify] = errors.New("daemon gone")
	_, err = server.Notify(notify.Message{}, 0)
	assert.ErrorContains(t, err, "daemon gone")
}

func TestNotificationServerClose(t *testing.T) {
	object := newFakeObject()
	server := newNotificationServer(object, "test")
	require.NoError(t, server.CloseNotification(4))
	assert.Equal(t, []interface{}{uint32(4)}, object.calls[0].args)

	object.errs[notificationsClose] = errors.New("boom")
	assert.Error(t, server.CloseNotification(4))
}

func TestNotificationServerRoutesSignals(t *testing.T) {
	server := newNotificationServer(newFakeObject(), "test")
	sink := &fakeSink{}
	require.NoError(t, server.Watch(sink))

	server.handleSignal(&dbus.Signal{Name: actionInvoked, Body: []interface{}{uint32(1), "default"}})
	server.handleSignal(&dbus.Signal{Name: notificationClosed, Body: []interface{}{uint32(1), uint32(2)}})
	server.handleSignal(&dbus.Signal{Name: nameOwnerChanged})
	assert.Equal(t, []string{"default"}, sink.clicks)
	assert.Equal(t, []notify.CloseReason{notify.ReasonDismissed}, sink.closes)

	server.Stop()
	server.handleSignal(&dbus.Signal{Name: actionInvoked, Body: []interface{}{uint32(1), "default"}})
	assert.Len(t, sink.clicks, 1)
	server.Stop()
}

type fixedIdle struct {
	idle  time.Duration
	calls int
}

func (checker *fixedIdle) IdleDuration() (time.Duration, error) {
	checker.calls++
	return checker.idle, nil
}

func TestIdleMonitor(t *testing.T) {
	object := newFakeObject()
	object.replies[getIdletime] = []interface{}{uint64(90000)}
	fallback := &fixedIdle{idle: time.Second}
	monitor := newIdleMonitor(object, fallback)

	idle, err := monitor.IdleDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, idle)
	assert.Zero(t, fallback.calls)

	object.errs[getIdletime] = errors.New("unknown service")
	idle, err = monitor.IdleDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, idle)

	monitor.IdleDuration()
	assert.Len(t, object.calls, 2, "mutter is not asked again once missing")
}

func TestIdleMonitorWithoutFallback(t *testing.T) {
	object := newFakeObject()
	object.errs[getIdletime] = errors.New("unknown service")
	_, err := newIdleMonitor(object, nil).IdleDuration()
	assert.Error(t, err)
}

type fakeActivator struct {
	names     []string
	activated []string
}

func (activator *fakeActivator) Activate(name string) bool {
	for _, known := range activator.names {
		if known == name {
			activator.activated = append(activator.activated, name)
			return true
		}
	}
	return false
}

func (activator *fakeActivator) Names() []string { return activator.names }

func TestActionService(t *testing.T) {
	activator := &fakeActivator{names: []string{"toggle-timer-key"}}
	service := newActionService(activator)

	assert.Nil(t, service.Activate("toggle-timer-key"))
	assert.Equal(t, []string{"toggle-timer-key"}, activator.activated)

	dbusErr := service.Activate("missing")
	require.NotNil(t, dbusErr)
	assert.Equal(t, errorUnknownAction, dbusErr.Name)

	names, dbusErr := service.ListActions()
	assert.Nil(t, dbusErr)
	assert.Equal(t, []string{"toggle-timer-key"}, names)

	empty, _ := newActionService(&fakeActivator{}).ListActions()
	assert.NotNil(t, empty)
	assert.NoError(t, service.Close())
}

func TestCallActivate(t *testing.T) {
	object := newFakeObject()
	require.NoError(t, callActivate(object, "toggle-timer-key"))
	assert.Equal(t, []string{ActionsInterface + ".Activate"}, object.methods())

	object.errs[ActionsInterface+".Activate"] = errors.New("not running")
	assert.ErrorContains(t, callActivate(object, "toggle-timer-key"), "not running")
}
