package bus

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"pomodoro/internal/notify"
)

const (
	notificationsBusName   = "org.freedesktop.Notifications"
	notificationsPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsInterface = "org.freedesktop.Notifications"

	notificationsNotify = notificationsInterface + ".Notify"
	notificationsClose  = notificationsInterface + ".CloseNotification"
	actionInvoked       = notificationsInterface + ".ActionInvoked"
	notificationClosed  = notificationsInterface + ".NotificationClosed"
	defaultAppName      = "Pomodoro"
)

// NotificationSink receives the daemon's signals.
type NotificationSink interface {
	ActionInvoked(id uint32, actionKey string)
	NotificationClosed(id uint32, reason notify.CloseReason)
}

// NotificationServer is a notify.Server backed by the freedesktop notification daemon.
type NotificationServer struct {
	conn    signalConn
	object  methodCaller
	appName string

	mu   sync.Mutex
	sink NotificationSink
	sub  *subscription
	done chan struct{}
}

// NewNotificationServer returns a client of the notification daemon on conn.
func NewNotificationServer(conn *dbus.Conn, appName string) *NotificationServer {
	server := newNotificationServer(conn.Object(notificationsBusName, notificationsPath), appName)
	server.conn = conn
	return server
}

func newNotificationServer(object methodCaller, appName string) *NotificationServer {
	if appName == "" {
		appName = defaultAppName
	}
	return &NotificationServer{object: object, appName: appName}
}

// Notify posts message and returns the id the daemon assigned.
func (server *NotificationServer) Notify(message notify.Message, replacesID uint32) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(message.Urgency)),
	}
	if message.Resident {
		hints["resident"] = dbus.MakeVariant(true)
	}
	if message.Category != "" {
		hints["category"] = dbus.MakeVariant(message.Category)
	}
	actions := message.Actions
	if actions == nil {
		actions = []string{}
	}

	var id uint32
	err := server.object.Call(
		notificationsNotify,
		0,
		server.appName,
		replacesID,
		message.Icon,
		message.Summary,
		message.Body,
		actions,
		hints,
		message.Timeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("send notification: %w", err)
	}
	return id, nil
}

// CloseNotification withdraws the pop-up with the given id.
func (server *NotificationServer) CloseNotification(id uint32) error {
	if call := server.object.Call(notificationsClose, 0, id); call.Err != nil {
		return fmt.Errorf("close notification %d: %w", id, call.Err)
	}
	return nil
}

// Watch routes ActionInvoked and NotificationClosed signals to sink until Stop.
func (server *NotificationServer) Watch(sink NotificationSink) error {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.done != nil {
		return nil
	}
	server.sink = sink
	server.done = make(chan struct{})
	if server.conn == nil {
		return nil
	}

	var matches [][]dbus.MatchOption
	for _, member := range []string{"ActionInvoked", "NotificationClosed"} {
		matches = append(matches, []dbus.MatchOption{
			dbus.WithMatchObjectPath(notificationsPath),
			dbus.WithMatchInterface(notificationsInterface),
			dbus.WithMatchMember(member),
		})
	}
	sub, err := subscribe(server.conn, matches...)
	if err != nil {
		return fmt.Errorf("watch notifications: %w", err)
	}
	server.sub = sub
	go server.run(sub.signals, server.done)
	return nil
}

func (server *NotificationServer) run(signals <-chan *dbus.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case signal, ok := <-signals:
			if !ok {
				return
			}
			server.handleSignal(signal)
		}
	}
}

func (server *NotificationServer) handleSignal(signal *dbus.Signal) {
	server.mu.Lock()
	sink := server.sink
	server.mu.Unlock()
	if sink == nil {
		return
	}
	switch signal.Name {
	case actionInvoked:
		sink.ActionInvoked(uint32Arg(signal.Body, 0), stringArg(signal.Body, 1))
	case notificationClosed:
		sink.NotificationClosed(uint32Arg(signal.Body, 0), notify.CloseReason(uint32Arg(signal.Body, 1)))
	}
}

// Stop detaches from the daemon's signals.
func (server *NotificationServer) Stop() {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.done == nil {
		return
	}
	close(server.done)
	if server.sub != nil {
		server.sub.close()
	}
	server.sink = nil
	server.sub = nil
	server.done = nil
}
