// Package bus talks to the desktop session over D-Bus: the gnome-pomodoro
// timer service, the notification daemon, the Mutter idle monitor, and the
// action service that lets the desktop trigger keybindings.
package bus

import (
	"fmt"
	"log"

	"github.com/godbus/dbus/v5"
)

const (
	dbusInterface         = "org.freedesktop.DBus"
	propertiesInterface   = "org.freedesktop.DBus.Properties"
	nameOwnerChanged      = dbusInterface + ".NameOwnerChanged"
	propertiesChanged     = propertiesInterface + ".PropertiesChanged"
	propertiesGetAll      = propertiesInterface + ".GetAll"
	nameHasOwner          = dbusInterface + ".NameHasOwner"
	signalChannelCapacity = 16
)

// methodCaller is the part of dbus.BusObject the clients use.
type methodCaller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// signalConn is the part of dbus.Conn that watches signals.
type signalConn interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// subscription holds match rules and the channel their signals arrive on.
// close removes both, so a reconnect on the same conn starts clean.
type subscription struct {
	conn    signalConn
	matches [][]dbus.MatchOption
	signals chan *dbus.Signal
}

func subscribe(conn signalConn, matches ...[]dbus.MatchOption) (*subscription, error) {
	for index, match := range matches {
		if err := conn.AddMatchSignal(match...); err != nil {
			for _, added := range matches[:index] {
				_ = conn.RemoveMatchSignal(added...)
			}
			return nil, fmt.Errorf("add match: %w", err)
		}
	}
	sub := &subscription{
		conn:    conn,
		matches: matches,
		signals: make(chan *dbus.Signal, signalChannelCapacity),
	}
	conn.Signal(sub.signals)
	return sub, nil
}

func (sub *subscription) close() {
	sub.conn.RemoveSignal(sub.signals)
	for _, match := range sub.matches {
		if err := sub.conn.RemoveMatchSignal(match...); err != nil {
			log.Printf("bus: remove match: %v", err)
		}
	}
}

// Session opens a private connection to the session bus.
func Session() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return conn, nil
}

func nameOwned(conn *dbus.Conn, name string) bool {
	var owned bool
	if err := conn.BusObject().Call(nameHasOwner, 0, name).Store(&owned); err != nil {
		return false
	}
	return owned
}

func stringArg(body []interface{}, index int) string {
	if index >= len(body) {
		return ""
	}
	value, _ := body[index].(string)
	return value
}

func uint32Arg(body []interface{}, index int) uint32 {
	if index >= len(body) {
		return 0
	}
	value, _ := body[index].(uint32)
	return value
}
