package bus

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	ActionsBusName   = "org.gnome.Pomodoro.Indicator"
	ActionsPath      = dbus.ObjectPath("/org/gnome/Pomodoro/Indicator")
	ActionsInterface = "org.gnome.Pomodoro.Indicator"

	errorUnknownAction = ActionsInterface + ".Error.UnknownAction"
)

// ErrNameTaken indicates another process already serves the actions.
var ErrNameTaken = errors.New("bus name already taken")

// Activator runs named actions.
type Activator interface {
	Activate(name string) bool
	Names() []string
}

// ActionService exports an Activator on the session bus so desktop shortcuts
// can trigger keybindings.
type ActionService struct {
	conn      *dbus.Conn
	activator Activator
}

func newActionService(activator Activator) *ActionService {
	return &ActionService{activator: activator}
}

// ExportActions claims ActionsBusName and serves activator under ActionsPath.
func ExportActions(conn *dbus.Conn, activator Activator) (*ActionService, error) {
	reply, err := conn.RequestName(ActionsBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", ActionsBusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("request %s: %w", ActionsBusName, ErrNameTaken)
	}

	service := newActionService(activator)
	service.conn = conn
	if err := conn.Export(service, ActionsPath, ActionsInterface); err != nil {
		return nil, fmt.Errorf("export actions: %w", err)
	}
	node := &introspect.Node{
		Name: string(ActionsPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: ActionsInterface, Methods: introspect.Methods(service)},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ActionsPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}
	return service, nil
}

// Activate runs the named action. Exported over D-Bus.
func (service *ActionService) Activate(name string) *dbus.Error {
	if !service.activator.Activate(name) {
		return dbus.NewError(errorUnknownAction, []interface{}{name})
	}
	return nil
}

// ListActions returns the registered action names. Exported over D-Bus.
func (service *ActionService) ListActions() ([]string, *dbus.Error) {
	names := service.activator.Names()
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Close unexports the service and releases its bus name.
func (service *ActionService) Close() error {
	if service.conn == nil {
		return nil
	}
	conn := service.conn
	service.conn = nil
	_ = conn.Export(nil, ActionsPath, ActionsInterface)
	_ = conn.Export(nil, ActionsPath, "org.freedesktop.DBus.Introspectable")
	if _, err := conn.ReleaseName(ActionsBusName); err != nil {
		return fmt.Errorf("release %s: %w", ActionsBusName, err)
	}
	return nil
}

// CallActivate asks the running indicator to activate the named action.
func CallActivate(conn *dbus.Conn, name string) error {
	return callActivate(conn.Object(ActionsBusName, ActionsPath), name)
}

func callActivate(object methodCaller, name string) error {
	if call := object.Call(ActionsInterface+".Activate", 0, name); call.Err != nil {
		return fmt.Errorf("activate %s: %w", name, call.Err)
	}
	return nil
}
