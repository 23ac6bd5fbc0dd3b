// Package extension is the glue between the Pomodoro timer and the desktop:
// it reacts to timer events by showing, hiding and replacing the indicator,
// the notices and the break dialog.
package extension

import "pomodoro/internal/i18n"

// Metadata describes the extension to the host.
type Metadata struct {
	UUID    string
	Name    string
	Version string
}

// Extension is the lifecycle the host drives: Init once, then any number of
// Enable/Disable pairs. It holds at most one live controller.
type Extension struct {
	host       Host
	components Components
	metadata   Metadata
	controller *Controller
	onDestroy  []func()
}

// New returns a disabled extension.
func New(host Host, components Components) *Extension {
	return &Extension{host: host, components: components}
}

// Init records the metadata and binds translations.
func (ext *Extension) Init(metadata Metadata) {
	ext.metadata = metadata
	i18n.Bind()
}

// Enable builds the controller unless one is live already.
func (ext *Extension) Enable() {
	if ext.controller != nil {
		return
	}
	controller := newController(ext.metadata, ext.host, ext.components)
	for _, handler := range ext.onDestroy {
		controller.OnDestroy(handler)
	}
	ext.controller = controller
}

// Disable tears the live controller down.
func (ext *Extension) Disable() {
	if ext.controller == nil {
		return
	}
	ext.controller.destroy()
	ext.controller = nil
}

// Enabled reports whether a controller is live.
func (ext *Extension) Enabled() bool {
	return ext.controller != nil
}

// OnDestroy registers a handler run each time a controller is torn down.
func (ext *Extension) OnDestroy(handler func()) {
	ext.onDestroy = append(ext.onDestroy, handler)
	if ext.controller != nil {
		ext.controller.OnDestroy(handler)
	}
}
