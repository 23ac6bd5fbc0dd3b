// Package shell plays the desktop shell for the extension: it owns the status
// area and the keybinding registry, collects extension errors and runs
// callbacks on the fyne main thread.
package shell

import (
	"log"
	"sync"

	"fyne.io/fyne/v2"

	"pomodoro/internal/extension"
	"pomodoro/internal/keybinding"
	"pomodoro/internal/ui/tray"
)

// ExtensionError is an error reported by an extension.
type ExtensionError struct {
	UUID string
	Err  error
}

// Shell implements extension.Host.
type Shell struct {
	area        *tray.StatusArea
	keybindings *keybinding.Registry
	dispatch    func(func())

	mu     sync.Mutex
	errors []ExtensionError
}

var _ extension.Host = (*Shell)(nil)

// New creates a shell. A nil dispatch runs callbacks through fyne.Do.
func New(dispatch func(func())) *Shell {
	if dispatch == nil {
		dispatch = fyne.Do
	}
	return &Shell{
		area:        tray.NewStatusArea(),
		keybindings: keybinding.NewRegistry(),
		dispatch:    dispatch,
	}
}

// AddToStatusArea places indicator under role until it is destroyed.
func (shell *Shell) AddToStatusArea(role string, indicator extension.Indicator) error {
	if err := shell.area.Add(role, indicator); err != nil {
		return err
	}
	if destroyable, ok := indicator.(interface{ OnDestroy(func()) }); ok {
		destroyable.OnDestroy(func() {
			shell.area.Remove(role, indicator)
		})
	}
	return nil
}

// StatusArea returns the status area.
func (shell *Shell) StatusArea() *tray.StatusArea {
	return shell.area
}

// AddKeybinding registers handler under name.
func (shell *Shell) AddKeybinding(name, accelerator string, flags keybinding.Flags, mode keybinding.Mode, handler func()) error {
	return shell.keybindings.AddKeybinding(name, accelerator, flags, mode, handler)
}

// RemoveKeybinding drops the binding registered under name.
func (shell *Shell) RemoveKeybinding(name string) {
	shell.keybindings.RemoveKeybinding(name)
}

// Keybindings returns the registry, e.g. to export it on the session bus.
func (shell *Shell) Keybindings() *keybinding.Registry {
	return shell.keybindings
}

// LogExtensionError records and logs err on behalf of the extension uuid.
func (shell *Shell) LogExtensionError(uuid string, err error) {
	if err == nil {
		return
	}
	log.Printf("extension %s: %v", uuid, err)
	shell.mu.Lock()
	defer shell.mu.Unlock()
	shell.errors = append(shell.errors, ExtensionError{UUID: uuid, Err: err})
}

// Errors returns the errors reported so far.
func (shell *Shell) Errors() []ExtensionError {
	shell.mu.Lock()
	defer shell.mu.Unlock()
	return append([]ExtensionError(nil), shell.errors...)
}

// Dispatch runs fn on the UI thread.
func (shell *Shell) Dispatch(fn func()) {
	shell.dispatch(fn)
}
