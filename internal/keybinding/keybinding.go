// Package keybinding keeps the named global actions of the indicator and the
// accelerators the user assigned to them.
package keybinding

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"unicode"
)

var (
	// ErrInvalidAccelerator indicates an accelerator string that cannot be parsed.
	ErrInvalidAccelerator = errors.New("invalid accelerator")
	// ErrExists indicates an action name that is already bound.
	ErrExists = errors.New("keybinding already registered")
)

// Flags mirror the window manager's keybinding flags.
type Flags int

const (
	FlagsNone      Flags = 0
	FlagsPerWindow Flags = 1 << (iota - 1)
	FlagsBuiltin
	FlagsIgnoreAutorepeat
)

// Mode limits when a keybinding is active.
type Mode int

const (
	ModeNone   Mode = 0
	ModeNormal Mode = 1 << (iota - 1)
	ModeOverview
	ModeLockScreen
	ModeUnlockScreen
	ModeLoginScreen
	ModeSystemModal
	ModeAll    Mode = ModeNormal | ModeOverview | ModeLockScreen | ModeUnlockScreen | ModeLoginScreen | ModeSystemModal
)

// Accelerator is a parsed GTK-style accelerator such as "<Ctrl><Alt>p".
type Accelerator struct {
	Modifiers []string
	Key       string
}

func (accelerator Accelerator) String() string {
	var builder strings.Builder
	for _, modifier := range accelerator.Modifiers {
		builder.WriteString("<" + modifier + ">")
	}
	builder.WriteString(accelerator.Key)
	return builder.String()
}

var modifierNames = map[string]string{
	"ctrl":    "Ctrl",
	"control": "Ctrl",
	"primary": "Ctrl",
	"alt":     "Alt",
	"shift":   "Shift",
	"super":   "Super",
	"meta":    "Meta",
	"hyper":   "Hyper",
}

// ParseAccelerator parses value. An empty value means "no accelerator".
func ParseAccelerator(value string) (Accelerator, error) {
	var accelerator Accelerator
	rest := strings.TrimSpace(value)
	seen := make(map[string]bool)
	for strings.HasPrefix(rest, "<") {
		end := strings.Index(rest, ">")
		if end < 0 {
			return Accelerator{}, fmt.Errorf("%w: %q: unterminated modifier", ErrInvalidAccelerator, value)
		}
		name, ok := modifierNames[strings.ToLower(rest[1:end])]
		if !ok {
			return Accelerator{}, fmt.Errorf("%w: %q: unknown modifier %q", ErrInvalidAccelerator, value, rest[1:end])
		}
		if !seen[name] {
			seen[name] = true
			accelerator.Modifiers = append(accelerator.Modifiers, name)
		}
		rest = rest[end+1:]
	}
	if rest == "" {
		if len(accelerator.Modifiers) > 0 {
			return Accelerator{}, fmt.Errorf("%w: %q: missing key", ErrInvalidAccelerator, value)
		}
		return Accelerator{}, nil
	}
	for _, r := range rest {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return Accelerator{}, fmt.Errorf("%w: %q: bad key name %q", ErrInvalidAccelerator, value, rest)
		}
	}
	accelerator.Key = rest
	return accelerator, nil
}

// Binding is a registered action.
type Binding struct {
	Name        string
	Accelerator Accelerator
	Flags       Flags
	Mode        Mode
	handler     func()
}

// Grabber makes the desktop deliver an accelerator press as Activate(name).
type Grabber interface {
	Grab(name string, accelerator Accelerator) error
	Ungrab(name string) error
}

// Registry holds the registered actions. It is safe for concurrent use;
// handlers run on the goroutine calling Activate.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
	grabber  Grabber
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

// AddKeybinding registers handler under name.
func (registry *Registry) AddKeybinding(name, accelerator string, flags Flags, mode Mode, handler func()) error {
	if name == "" || handler == nil {
		return fmt.Errorf("add keybinding: name and handler are required")
	}
	parsed, err := ParseAccelerator(accelerator)
	if err != nil {
		return fmt.Errorf("add keybinding %s: %w", name, err)
	}

	registry.mu.Lock()
	if _, ok := registry.bindings[name]; ok {
		registry.mu.Unlock()
		return fmt.Errorf("add keybinding %s: %w", name, ErrExists)
	}
	registry.bindings[name] = Binding{
		Name:        name,
		Accelerator: parsed,
		Flags:       flags,
		Mode:        mode,
		handler:     handler,
	}
	grabber := registry.grabber
	registry.mu.Unlock()

	// A failed grab keeps the action reachable through Activate.
	if grabber != nil && parsed.Key != "" {
		if err := grabber.Grab(name, parsed); err != nil {
			log.Printf("keybinding %s: grab %s: %v", name, parsed, err)
		}
	}
	return nil
}

// RemoveKeybinding drops name. Removing an unknown name is a no-op.
func (registry *Registry) RemoveKeybinding(name string) {
	registry.mu.Lock()
	binding, ok := registry.bindings[name]
	delete(registry.bindings, name)
	grabber := registry.grabber
	registry.mu.Unlock()

	if ok && grabber != nil && binding.Accelerator.Key != "" {
		if err := grabber.Ungrab(name); err != nil {
			log.Printf("keybinding %s: ungrab: %v", name, err)
		}
	}
}

// SetGrabber binds accelerators of bindings added from now on in the desktop.
func (registry *Registry) SetGrabber(grabber Grabber) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.grabber = grabber
}

// Activate runs the handler bound to name and reports whether one existed.
func (registry *Registry) Activate(name string) bool {
	registry.mu.RLock()
	binding, ok := registry.bindings[name]
	registry.mu.RUnlock()
	if !ok {
		return false
	}
	binding.handler()
	return true
}

// Lookup returns the binding registered under name.
func (registry *Registry) Lookup(name string) (Binding, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	binding, ok := registry.bindings[name]
	return binding, ok
}

// Names returns the registered action names in order.
func (registry *Registry) Names() []string {
	registry.mu.RLock()
	names := make([]string, 0, len(registry.bindings))
	for name := range registry.bindings {
		names = append(names, name)
	}
	registry.mu.RUnlock()
	sort.Strings(names)
	return names
}
