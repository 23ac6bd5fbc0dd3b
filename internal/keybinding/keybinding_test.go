package keybinding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccelerator(t *testing.T) {
	accelerator, err := ParseAccelerator("<Control><alt>p")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ctrl", "Alt"}, accelerator.Modifiers)
	assert.Equal(t, "p", accelerator.Key)
	assert.Equal(t, "<Ctrl><Alt>p", accelerator.String())

	accelerator, err = ParseAccelerator("  ")
	require.NoError(t, err)
	assert.Empty(t, accelerator.String())

	accelerator, err = ParseAccelerator("<Super><Super>F9")
	require.NoError(t, err)
	assert.Equal(t, "<Super>F9", accelerator.String())

	for _, bad := range []string{"<Ctrl", "<Banana>p", "<Ctrl>", "<Ctrl>p q"} {
		_, err := ParseAccelerator(bad)
		assert.ErrorIs(t, err, ErrInvalidAccelerator, bad)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()
	pressed := 0
	require.NoError(t, registry.AddKeybinding("toggle-timer-key", "<Ctrl><Alt>p", FlagsNone, ModeAll, func() { pressed++ }))

	err := registry.AddKeybinding("toggle-timer-key", "", FlagsNone, ModeAll, func() {})
	assert.ErrorIs(t, err, ErrExists)

	assert.True(t, registry.Activate("toggle-timer-key"))
	assert.Equal(t, 1, pressed)
	assert.False(t, registry.Activate("missing"))

	binding, ok := registry.Lookup("toggle-timer-key")
	require.True(t, ok)
	assert.Equal(t, ModeAll, binding.Mode)
	assert.Equal(t, []string{"toggle-timer-key"}, registry.Names())

	registry.RemoveKeybinding("toggle-timer-key")
	registry.RemoveKeybinding("toggle-timer-key")
	assert.False(t, registry.Activate("toggle-timer-key"))
	assert.Empty(t, registry.Names())
}

func TestAddKeybindingValidates(t *testing.T) {
	registry := NewRegistry()
	assert.ErrorIs(t, registry.AddKeybinding("x", "<Nope>x", FlagsNone, ModeAll, func() {}), ErrInvalidAccelerator)
	assert.Error(t, registry.AddKeybinding("", "", FlagsNone, ModeAll, func() {}))
	assert.Error(t, registry.AddKeybinding("y", "", FlagsNone, ModeAll, nil))
	assert.Empty(t, registry.Names())
}

type recordingGrabber struct {
	grabbed   map[string]string
	ungrabbed []string
	err       error
}

func (grabber *recordingGrabber) Grab(name string, accelerator Accelerator) error {
	if grabber.grabbed == nil {
		grabber.grabbed = make(map[string]string)
	}
	grabber.grabbed[name] = accelerator.String()
	return grabber.err
}

func (grabber *recordingGrabber) Ungrab(name string) error {
	grabber.ungrabbed = append(grabber.ungrabbed, name)
	return nil
}

func TestRegistryGrabsAccelerators(t *testing.T) {
	registry := NewRegistry()
	grabber := &recordingGrabber{}
	registry.SetGrabber(grabber)

	require.NoError(t, registry.AddKeybinding("toggle-timer-key", "<Control><Alt>p", FlagsNone, ModeAll, func() {}))
	require.NoError(t, registry.AddKeybinding("unbound", "", FlagsNone, ModeAll, func() {}))
	assert.Equal(t, map[string]string{"toggle-timer-key": "<Ctrl><Alt>p"}, grabber.grabbed)

	registry.RemoveKeybinding("unbound")
	registry.RemoveKeybinding("toggle-timer-key")
	registry.RemoveKeybinding("toggle-timer-key")
	assert.Equal(t, []string{"toggle-timer-key"}, grabber.ungrabbed)
}

func TestFailedGrabKeepsAction(t *testing.T) {
	registry := NewRegistry()
	registry.SetGrabber(&recordingGrabber{err: assert.AnError})

	pressed := 0
	require.NoError(t, registry.AddKeybinding("toggle-timer-key", "<Ctrl><Alt>p", FlagsNone, ModeAll, func() { pressed++ }))
	assert.True(t, registry.Activate("toggle-timer-key"))
	assert.Equal(t, 1, pressed)
}
