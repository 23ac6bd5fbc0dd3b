package platform

import (
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"pomodoro/internal/keybinding"
)

const (
	mediaKeysSchema     = "org.gnome.settings-daemon.plugins.media-keys"
	customBindingSchema = mediaKeysSchema + ".custom-keybinding"
	customBindingsKey   = "custom-keybindings"
	customBindingsRoot  = "/org/gnome/settings-daemon/plugins/media-keys/custom-keybindings/"
)

// gsettingsRunner runs gsettings with args and returns its output.
type gsettingsRunner func(args ...string) (string, error)

// GnomeShortcuts binds accelerators as GNOME custom keyboard shortcuts. The
// shortcut runs "<executable> activate <name>", which reaches the running
// indicator over the session bus.
type GnomeShortcuts struct {
	appName    string
	executable string
	run        gsettingsRunner

	mu sync.Mutex
}

var _ keybinding.Grabber = (*GnomeShortcuts)(nil)

// NewGnomeShortcuts returns ErrUnsupported outside GNOME or without gsettings.
func NewGnomeShortcuts(appName string) (*GnomeShortcuts, error) {
	if !strings.Contains(strings.ToUpper(os.Getenv("XDG_CURRENT_DESKTOP")), "GNOME") {
		return nil, fmt.Errorf("gnome shortcuts: %w", ErrUnsupported)
	}
	gsettings, err := exec.LookPath("gsettings")
	if err != nil {
		return nil, fmt.Errorf("gnome shortcuts: %w", ErrUnsupported)
	}
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("gnome shortcuts: %w", err)
	}
	return newGnomeShortcuts(appName, executable, func(args ...string) (string, error) {
		output, err := exec.Command(gsettings, args...).Output()
		if err != nil {
			return "", fmt.Errorf("gsettings %s: %w", strings.Join(args, " "), err)
		}
		return string(output), nil
	}), nil
}

func newGnomeShortcuts(appName, executable string, run gsettingsRunner) *GnomeShortcuts {
	return &GnomeShortcuts{appName: appName, executable: executable, run: run}
}

// Grab writes the shortcut for name and lists it in the media-keys settings.
func (shortcuts *GnomeShortcuts) Grab(name string, accelerator keybinding.Accelerator) error {
	shortcuts.mu.Lock()
	defer shortcuts.mu.Unlock()

	path := shortcuts.bindingPath(name)
	schema := customBindingSchema + ":" + path
	values := [][2]string{
		{"name", "Pomodoro: " + name},
		{"command", quoteExec(shortcuts.executable) + " activate " + name},
		{"binding", accelerator.String()},
	}
	for _, value := range values {
		if _, err := shortcuts.run("set", schema, value[0], gvariantString(value[1])); err != nil {
			return fmt.Errorf("grab %s: %w", name, err)
		}
	}

	return shortcuts.editList(func(paths []string) []string {
		if slices.Contains(paths, path) {
			return paths
		}
		return append(paths, path)
	})
}

// Ungrab removes the shortcut for name.
func (shortcuts *GnomeShortcuts) Ungrab(name string) error {
	shortcuts.mu.Lock()
	defer shortcuts.mu.Unlock()

	path := shortcuts.bindingPath(name)
	if err := shortcuts.editList(func(paths []string) []string {
		return slices.DeleteFunc(paths, func(candidate string) bool { return candidate == path })
	}); err != nil {
		return err
	}
	if _, err := shortcuts.run("reset-recursively", customBindingSchema+":"+path); err != nil {
		return fmt.Errorf("ungrab %s: %w", name, err)
	}
	return nil
}

func (shortcuts *GnomeShortcuts) bindingPath(name string) string {
	return customBindingsRoot + entrySlug(shortcuts.appName+"-"+name) + "/"
}

func (shortcuts *GnomeShortcuts) editList(edit func([]string) []string) error {
	output, err := shortcuts.run("get", mediaKeysSchema, customBindingsKey)
	if err != nil {
		return err
	}
	paths, err := parsePathList(output)
	if err != nil {
		return err
	}
	updated := edit(slices.Clone(paths))
	if slices.Equal(paths, updated) {
		return nil
	}
	_, err = shortcuts.run("set", mediaKeysSchema, customBindingsKey, formatPathList(updated))
	return err
}

// parsePathList reads the "as" value printed by gsettings, e.g. "['/a/', '/b/']" or "@as []".
func parsePathList(value string) ([]string, error) {
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "@as"))
	if !strings.HasPrefix(value, "[") || !strings.HasSuffix(value, "]") {
		return nil, fmt.Errorf("parse %s: unexpected value %q", customBindingsKey, value)
	}
	inner := strings.TrimSpace(value[1 : len(value)-1])
	if inner == "" {
		return nil, nil
	}
	var paths []string
	for _, item := range strings.Split(inner, ",") {
		item = strings.Trim(strings.TrimSpace(item), `'"`)
		if item != "" {
			paths = append(paths, item)
		}
	}
	return paths, nil
}

func formatPathList(paths []string) string {
	if len(paths) == 0 {
		return "@as []"
	}
	quoted := make([]string, len(paths))
	for index, path := range paths {
		quoted[index] = gvariantString(path)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func gvariantString(value string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value) + "'"
}
