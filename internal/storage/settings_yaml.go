package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pomodoro/internal/ui/preferences"

	"gopkg.in/yaml.v3"
)

const settingsFileName = "settings.yaml"

// ErrSchema indicates a settings file that does not match the expected layout.
var ErrSchema = errors.New("settings schema mismatch")

type yamlSettings struct {
	ShowScreenNotifications *bool  `yaml:"show_screen_notifications,omitempty"`
	ToggleTimerKey          string `yaml:"toggle_timer_key,omitempty"`
	TimerBackend            string `yaml:"timer_backend,omitempty"`
	PomodoroMinutes         int    `yaml:"pomodoro_minutes,omitempty"`
	ShortBreakMinutes       int    `yaml:"short_break_minutes,omitempty"`
	LongBreakMinutes        int    `yaml:"long_break_minutes,omitempty"`
	LongBreakInterval       int    `yaml:"long_break_interval,omitempty"`
	IdleTimeToOpenSeconds   int    `yaml:"idle_time_to_open_seconds,omitempty"`
	Fullscreen              *bool  `yaml:"fullscreen,omitempty"`
	Autostart               bool   `yaml:"autostart,omitempty"`
}

// Store holds the live settings and writes changes back to disk.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings preferences.Settings
}

// Open loads the settings of appName from the user config directory.
func Open(appName string) (*Store, error) {
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return nil, err
	}
	return OpenFile(configPath)
}

// OpenFile loads settings from configPath. A missing file yields defaults.
func OpenFile(configPath string) (*Store, error) {
	settings, err := loadFile(configPath)
	if err != nil {
		return nil, err
	}
	return &Store{path: configPath, settings: settings}, nil
}

// Path returns the file backing the store.
func (store *Store) Path() string {
	return store.path
}

// Bool returns a boolean setting by key.
func (store *Store) Bool(key string) bool {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.settings.Bool(key)
}

// String returns a string setting by key.
func (store *Store) String(key string) string {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.settings.String(key)
}

// Settings returns a copy of the current settings.
func (store *Store) Settings() preferences.Settings {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.settings
}

// Update persists settings and then makes them current. A failed write keeps
// the previous settings.
func (store *Store) Update(settings preferences.Settings) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := saveFile(store.path, settings); err != nil {
		return err
	}
	store.settings = settings
	return nil
}

func loadFile(configPath string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	decoder := yaml.NewDecoder(bytes.NewReader(rawData))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fileData); err != nil && !errors.Is(err, io.EOF) {
		return settings, fmt.Errorf("%w: %s: %v", ErrSchema, configPath, err)
	}
	if err := validate(fileData); err != nil {
		return settings, fmt.Errorf("%w: %s: %v", ErrSchema, configPath, err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

func saveFile(configPath string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	showScreen := settings.ShowScreenNotifications
	fullscreen := settings.Fullscreen
	fileData := yamlSettings{
		ShowScreenNotifications: &showScreen,
		ToggleTimerKey:          settings.ToggleTimerKey,
		TimerBackend:            settings.TimerBackend,
		PomodoroMinutes:         int(settings.PomodoroDuration / time.Minute),
		ShortBreakMinutes:       int(settings.ShortBreakDuration / time.Minute),
		LongBreakMinutes:        int(settings.LongBreakDuration / time.Minute),
		LongBreakInterval:       settings.LongBreakInterval,
		IdleTimeToOpenSeconds:   int(settings.IdleTimeToOpen / time.Second),
		Fullscreen:              &fullscreen,
		Autostart:               settings.Autostart,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := writeFileAtomic(configPath, serialized); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// writeFileAtomic replaces path through a temporary file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return err
	}
	if err := tempFile.Chmod(0o644); err != nil {
		_ = tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}

func resolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func validate(fileData yamlSettings) error {
	switch fileData.TimerBackend {
	case "", preferences.BackendDBus, preferences.BackendLocal:
	default:
		return fmt.Errorf("unknown timer_backend %q", fileData.TimerBackend)
	}
	if fileData.PomodoroMinutes < 0 || fileData.ShortBreakMinutes < 0 || fileData.LongBreakMinutes < 0 {
		return errors.New("durations must not be negative")
	}
	if fileData.LongBreakInterval < 0 || fileData.IdleTimeToOpenSeconds < 0 {
		return errors.New("intervals must not be negative")
	}
	return nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.ShowScreenNotifications != nil {
		settings.ShowScreenNotifications = *fileData.ShowScreenNotifications
	}
	if fileData.ToggleTimerKey != "" {
		settings.ToggleTimerKey = fileData.ToggleTimerKey
	}
	if fileData.TimerBackend != "" {
		settings.TimerBackend = fileData.TimerBackend
	}
	if fileData.PomodoroMinutes > 0 {
		settings.PomodoroDuration = time.Duration(fileData.PomodoroMinutes) * time.Minute
	}
	if fileData.ShortBreakMinutes > 0 {
		settings.ShortBreakDuration = time.Duration(fileData.ShortBreakMinutes) * time.Minute
	}
	if fileData.LongBreakMinutes > 0 {
		settings.LongBreakDuration = time.Duration(fileData.LongBreakMinutes) * time.Minute
	}
	if fileData.LongBreakInterval > 0 {
		settings.LongBreakInterval = fileData.LongBreakInterval
	}
	if fileData.IdleTimeToOpenSeconds > 0 {
		settings.IdleTimeToOpen = time.Duration(fileData.IdleTimeToOpenSeconds) * time.Second
	}
	if fileData.Fullscreen != nil {
		settings.Fullscreen = *fileData.Fullscreen
	}
	settings.Autostart = fileData.Autostart
}
