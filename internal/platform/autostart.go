package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
)

const defaultAppName = "pomodoro-indicator"

// ErrUnsupported indicates the helper is not available on this system.
var ErrUnsupported = errors.New("not supported on this platform")

// Service defines OS-specific helpers needed by the indicator.
type Service interface {
	GetConfigDir() (string, error)
	EnableAutostart(appName, execPath string) error
	DisableAutostart(appName string) error
}

type platformService struct {
	configDir func() (string, error)
	homeDir   func() (string, error)
}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{
		configDir: os.UserConfigDir,
		homeDir:   os.UserHomeDir,
	}
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := service.configDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := service.homeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}

// SyncAutostart installs or removes the login entry to match enabled.
func SyncAutostart(service Service, enabled bool, appName string) error {
	if !enabled {
		return service.DisableAutostart(appName)
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("sync autostart: %w", err)
	}
	return service.EnableAutostart(appName, execPath)
}

// quoteExec quotes path when the Exec key would otherwise split or expand it.
func quoteExec(path string) string {
	if !strings.ContainsAny(path, " \t\"'`$\\<>~|&;*?#()") {
		return path
	}
	escaper := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + escaper.Replace(path) + `"`
}

// entrySlug turns an application name into a desktop file id.
func entrySlug(appName string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, strings.TrimSpace(appName))
	if slug == "" {
		return defaultAppName
	}
	return slug
}
