//go:build !linux

package platform

import (
	"path/filepath"
	"time"

	"pomodoro/internal/core/timekeeper"
)

type unsupportedIdleProvider struct{}

func newIdleProvider() IdleProvider {
	return unsupportedIdleProvider{}
}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, timekeeper.ErrIdleUnsupported
}

func (service *platformService) EnableAutostart(string, string) error {
	return ErrUnsupported
}

func (service *platformService) DisableAutostart(string) error {
	return nil
}

func fallbackConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config")
}

// AcquireSingleInstance does not lock outside Linux.
func AcquireSingleInstance(string) (*InstanceGuard, error) {
	return &InstanceGuard{}, nil
}
