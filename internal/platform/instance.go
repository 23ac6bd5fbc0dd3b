package platform

import (
	"errors"
	"os"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// InstanceGuard holds the single-instance lock until Release. Without a
// session bus it is the only guard; with one, the action service name is.
type InstanceGuard struct {
	file *os.File
	path string
}

// Release drops the lock. Closing the file releases it.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.file == nil {
		return nil
	}
	file := guard.file
	guard.file = nil
	return file.Close()
}

// Path returns the lock file, empty where locking is unsupported.
func (guard *InstanceGuard) Path() string {
	if guard == nil {
		return ""
	}
	return guard.path
}
