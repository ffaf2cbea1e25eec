// Package lock serializes schema migrations on one host with a PID file.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/vtable/vtable/internal/config"
)

const DefaultPath = "~/.vtable/vtable.lock"

// HeldError reports a lock owned by another live process.
type HeldError struct {
	PID int
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another vtable migration is running (PID %d)", e.PID)
}

// Acquire creates the lock file with the current process PID. A lock left
// behind by a dead process is taken over.
func Acquire(path string) error {
	path = resolve(path)

	held, pid, err := IsHeld(path)
	if err != nil {
		return err
	}
	if held && pid != os.Getpid() {
		return &HeldError{PID: pid}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Release removes the lock file.
func Release(path string) error {
	err := os.Remove(resolve(path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsHeld checks if the lock is currently held by a running process.
func IsHeld(path string) (bool, int, error) {
	data, err := os.ReadFile(resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, nil
	}
	return isProcessRunning(pid), pid, nil
}

func resolve(path string) string {
	if path == "" {
		path = DefaultPath
	}
	return config.ExpandHome(path)
}

func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
