package gate

import (
	"errors"
	"fmt"

	"github.com/harrison/verigate/internal/filelock"
)

// ErrLocked is returned when another invocation holds the invocation lock.
var ErrLocked = errors.New("another verigate invocation is in progress")

// LockPath returns the invocation lock file that guards stateFile.
func LockPath(stateFile string) string {
	return stateFile + ".lock"
}

// JournalPath returns the snapshot journal kept next to stateFile.
func JournalPath(stateFile string) string {
	return stateFile + ".pending"
}

// AcquireLock takes the invocation lock without waiting.
// The caller releases it with Unlock once the outcome is reported.
func AcquireLock(stateFile string) (*filelock.FileLock, error) {
	lock := filelock.NewFileLock(LockPath(stateFile))
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, filelock.ErrLockHeld) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquire invocation lock: %w", err)
	}
	return lock, nil
}
