package snapshot

import (
	"fmt"
	"os"
	"sort"
)

// RecoveryAction describes what Recover did for a target.
type RecoveryAction int

const (
	// RecoveryNone means no pending artifact was found.
	RecoveryNone RecoveryAction = iota
	// RecoveryRestoredBackup means a pending .bak was moved back over the target.
	RecoveryRestoredBackup
	// RecoveryRemovedNewFile means an unverified new target and its marker were deleted.
	RecoveryRemovedNewFile
)

func (a RecoveryAction) String() string {
	switch a {
	case RecoveryNone:
		return "none"
	case RecoveryRestoredBackup:
		return "restored backup"
	case RecoveryRemovedNewFile:
		return "removed unverified new file"
	default:
		return fmt.Sprintf("RecoveryAction(%d)", int(a))
	}
}

// Orphan is an artifact left behind by an invocation that never finished.
type Orphan struct {
	Target   string
	Artifact string
	Kind     Kind
}

func sortOrphans(orphans []Orphan) {
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].Artifact < orphans[j].Artifact
	})
}

func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}
