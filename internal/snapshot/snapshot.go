// Package snapshot captures the pre-change state of a single target file so
// that a write can be rolled back.
//
// An existing file is copied to <target>.bak and restored by moving the copy
// back over the target. A file that did not exist is represented by a marker
// at <target>.new; restoring it deletes the target. Both artifacts are
// transient: a snapshot is consumed exactly once, by Restore or Discard.
// Snapshots taken through a Journal can be recovered after a crash.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/verigate/internal/filelock"
)

// Artifact suffixes, appended to the target path.
const (
	BackupSuffix = ".bak"
	MarkerSuffix = ".new"
)

// markerContent is written into .new markers.
const markerContent = "new"

// backupTempSuffix names the partial copy that becomes the .bak once complete.
const backupTempSuffix = ".tmp"

// ErrStaleArtifact means a previous invocation left a backup or marker behind.
var ErrStaleArtifact = errors.New("stale snapshot artifact")

// Kind distinguishes the two snapshot variants.
type Kind int

const (
	// KindExisting holds a full copy of the prior bytes.
	KindExisting Kind = iota
	// KindNew marks a target that did not exist before the write.
	KindNew
)

func (k Kind) String() string {
	switch k {
	case KindExisting:
		return "existing"
	case KindNew:
		return "new"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Snapshot is the pre-change state of one target path.
type Snapshot struct {
	Path     string
	Artifact string
	Kind     Kind

	createdDirs []string // deepest first, made by Capture for a new target
	consumed    bool
	journal     *Journal
}

// Consumed reports whether Restore or Discard has completed.
func (s *Snapshot) Consumed() bool {
	return s == nil || s.consumed
}

// BackupPath returns the .bak location for path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// MarkerPath returns the .new location for path.
func MarkerPath(path string) string {
	return path + MarkerSuffix
}

// Capture records the current state of path. It must run before path is
// modified. It refuses to run when an artifact for path already exists.
func Capture(path string) (*Snapshot, error) {
	return capture(path, nil)
}

func capture(path string, j *Journal) (*Snapshot, error) {
	if err := checkNoArtifacts(path); err != nil {
		return nil, err
	}

	kind := KindExisting
	var perm os.FileMode
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("snapshot %s: not a regular file", path)
		}
		perm = info.Mode().Perm()
	case os.IsNotExist(err):
		kind = KindNew
	default:
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}

	if j != nil {
		if err := j.add(path, kind); err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", path, err)
		}
	}

	var snap *Snapshot
	if kind == KindExisting {
		snap, err = captureExisting(path, perm)
	} else {
		snap, err = captureNew(path)
	}
	if err != nil {
		if j != nil {
			j.remove(path)
		}
		return nil, err
	}
	snap.journal = j
	return snap, nil
}

func checkNoArtifacts(path string) error {
	for _, artifact := range []string{BackupPath(path), MarkerPath(path)} {
		if _, err := os.Lstat(artifact); err == nil {
			return fmt.Errorf("%w: %s", ErrStaleArtifact, artifact)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("check %s: %w", artifact, err)
		}
	}
	return nil
}

// captureExisting copies path to a temporary file and renames it to the
// backup, so an existing .bak is always complete.
func captureExisting(path string, perm os.FileMode) (*Snapshot, error) {
	backup := BackupPath(path)
	tmp := backup + backupTempSuffix
	if err := removeIfExists(tmp); err != nil {
		return nil, fmt.Errorf("back up %s: %w", path, err)
	}
	if err := copyFile(path, tmp, perm); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("back up %s: %w", path, err)
	}
	if err := os.Rename(tmp, backup); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("back up %s: %w", path, err)
	}
	filelock.SyncDir(filepath.Dir(path))
	return &Snapshot{Path: path, Artifact: backup, Kind: KindExisting}, nil
}

func captureNew(path string) (*Snapshot, error) {
	dirs, err := makeParents(path)
	if err != nil {
		return nil, err
	}

	marker := MarkerPath(path)
	f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		removeDirs(dirs)
		return nil, fmt.Errorf("create marker for %s: %w", path, err)
	}
	_, werr := f.WriteString(markerContent)
	if serr := f.Sync(); werr == nil {
		werr = serr
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(marker)
		removeDirs(dirs)
		return nil, fmt.Errorf("write marker for %s: %w", path, werr)
	}
	filelock.SyncDir(filepath.Dir(path))

	return &Snapshot{Path: path, Artifact: marker, Kind: KindNew, createdDirs: dirs}, nil
}

// Restore puts path back into its captured state and removes the artifact.
// It tolerates a target that was never written or only partly written.
// Restoring a consumed snapshot is a no-op.
func Restore(s *Snapshot) error {
	if s.Consumed() {
		return nil
	}

	switch s.Kind {
	case KindExisting:
		if err := os.Rename(s.Artifact, s.Path); err != nil {
			return fmt.Errorf("restore %s from %s: %w", s.Path, s.Artifact, err)
		}
	case KindNew:
		if err := removeIfExists(s.Path); err != nil {
			return fmt.Errorf("remove new file %s: %w", s.Path, err)
		}
		if err := removeIfExists(s.Artifact); err != nil {
			return fmt.Errorf("remove marker %s: %w", s.Artifact, err)
		}
		removeDirs(s.createdDirs)
	default:
		return fmt.Errorf("restore %s: unknown snapshot kind %v", s.Path, s.Kind)
	}

	filelock.SyncDir(filepath.Dir(s.Path))
	s.consumed = true
	return s.release()
}

// Discard drops the artifact and keeps path as written.
// Discarding a consumed snapshot is a no-op.
func Discard(s *Snapshot) error {
	if s.Consumed() {
		return nil
	}
	if err := removeIfExists(s.Artifact); err != nil {
		return fmt.Errorf("discard %s: %w", s.Artifact, err)
	}
	s.consumed = true
	return s.release()
}

// release clears the journal entry once the artifact is gone.
func (s *Snapshot) release() error {
	if s.journal == nil {
		return nil
	}
	if err := s.journal.remove(s.Path); err != nil {
		return fmt.Errorf("release snapshot of %s: %w", s.Path, err)
	}
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// O_CREATE is subject to umask.
	return os.Chmod(dst, perm)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// makeParents creates the missing ancestors of path and returns them
// deepest first.
func makeParents(path string) ([]string, error) {
	var missing []string
	for dir := filepath.Dir(path); ; {
		if _, err := os.Stat(dir); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat %s: %w", dir, err)
		}
		missing = append(missing, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if len(missing) > 0 {
		if err := os.MkdirAll(missing[0], 0755); err != nil {
			return nil, fmt.Errorf("create parent directories for %s: %w", path, err)
		}
	}
	return missing, nil
}

// removeDirs removes directories that are still empty, deepest first.
func removeDirs(dirs []string) {
	for _, dir := range dirs {
		if os.Remove(dir) != nil {
			return
		}
	}
}
