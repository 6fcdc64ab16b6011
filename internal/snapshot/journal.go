package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/verigate/internal/filelock"
)

// Journal records every artifact created through it, so that recovery only
// ever touches artifacts an invocation made. A .bak or .new file that is not
// in the journal belongs to the user and is never moved or deleted.
//
// The journal is not locked; callers hold the invocation lock.
type Journal struct {
	path string
}

type journalEntry struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

type journalFile struct {
	Pending []journalEntry `json:"pending"`
}

// NewJournal returns a journal stored at path. The file exists only while
// artifacts are pending.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Capture is Capture with the artifact recorded in the journal. The entry is
// written before the artifact, so an interrupted capture never leaves an
// artifact the journal does not know about.
func (j *Journal) Capture(path string) (*Snapshot, error) {
	return capture(path, j)
}

// Recover resolves a pending artifact for path left by an invocation that
// never finished. A backup is moved back over the target; a marker means the
// target is deleted. Artifacts not in the journal are left alone.
func (j *Journal) Recover(path string) (RecoveryAction, error) {
	entry, ok, err := j.lookup(path)
	if err != nil || !ok {
		return RecoveryNone, err
	}
	kind, err := parseKind(entry.Kind)
	if err != nil {
		return RecoveryNone, fmt.Errorf("recover %s: %w", path, err)
	}

	snap := &Snapshot{Path: path, Artifact: artifactPath(path, kind), Kind: kind, journal: j}
	present, err := exists(snap.Artifact)
	if err != nil {
		return RecoveryNone, err
	}
	if !present {
		// The artifact was consumed before the entry could be cleared.
		return RecoveryNone, j.remove(path)
	}

	if err := Restore(snap); err != nil {
		return RecoveryNone, fmt.Errorf("recover %s: %w", path, err)
	}
	if kind == KindNew {
		return RecoveryRemovedNewFile, nil
	}
	return RecoveryRestoredBackup, nil
}

// Orphans lists the pending artifacts under root that still exist.
func (j *Journal) Orphans(root string) ([]Orphan, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	entries, err := j.load()
	if err != nil {
		return nil, err
	}

	var orphans []Orphan
	for _, e := range entries {
		if !within(absRoot, e.Target) {
			continue
		}
		kind, err := parseKind(e.Kind)
		if err != nil {
			return nil, err
		}
		o := Orphan{Target: e.Target, Artifact: artifactPath(e.Target, kind), Kind: kind}
		present, err := exists(o.Artifact)
		if err != nil {
			return nil, err
		}
		if present {
			orphans = append(orphans, o)
		}
	}

	sortOrphans(orphans)
	return orphans, nil
}

func (j *Journal) add(path string, kind Kind) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	entries, err := j.load()
	if err != nil {
		return err
	}
	entries = append(withoutTarget(entries, target), journalEntry{Target: target, Kind: kind.String()})
	return j.save(entries)
}

func (j *Journal) remove(path string) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	entries, err := j.load()
	if err != nil {
		return err
	}
	kept := withoutTarget(entries, target)
	if len(kept) == len(entries) {
		return nil
	}
	return j.save(kept)
}

func (j *Journal) lookup(path string) (journalEntry, bool, error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return journalEntry{}, false, fmt.Errorf("resolve %s: %w", path, err)
	}
	entries, err := j.load()
	if err != nil {
		return journalEntry{}, false, err
	}
	for _, e := range entries {
		if e.Target == target {
			return e, true, nil
		}
	}
	return journalEntry{}, false, nil
}

func (j *Journal) load() ([]journalEntry, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot journal %s: %w", j.path, err)
	}
	var f journalFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse snapshot journal %s: %w", j.path, err)
	}
	return f.Pending, nil
}

func (j *Journal) save(entries []journalEntry) error {
	if len(entries) == 0 {
		if err := removeIfExists(j.path); err != nil {
			return fmt.Errorf("clear snapshot journal %s: %w", j.path, err)
		}
		return nil
	}
	data, err := json.MarshalIndent(journalFile{Pending: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot journal: %w", err)
	}
	if err := filelock.AtomicWrite(j.path, data); err != nil {
		return fmt.Errorf("write snapshot journal %s: %w", j.path, err)
	}
	return nil
}

func withoutTarget(entries []journalEntry, target string) []journalEntry {
	kept := make([]journalEntry, 0, len(entries))
	for _, e := range entries {
		if e.Target != target {
			kept = append(kept, e)
		}
	}
	return kept
}

func parseKind(s string) (Kind, error) {
	switch s {
	case KindExisting.String():
		return KindExisting, nil
	case KindNew.String():
		return KindNew, nil
	default:
		return 0, fmt.Errorf("unknown snapshot kind %q", s)
	}
}

func artifactPath(path string, kind Kind) string {
	if kind == KindNew {
		return MarkerPath(path)
	}
	return BackupPath(path)
}

// within reports whether target is root or below it.
func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
