// Package breaker holds the persistent consecutive-failure counter and the
// policy that opens the circuit once it reaches the configured maximum.
//
// The counter is the only state that survives between invocations. It is
// read once per invocation, incremented on a failed verification, reset to
// zero on a passing one and otherwise left alone. Nothing in-band resets an
// open breaker; that is a human action (verigate reset).
package breaker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/harrison/verigate/internal/filelock"
)

// ErrCorruptState is returned when the persisted counter cannot be trusted.
var ErrCorruptState = errors.New("corrupt retry state")

// Store reads and writes the failure counter.
type Store interface {
	Read() (int, error)
	Write(n int) error
}

// state is the on-disk form: {"count": n}.
type state struct {
	Count *int `json:"count"`
}

// FileStore persists the counter as a small JSON file.
type FileStore struct {
	path    string
	lenient bool
}

// NewFileStore returns a store backed by path. With lenient set, unreadable
// content is treated as a zero count instead of ErrCorruptState.
func NewFileStore(path string, lenient bool) *FileStore {
	return &FileStore{path: path, lenient: lenient}
}

// Path returns the state file location.
func (s *FileStore) Path() string {
	return s.path
}

// Read returns the persisted count, or 0 when no state exists yet.
// A file without a "count" key also reads as 0.
func (s *FileStore) Read() (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read retry state %s: %w", s.path, err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return s.corrupt(fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err))
	}
	if st.Count == nil {
		return 0, nil
	}
	if *st.Count < 0 {
		return s.corrupt(fmt.Errorf("%w: %s: negative count %d", ErrCorruptState, s.path, *st.Count))
	}
	return *st.Count, nil
}

func (s *FileStore) corrupt(err error) (int, error) {
	if s.lenient {
		return 0, nil
	}
	return 0, err
}

// Write persists n durably, replacing any previous value.
func (s *FileStore) Write(n int) error {
	if n < 0 {
		return fmt.Errorf("retry count must be >= 0, got %d", n)
	}
	data, err := json.Marshal(state{Count: &n})
	if err != nil {
		return fmt.Errorf("marshal retry state: %w", err)
	}
	if err := filelock.AtomicWrite(s.path, data); err != nil {
		return fmt.Errorf("write retry state: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests and dry runs.
type MemStore struct {
	mu       sync.Mutex
	count    int
	ReadErr  error
	WriteErr error
	Writes   []int
}

// NewMemStore returns a MemStore starting at count.
func NewMemStore(count int) *MemStore {
	return &MemStore{count: count}
}

// Read implements Store.
func (m *MemStore) Read() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	return m.count, nil
}

// Write implements Store.
func (m *MemStore) Write(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.count = n
	m.Writes = append(m.Writes, n)
	return nil
}

// Count returns the current value without going through Read.
func (m *MemStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
