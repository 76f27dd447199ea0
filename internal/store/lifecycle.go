package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned by Manager.Release without a matching Acquire.
var ErrNotAcquired = errors.New("store: release without acquire")

// Manager shares one Store among the components of a process.
//
// The first Acquire opens the store; later calls return the same handle.
// The handle is closed when the last holder releases it. Acquire and
// Release are serialized by one mutex.
type Manager struct {
	path string
	opts Options

	mu    sync.Mutex
	store *Store
	refs  int
}

// NewManager returns a Manager for the store at path. Nothing is opened
// until the first Acquire.
func NewManager(path string, opts Options) *Manager {
	return &Manager{path: path, opts: opts}
}

// Acquire returns the shared store, opening it on first use.
// A failed open leaves the count unchanged.
func (m *Manager) Acquire(ctx context.Context) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs == 0 {
		s, err := Open(ctx, m.path, m.opts)
		if err != nil {
			return nil, err
		}
		m.store = s
	}
	m.refs++
	return m.store, nil
}

// Release drops one reference and closes the store when none remain.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs == 0 {
		return ErrNotAcquired
	}
	m.refs--
	if m.refs > 0 {
		return nil
	}

	s := m.store
	m.store = nil
	return s.Close()
}

// Refs returns the number of outstanding acquisitions.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}
