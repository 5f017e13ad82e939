// Package shell implements the navigable shells a session moves between: the
// filesystem, the inside of a value, and the help browser.
package shell

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sousajf1/nushell/internal/protocol"
)

// Shell is one navigable location.
type Shell interface {
	Name() string
	Path() string
	SetPath(path string)
	// Cd resolves target against the current path and returns the new path
	// without moving there.
	Cd(target string) (string, error)
	Ls(ctx context.Context, tag protocol.Tag) ([]protocol.Value, error)
}

type entry struct {
	id    uuid.UUID
	shell Shell
}

// Manager is the ordered list of open shells with a cursor on the active one.
type Manager struct {
	mu      sync.Mutex
	shells  []entry
	current int
}

func NewManager(initial ...Shell) *Manager {
	m := &Manager{}
	for _, s := range initial {
		m.shells = append(m.shells, entry{id: uuid.New(), shell: s})
	}
	return m
}

// InsertAtCurrent opens s right after the active shell and makes it active.
func (m *Manager) InsertAtCurrent(s Shell) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{id: uuid.New(), shell: s}
	if len(m.shells) == 0 {
		m.shells = []entry{e}
		m.current = 0
		return
	}
	at := m.current + 1
	m.shells = append(m.shells, entry{})
	copy(m.shells[at+1:], m.shells[at:])
	m.shells[at] = e
	m.current = at
}

// RemoveAtCurrent closes the active shell. The shell before it becomes
// active.
func (m *Manager) RemoveAtCurrent() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.shells) == 0 {
		return
	}
	m.shells = append(m.shells[:m.current], m.shells[m.current+1:]...)
	if m.current > 0 {
		m.current--
	}
	if m.current >= len(m.shells) {
		m.current = 0
	}
}

func (m *Manager) Next() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.shells) == 0 {
		return
	}
	m.current = (m.current + 1) % len(m.shells)
}

func (m *Manager) Prev() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.shells) == 0 {
		return
	}
	m.current = (m.current - 1 + len(m.shells)) % len(m.shells)
}

func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shells) == 0
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shells)
}

// Current returns the active shell, or nil when none is open.
func (m *Manager) Current() Shell {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.shells) == 0 {
		return nil
	}
	return m.shells[m.current].shell
}

func (m *Manager) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetPath moves the active shell to path.
func (m *Manager) SetPath(path string) {
	if s := m.Current(); s != nil {
		s.SetPath(path)
	}
}

func (m *Manager) Path() string {
	if s := m.Current(); s != nil {
		return s.Path()
	}
	return ""
}

type Info struct {
	ID     uuid.UUID
	Index  int
	Name   string
	Path   string
	Active bool
}

// Shells lists the open shells in order.
func (m *Manager) Shells() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Info, len(m.shells))
	for i, e := range m.shells {
		out[i] = Info{
			ID:     e.id,
			Index:  i,
			Name:   e.shell.Name(),
			Path:   e.shell.Path(),
			Active: i == m.current,
		}
	}
	return out
}
