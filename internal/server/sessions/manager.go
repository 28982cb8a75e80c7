// Package sessions keeps the process-lifetime map of live session ids to
// usernames. Nothing here is persisted; a restart logs everyone out.
package sessions

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/homevault/internal/common"
)

// Session is one live login.
type Session struct {
	ID       uint64
	Username string
}

type entry struct {
	username string
	expires  time.Time
}

// Manager is safe for concurrent use. A single RWMutex guards the map and
// is held only for the map operation itself.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uint64]entry
	ttl      time.Duration

	// randID and now are seams for tests.
	randID func() uint64
	now    func() time.Time
}

// NewManager returns a Manager whose sessions expire ttl after they are
// stored. A ttl of zero or less disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[uint64]entry),
		ttl:      ttl,
		randID:   common.RandUint64,
		now:      time.Now,
	}
}

// GenerateUniqueID draws random ids until one is not live. The read lock is
// held across the check, but nothing is reserved: a concurrent Insert of the
// same id can still land between this call and the caller's Insert, in which
// case the later insert wins. Use Issue to avoid that window.
func (m *Manager) GenerateUniqueID() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id := m.randID()
	for m.exists(id) {
		id = m.randID()
	}
	return id
}

// Issue creates a session for username under one write lock, so the id is
// guaranteed unique among live sessions when it is stored.
func (m *Manager) Issue(username string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.randID()
	for m.exists(id) {
		id = m.randID()
	}
	m.sessions[id] = m.newEntry(username)
	return id
}

// Insert maps id to username, overwriting any existing mapping.
func (m *Manager) Insert(id uint64, username string) {
	m.mu.Lock()
	m.sessions[id] = m.newEntry(username)
	m.mu.Unlock()
}

// Get returns the username for id. Expired sessions are reported as absent
// and dropped.
func (m *Manager) Get(id uint64) (string, bool) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}

	if m.expired(e, m.now()) {
		m.mu.Lock()
		if cur, ok := m.sessions[id]; ok && cur == e {
			delete(m.sessions, id)
		}
		m.mu.Unlock()
		return "", false
	}
	return e.username, true
}

// Sweep drops every expired session and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if m.expired(e, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Remove deletes id. Removing an unknown id is a no-op.
func (m *Manager) Remove(id uint64) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of stored sessions, expired ones not yet swept
// included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// exists must be called with mu held.
func (m *Manager) exists(id uint64) bool {
	_, ok := m.sessions[id]
	return ok
}

func (m *Manager) newEntry(username string) entry {
	e := entry{username: username}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	return e
}

func (m *Manager) expired(e entry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
