package fsm

import (
	"maps"
	"sync"
)

// Store keeps one Session per user. All operations are total: an absent
// session reads as Idle with no params.
type Store interface {
	Get(id UserID) Session
	SetState(id UserID, st State)
	MergeParams(id UserID, p Params)
	Clear(id UserID)
	// Active counts sessions that are inside a flow.
	Active() int
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[UserID]*Session
}

// NewMemoryStore returns a process-local Store. Sessions do not survive a
// restart.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[UserID]*Session),
	}
}

// Get returns a copy of the user's session, or an idle one if none exists.
func (m *memoryStore) Get(id UserID) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if sess, ok := m.sessions[id]; ok {
		return Session{State: sess.State, Params: sess.Params.clone()}
	}
	return Session{State: Idle, Params: Params{}}
}

// SetState moves the user to st, creating the session if necessary.
func (m *memoryStore) SetState(id UserID, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session(id).State = st
}

// MergeParams adds or overwrites the given keys and leaves the others alone.
func (m *memoryStore) MergeParams(id UserID, p Params) {
	if len(p) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	maps.Copy(m.session(id).Params, p)
}

// Clear drops the session; the user reads as Idle afterwards.
func (m *memoryStore) Clear(id UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
}

func (m *memoryStore) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, sess := range m.sessions {
		if !sess.State.IsIdle() {
			n++
		}
	}
	return n
}

// session must be called with the write lock held.
func (m *memoryStore) session(id UserID) *Session {
	sess, ok := m.sessions[id]
	if !ok {
		sess = &Session{Params: make(Params)}
		m.sessions[id] = sess
	}
	return sess
}
