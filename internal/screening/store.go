package screening

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type storeEntry struct {
	mu      sync.Mutex
	session *Session
	// unix nanoseconds of the last access; read by Sweep without taking mu
	lastSeen atomic.Int64
}

func (e *storeEntry) touch(t time.Time) { e.lastSeen.Store(t.UnixNano()) }

func (e *storeEntry) idleSince(cutoff time.Time) bool {
	return e.lastSeen.Load() < cutoff.UnixNano()
}

// Store keeps one Session per session id. Calls on the same id are
// serialized by that entry's lock; different ids proceed independently.
// The store-wide lock only guards the map and is never held while waiting
// on an entry.
type Store struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*storeEntry
	now     func() time.Time
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{
		entries: make(map[uuid.UUID]*storeEntry),
		now:     time.Now,
	}
}

// Create registers a new empty session and returns its id.
func (st *Store) Create() uuid.UUID {
	id := uuid.New()
	e := &storeEntry{session: NewSession()}
	e.touch(st.now())

	st.mu.Lock()
	st.entries[id] = e
	st.mu.Unlock()
	return id
}

func (st *Store) lookup(id uuid.UUID) (*storeEntry, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	e, ok := st.entries[id]
	return e, ok
}

// With runs fn with exclusive access to the session identified by id.
func (st *Store) With(id uuid.UUID, fn func(*Session) error) error {
	e, ok := st.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	// waiting on a busy session counts as activity
	e.touch(st.now())

	e.mu.Lock()
	defer e.mu.Unlock()

	// the entry may have been swept or deleted while we waited
	if cur, ok := st.lookup(id); !ok || cur != e {
		return ErrSessionNotFound
	}

	e.touch(st.now())
	defer func() { e.touch(st.now()) }()
	return fn(e.session)
}

// Delete removes a session and reports whether it existed.
func (st *Store) Delete(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.entries[id]
	delete(st.entries, id)
	return ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}

// Sweep removes sessions idle for longer than ttl and returns how many were removed.
func (st *Store) Sweep(ttl time.Duration) int {
	cutoff := st.now().Add(-ttl)

	st.mu.RLock()
	var candidates []uuid.UUID
	for id, e := range st.entries {
		if e.idleSince(cutoff) {
			candidates = append(candidates, id)
		}
	}
	st.mu.RUnlock()

	if len(candidates) == 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for _, id := range candidates {
		// re-check: the session may have been used since the scan
		if e, ok := st.entries[id]; ok && e.idleSince(cutoff) {
			delete(st.entries, id)
			removed++
		}
	}
	return removed
}
