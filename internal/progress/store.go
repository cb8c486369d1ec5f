package progress

import (
	"sync"
	"time"

	"github.com/vidfetch/api/internal/model"
)

// Store holds the current state of every job known to this process.
type Store interface {
	Create(id string)
	Update(id string, state model.JobState)
	Merge(id string, mutate func(*model.JobState))
	Get(id string) model.JobState
	Sweep(now time.Time) int
	Len() int
}

// Observer is notified after every write with the state that was stored.
type Observer func(id string, state model.JobState)

type entry struct {
	state      model.JobState
	terminalAt time.Time
}

// MemoryStore is a mutex-guarded Store. Entries live until they have been
// terminal for longer than the TTL; a zero TTL keeps them forever.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	ttl      time.Duration
	observer Observer
	now      func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetObserver registers the write observer. It must be called before the
// store is shared.
func (s *MemoryStore) SetObserver(o Observer) {
	s.observer = o
}

// Create writes the Starting state, replacing whatever was there.
func (s *MemoryStore) Create(id string) {
	s.Update(id, model.Starting())
}

// Update replaces the state of id. Last write wins.
func (s *MemoryStore) Update(id string, state model.JobState) {
	s.mu.Lock()
	s.put(id, state)
	s.mu.Unlock()

	s.notify(id, state)
}

// Merge applies mutate to the current state of id under the lock, starting
// from Starting when id is unknown.
func (s *MemoryStore) Merge(id string, mutate func(*model.JobState)) {
	s.mu.Lock()
	state := model.Starting()
	if e, ok := s.entries[id]; ok {
		state = e.state
	}
	mutate(&state)
	s.put(id, state)
	s.mu.Unlock()

	s.notify(id, state)
}

// Get returns a copy of the state of id, or NotFound.
func (s *MemoryStore) Get(id string) model.JobState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return model.NotFound()
	}
	return e.state
}

// Sweep removes entries that reached a terminal state more than the TTL
// before now and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.terminalAt.IsZero() {
			continue
		}
		if now.Sub(e.terminalAt) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// put must be called with mu held.
func (s *MemoryStore) put(id string, state model.JobState) {
	e := &entry{state: state}
	if state.IsTerminal() {
		e.terminalAt = s.now()
	}
	s.entries[id] = e
}

func (s *MemoryStore) notify(id string, state model.JobState) {
	if s.observer != nil {
		s.observer(id, state)
	}
}
