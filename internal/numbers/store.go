package numbers

import (
	"sort"
	"sync"
)

// Store holds the local collection of rented numbers. The Engine is its only
// writer; readers always observe fully-applied snapshots. Entries are never
// deleted individually; terminal numbers stay visible until the next full
// resync replaces the collection wholesale.
type Store struct {
	mu      sync.RWMutex
	numbers map[string]Number
	gen     uint64
}

// NewStore returns an empty number store.
func NewStore() *Store {
	return &Store{numbers: make(map[string]Number)}
}

// Get returns a copy of the number with the given id.
func (s *Store) Get(id string) (Number, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.numbers[id]
	return n, ok
}

// List returns all numbers, newest first.
func (s *Store) List() []Number {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Number, 0, len(s.numbers))
	for _, n := range s.numbers {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ActiveCount returns how many numbers are currently waiting for a code.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.numbers {
		if n.Status == StatusWaiting {
			count++
		}
	}
	return count
}

// generation identifies the current lifetime of the store. clear bumps it so
// network results that settle after a teardown are discarded instead of being
// written into a logically dead store.
func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// apply upserts one number when gen still matches the store's lifetime.
// A locally terminal number is never resurrected by a stale waiting snapshot;
// any other update is last-write-wins, so a cancel racing a received
// transition settles on whatever the authority answered last.
func (s *Store) apply(gen uint64, n Number) (Number, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return n, false
	}
	if existing, ok := s.numbers[n.ID]; ok {
		if existing.Status.Terminal() && !n.Status.Terminal() {
			return existing, true
		}
	}
	s.numbers[n.ID] = n
	return n, true
}

// replaceAll swaps the whole collection for the authoritative list when gen
// still matches the store's lifetime. A resync that settles after a teardown
// is dropped, same as apply.
func (s *Store) replaceAll(gen uint64, list []Number) bool {
	next := make(map[string]Number, len(list))
	for _, n := range list {
		next[n.ID] = n
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.numbers = next
	return true
}

// clear drops every entry and starts a new store lifetime. Used on logout and
// forced teardown.
func (s *Store) clear() {
	s.mu.Lock()
	s.numbers = make(map[string]Number)
	s.gen++
	s.mu.Unlock()
}
