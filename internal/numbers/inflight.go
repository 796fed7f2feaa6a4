package numbers

import (
	"sync"

	"jackbear/internal/sentinel"
)

// inflight tracks which number ids currently have a network operation
// running. Overlapping calls for the same id are rejected rather than queued:
// the caller gets an operation-in-progress error immediately and can retry
// once the first call settles. Operations on distinct ids proceed freely.
type inflight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{ids: make(map[string]struct{})}
}

// acquire reserves id for one operation. It returns sentinel.ErrInProgress
// when another operation already holds the reservation.
func (f *inflight) acquire(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.ids[id]; busy {
		return sentinel.ErrInProgress
	}
	f.ids[id] = struct{}{}
	return nil
}

// release frees the reservation for id.
func (f *inflight) release(id string) {
	f.mu.Lock()
	delete(f.ids, id)
	f.mu.Unlock()
}
