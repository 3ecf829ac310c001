package transport

import (
	"context"
	"sort"
	"sync"
)

// InFlightRegistry tracks streams that are still being written, so that a
// shutdown that runs out of time can cancel them instead of waiting for the
// upstream to finish.
//
// All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]inFlightEntry
}

type inFlightEntry struct {
	id     string
	cancel context.CancelFunc
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[uint64]inFlightEntry),
	}
}

// Track adds a stream under the given request ID. The returned function
// removes it again and must be called when the stream ends. IDs need not
// be unique.
func (r *InFlightRegistry) Track(id string, cancel context.CancelFunc) (untrack func()) {
	r.mu.Lock()
	key := r.next
	r.next++
	r.entries[key] = inFlightEntry{id: id, cancel: cancel}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.entries, key)
	}
}

// Len returns the number of tracked streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the request IDs of all tracked streams, sorted.
func (r *InFlightRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		ids = append(ids, e.id)
	}
	sort.Strings(ids)
	return ids
}

// CancelAll cancels every tracked stream and returns how many there were.
// Entries stay registered until their untrack function runs.
func (r *InFlightRegistry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.cancel()
	}
	return len(r.entries)
}
