package application

import "sync"

// InFlightRegistry records the keys of running background fetches.
// A key can be held by at most one caller at a time.
type InFlightRegistry struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewInFlightRegistry creates an empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{keys: make(map[string]struct{})}
}

// TryAcquire registers key and reports whether it was free.
func (r *InFlightRegistry) TryAcquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.keys[key]; held {
		return false
	}
	r.keys[key] = struct{}{}
	return true
}

// Release frees key.
func (r *InFlightRegistry) Release(key string) {
	r.mu.Lock()
	delete(r.keys, key)
	r.mu.Unlock()
}

// Len returns the number of held keys.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}
