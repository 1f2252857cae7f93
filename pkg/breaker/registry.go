package breaker

import (
	"sort"
	"sync"
)

// Registry hands out one breaker per backend id, created lazily on first
// reference and kept for the life of the process. The registry lock only
// guards the map; each breaker synchronizes independently.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	settings func(backendID string) Settings
}

// NewRegistry creates a registry. settings is consulted once per backend,
// when its breaker is first created.
func NewRegistry(settings func(backendID string) Settings) *Registry {
	if settings == nil {
		settings = func(string) Settings { return Settings{} }
	}
	return &Registry{
		breakers: make(map[string]*Breaker),
		settings: settings,
	}
}

// Get returns the breaker for a backend, creating it if needed.
func (r *Registry) Get(backendID string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[backendID]
	if !ok {
		b = New(r.settings(backendID))
		r.breakers[backendID] = b
	}
	return b
}

// Snapshot returns the status of every known breaker, keyed by backend id.
func (r *Registry) Snapshot() map[string]Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Status, len(r.breakers))
	for id, b := range r.breakers {
		out[id] = b.Snapshot()
	}
	return out
}

// Backends returns the sorted ids of every backend with a breaker.
func (r *Registry) Backends() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.breakers))
	for id := range r.breakers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
