// Package gate implements per-backend admission control: a non-blocking
// cap on simultaneous in-flight calls, so a saturated backend is skipped
// instead of queued (queuing would desynchronize hedge timing). A refusal
// is not a failure and never touches breaker state.
package gate

import (
	"sync"
	"sync/atomic"
)

// Gate limits concurrent in-flight calls to one backend.
type Gate struct {
	max      int32
	inFlight atomic.Int32
}

// New creates a gate admitting at most max concurrent calls.
func New(max int) *Gate {
	if max <= 0 {
		max = 8
	}
	return &Gate{max: int32(max)}
}

// TryAcquire claims an in-flight slot, returning false immediately when
// the gate is full.
func (g *Gate) TryAcquire() bool {
	for {
		n := g.inFlight.Load()
		if n >= g.max {
			return false
		}
		if g.inFlight.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release returns an in-flight slot. Call exactly once per successful
// TryAcquire, when the attempt settles.
func (g *Gate) Release() {
	if g.inFlight.Add(-1) < 0 {
		panic("gate: release without acquire")
	}
}

// InFlight returns the current number of admitted calls.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Max returns the gate's concurrency limit.
func (g *Gate) Max() int {
	return int(g.max)
}

// Registry hands out one gate per backend id, created lazily and kept for
// the life of the process.
type Registry struct {
	mu       sync.Mutex
	gates    map[string]*Gate
	capacity func(backendID string) int
}

// NewRegistry creates a registry. capacity is consulted once per backend,
// when its gate is first created.
func NewRegistry(capacity func(backendID string) int) *Registry {
	if capacity == nil {
		capacity = func(string) int { return 0 }
	}
	return &Registry{
		gates:    make(map[string]*Gate),
		capacity: capacity,
	}
}

// Get returns the gate for a backend, creating it if needed.
func (r *Registry) Get(backendID string) *Gate {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.gates[backendID]
	if !ok {
		g = New(r.capacity(backendID))
		r.gates[backendID] = g
	}
	return g
}
