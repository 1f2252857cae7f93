package breaker

import (
	"sync"
	"time"
)

// State is the health state of one backend.
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Settings holds the tunables for one breaker.
type Settings struct {
	ErrorThreshold int
	Cooldown       time.Duration
}

// maxCooldownFactor caps the exponential cooldown growth on repeated
// HALF_OPEN trial failures. The cooldown resets to the configured value
// when the breaker closes.
const maxCooldownFactor = 8

// Breaker is the health state machine for one backend, shared across all
// in-flight requests targeting it. Each breaker carries its own lock, so
// contention is only ever per-backend.
//
// Only definitive failures move the machine: a timeout or cancellation
// caused by our own scheduling must never open a breaker.
type Breaker struct {
	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
	cooldown            time.Duration
	baseCooldown        time.Duration
	threshold           int
	probing             bool
}

// New creates a closed breaker.
func New(settings Settings) *Breaker {
	threshold := settings.ErrorThreshold
	if threshold <= 0 {
		threshold = 5
	}
	cooldown := settings.Cooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{
		threshold:    threshold,
		cooldown:     cooldown,
		baseCooldown: cooldown,
	}
}

// Admit is the result of asking the breaker for permission.
type Admit struct {
	OK    bool
	Trial bool // this attempt is the single HALF_OPEN trial
}

// Allow reports whether an attempt may be dispatched. When the cooldown
// has elapsed on an open breaker, the caller receives the one HALF_OPEN
// trial slot; every settlement of a trial must be reported back through
// OnSuccess, OnFailure, or OnAbort so the slot is returned.
func (b *Breaker) Allow(now time.Time) Admit {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return Admit{OK: true}
	case StateOpen:
		if now.Sub(b.openedAt) < b.cooldown {
			return Admit{}
		}
		b.state = StateHalfOpen
		b.probing = true
		return Admit{OK: true, Trial: true}
	case StateHalfOpen:
		if b.probing {
			return Admit{}
		}
		b.probing = true
		return Admit{OK: true, Trial: true}
	default:
		return Admit{}
	}
}

// OnSuccess records a successful attempt: the breaker closes and the
// failure count and cooldown reset.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFailures = 0
	b.cooldown = b.baseCooldown
	b.probing = false
}

// OnFailure records a definitive failure. A failed HALF_OPEN trial
// re-opens the breaker with a doubled cooldown (capped); in CLOSED the
// failure count increments and the breaker opens at the threshold.
func (b *Breaker) OnFailure(now time.Time, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial || b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = now
		b.probing = false
		b.cooldown = min(b.cooldown*2, b.baseCooldown*maxCooldownFactor)
		return
	}
	if b.state != StateClosed {
		return
	}
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold {
		b.state = StateOpen
		b.openedAt = now
	}
}

// OnAbort records a non-definitive settlement (timeout or cancellation).
// The failure count is untouched; an aborted HALF_OPEN trial returns the
// trial slot so the next caller may probe.
func (b *Breaker) OnAbort(trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial {
		b.probing = false
	}
}

// Status is a point-in-time snapshot of one breaker.
type Status struct {
	State               State
	ConsecutiveFailures int
	OpenedAt            time.Time
	Cooldown            time.Duration
}

// Snapshot returns the breaker's current status.
func (b *Breaker) Snapshot() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		OpenedAt:            b.openedAt,
		Cooldown:            b.cooldown,
	}
}
