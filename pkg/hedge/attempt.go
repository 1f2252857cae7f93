package hedge

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal (or pending) state of one candidate within a
// routed request.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSkipped   Outcome = "skipped"
)

// Disposition kinds, reported per candidate in aggregate failures.
const (
	KindBreakerOpen = "breaker_open"
	KindCapacity    = "capacity"
	KindNoAdapter   = "no_adapter"
	KindDefinitive  = "definitive"
	KindTimeout     = "timeout"
	KindCancelled   = "cancelled"
	KindBudget      = "budget_exhausted"
	KindUnused      = "not_dispatched"
)

// Disposition records what happened to one candidate: dispatched and
// settled, or skipped without an attempt.
type Disposition struct {
	BackendID   string        `json:"backend_id"`
	Model       string        `json:"model"`
	Outcome     Outcome       `json:"outcome"`
	Kind        string        `json:"kind,omitempty"`
	Err         error         `json:"-"`
	StartOffset time.Duration `json:"start_offset,omitempty"`
	Latency     time.Duration `json:"latency,omitempty"`
}

// Message returns the disposition's error message, or its kind when the
// candidate never produced an error.
func (d Disposition) Message() string {
	if d.Err != nil {
		return d.Err.Error()
	}
	return d.Kind
}

// AggregateError reports a routed request where no candidate produced a
// result, with each candidate's disposition.
type AggregateError struct {
	Role         string
	Dispositions []Disposition
	Err          error
}

func (e *AggregateError) Error() string {
	var parts []string
	for _, d := range e.Dispositions {
		parts = append(parts, fmt.Sprintf("%s/%s: %s (%s)", d.BackendID, d.Model, d.Outcome, d.Message()))
	}
	return fmt.Sprintf("role %q: all candidates failed: %s", e.Role, strings.Join(parts, "; "))
}

func (e *AggregateError) Unwrap() error {
	return e.Err
}
