// Package hedge races a role's ordered candidates under a single
// wall-clock budget: the primary is dispatched immediately, fallbacks are
// staggered behind it, and escalation happens early whenever the current
// attempt fails definitively. The first success wins and every other
// attempt is cancelled.
package hedge

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/zen-systems/hedgegate/pkg/adapter"
	"github.com/zen-systems/hedgegate/pkg/breaker"
	"github.com/zen-systems/hedgegate/pkg/gate"
	"github.com/zen-systems/hedgegate/pkg/registry"
)

// Scheduler orchestrates hedged attempts across the per-backend breaker
// and gate registries. It is safe for concurrent use; all per-request
// state lives on the Run stack.
type Scheduler struct {
	adapters map[registry.Family]adapter.Adapter
	breakers *breaker.Registry
	gates    *gate.Registry
	logger   *zap.Logger
}

// NewScheduler creates a scheduler over the given adapters and registries.
func NewScheduler(adapters map[registry.Family]adapter.Adapter, breakers *breaker.Registry, gates *gate.Registry, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		adapters: adapters,
		breakers: breakers,
		gates:    gates,
		logger:   logger,
	}
}

// Winner is the single successful attempt of a routed request.
type Winner struct {
	Candidate registry.Candidate
	Result    *adapter.Result
}

// settled is one attempt's completion report.
type settled struct {
	idx int
	res *adapter.Result
	err error
}

// inflight tracks one dispatched attempt until it settles.
type inflight struct {
	cancel  context.CancelFunc
	trial   bool
	started time.Time
}

// Run races the role's candidates and returns the winner, or an
// *AggregateError listing each candidate's disposition. The caller owns
// the budget: ctx must carry the role's total-budget deadline.
//
// Run returns as soon as the outcome is known; attempts still in flight
// at that point have been cancelled, and their breaker and gate
// bookkeeping is finished in the background as they settle.
func (s *Scheduler) Run(ctx context.Context, role *registry.Role, prompt adapter.Prompt) (*Winner, []Disposition, error) {
	n := len(role.Candidates)
	dispositions := make([]Disposition, n)
	for i, c := range role.Candidates {
		dispositions[i] = Disposition{BackendID: c.BackendID, Model: c.Model, Outcome: OutcomePending}
	}

	start := time.Now()
	deadline, hasDeadline := ctx.Deadline()
	results := make(chan settled, n)
	attempts := make(map[int]*inflight, n)
	next := 0

	// dispatchNext starts the next startable candidate. A candidate whose
	// breaker is open or whose gate is full is recorded as skipped and
	// passed over with no delay; a skip never counts as a failure.
	dispatchNext := func() bool {
		for next < n {
			if ctx.Err() != nil {
				return false
			}
			i := next
			next++
			c := role.Candidates[i]

			br := s.breakers.Get(c.BackendID)
			admit := br.Allow(time.Now())
			if !admit.OK {
				dispositions[i].Outcome = OutcomeSkipped
				dispositions[i].Kind = KindBreakerOpen
				s.logger.Debug("candidate skipped, breaker open",
					zap.String("role", role.ID), zap.String("backend", c.BackendID))
				continue
			}

			g := s.gates.Get(c.BackendID)
			if !g.TryAcquire() {
				br.OnAbort(admit.Trial)
				dispositions[i].Outcome = OutcomeSkipped
				dispositions[i].Kind = KindCapacity
				s.logger.Debug("candidate skipped, gate full",
					zap.String("role", role.ID), zap.String("backend", c.BackendID))
				continue
			}

			ad, ok := s.adapters[c.Family]
			if !ok {
				g.Release()
				br.OnAbort(admit.Trial)
				dispositions[i].Outcome = OutcomeSkipped
				dispositions[i].Kind = KindNoAdapter
				continue
			}

			// Per-attempt timeouts are capped at the remaining budget,
			// never allowed to extend past it.
			timeout := c.Timeout
			if hasDeadline {
				remaining := time.Until(deadline)
				if remaining <= 0 {
					g.Release()
					br.OnAbort(admit.Trial)
					return false
				}
				if timeout <= 0 || timeout > remaining {
					timeout = remaining
				}
			}

			var actx context.Context
			var cancel context.CancelFunc
			if timeout > 0 {
				actx, cancel = context.WithTimeout(ctx, timeout)
			} else {
				actx, cancel = context.WithCancel(ctx)
			}
			attempts[i] = &inflight{cancel: cancel, trial: admit.Trial, started: time.Now()}
			dispositions[i].StartOffset = time.Since(start)

			go func(i int, c registry.Candidate, ad adapter.Adapter, actx context.Context) {
				defer g.Release()
				res, err := ad.Call(actx, c.Model, c.Params, prompt)
				results <- settled{idx: i, res: res, err: err}
			}(i, c, ad, actx)

			s.logger.Debug("attempt dispatched",
				zap.String("role", role.ID),
				zap.String("backend", c.BackendID),
				zap.String("model", c.Model),
				zap.Bool("trial", admit.Trial),
				zap.Duration("offset", dispositions[i].StartOffset))
			return true
		}
		return false
	}

	var escalate <-chan time.Time
	var escalateTimer *time.Timer
	arm := func(d time.Duration) {
		if escalateTimer != nil {
			escalateTimer.Stop()
		}
		if next >= n {
			escalate = nil
			return
		}
		escalateTimer = time.NewTimer(d)
		escalate = escalateTimer.C
	}
	defer func() {
		if escalateTimer != nil {
			escalateTimer.Stop()
		}
	}()

	if dispatchNext() {
		arm(role.HedgeDelay)
	}

	outstanding := len(attempts)
	for outstanding > 0 {
		select {
		case <-ctx.Done():
			// Budget exhausted or the caller gave up: cancel everything
			// still pending and finish the bookkeeping as they settle.
			kind := shutdownKind(ctx.Err())
			for i, a := range attempts {
				a.cancel()
				dispositions[i].Outcome = OutcomeCancelled
				dispositions[i].Kind = kind
				dispositions[i].Latency = time.Since(a.started)
			}
			s.drain(role, attempts, results, outstanding)
			markUnreached(dispositions, kind)
			return nil, dispositions, &AggregateError{Role: role.ID, Dispositions: dispositions, Err: ctx.Err()}

		case <-escalate:
			if dispatchNext() {
				outstanding++
				arm(role.FallbackStagger)
			} else {
				escalate = nil
			}

		case st := <-results:
			outstanding--
			a := attempts[st.idx]
			delete(attempts, st.idx)
			c := role.Candidates[st.idx]
			br := s.breakers.Get(c.BackendID)
			elapsed := time.Since(a.started)
			a.cancel()

			if st.err == nil {
				br.OnSuccess()
				dispositions[st.idx].Outcome = OutcomeSuccess
				dispositions[st.idx].Latency = elapsed

				// First success wins; everyone else is cancelled.
				for i, other := range attempts {
					other.cancel()
					dispositions[i].Outcome = OutcomeCancelled
					dispositions[i].Kind = KindCancelled
					dispositions[i].Latency = time.Since(other.started)
				}
				s.drain(role, attempts, results, outstanding)
				markUnreached(dispositions, KindUnused)

				s.logger.Info("attempt won",
					zap.String("role", role.ID),
					zap.String("backend", c.BackendID),
					zap.String("model", c.Model),
					zap.Duration("latency", elapsed))
				return &Winner{Candidate: c, Result: st.res}, dispositions, nil
			}

			dispositions[st.idx].Err = st.err
			dispositions[st.idx].Latency = elapsed
			if adapter.IsDefinitive(st.err) {
				br.OnFailure(time.Now(), a.trial)
				dispositions[st.idx].Outcome = OutcomeFailed
				dispositions[st.idx].Kind = KindDefinitive
				s.logger.Debug("attempt failed definitively",
					zap.String("role", role.ID),
					zap.String("backend", c.BackendID),
					zap.Error(st.err))

				// The backend told us authoritatively it cannot serve
				// this request; do not wait out the hedge window.
				if dispatchNext() {
					outstanding++
					arm(role.FallbackStagger)
				} else {
					escalate = nil
				}
			} else {
				br.OnAbort(a.trial)
				dispositions[st.idx].Outcome = OutcomeCancelled
				dispositions[st.idx].Kind = KindCancelled
				if errors.Is(st.err, context.DeadlineExceeded) {
					dispositions[st.idx].Kind = KindTimeout
				}
				s.logger.Debug("attempt aborted",
					zap.String("role", role.ID),
					zap.String("backend", c.BackendID),
					zap.String("kind", dispositions[st.idx].Kind))

				// Nothing left racing; start the next candidate now
				// rather than waiting for the timer.
				if outstanding == 0 {
					if dispatchNext() {
						outstanding++
						arm(role.FallbackStagger)
					} else {
						escalate = nil
					}
				}
			}
		}
	}

	markUnreached(dispositions, shutdownKind(ctx.Err()))
	// ctx.Err() is nil when every candidate was tried and none won; it
	// carries the budget error when the deadline cut dispatch short.
	return nil, dispositions, &AggregateError{Role: role.ID, Dispositions: dispositions, Err: ctx.Err()}
}

// shutdownKind labels attempts torn down by the request context: the
// budget deadline firing or the caller cancelling.
func shutdownKind(err error) string {
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindBudget
}

// drain finishes breaker bookkeeping for cancelled attempts in the
// background. Gate slots are released by each attempt goroutine itself,
// so no admission capacity leaks even if an adapter is slow to abort.
func (s *Scheduler) drain(role *registry.Role, attempts map[int]*inflight, results <-chan settled, outstanding int) {
	if outstanding == 0 {
		return
	}
	trials := make(map[int]bool, len(attempts))
	for i, a := range attempts {
		trials[i] = a.trial
	}
	go func() {
		for k := 0; k < outstanding; k++ {
			st := <-results
			br := s.breakers.Get(role.Candidates[st.idx].BackendID)
			switch {
			case st.err == nil:
				br.OnSuccess()
			case adapter.IsDefinitive(st.err):
				br.OnFailure(time.Now(), trials[st.idx])
			default:
				br.OnAbort(trials[st.idx])
			}
		}
	}()
}

// markUnreached labels candidates that were never considered before the
// request resolved.
func markUnreached(dispositions []Disposition, kind string) {
	for i := range dispositions {
		if dispositions[i].Outcome == OutcomePending {
			dispositions[i].Outcome = OutcomeSkipped
			dispositions[i].Kind = kind
		}
	}
}
