// Package router is the public entry point of the routing layer: it
// resolves a role to its ordered candidate list, owns the request's
// wall-clock budget, and hands the race to the hedging scheduler.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/hedgegate/pkg/adapter"
	"github.com/zen-systems/hedgegate/pkg/breaker"
	"github.com/zen-systems/hedgegate/pkg/gate"
	"github.com/zen-systems/hedgegate/pkg/hedge"
	"github.com/zen-systems/hedgegate/pkg/registry"
)

// Router routes generate requests for a role to the first backend that
// answers. One Router is shared across all requests; breaker and gate
// state persists for the life of the process.
type Router struct {
	resolver  *registry.Resolver
	scheduler *hedge.Scheduler
	breakers  *breaker.Registry
	gates     *gate.Registry
	logger    *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a router over a resolver and the adapters serving each
// backend family. Breaker and gate registries are created from the
// resolver's per-backend settings.
func New(resolver *registry.Resolver, adapters map[registry.Family]adapter.Adapter, opts ...Option) *Router {
	r := &Router{
		resolver: resolver,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.breakers = breaker.NewRegistry(func(backendID string) breaker.Settings {
		s := resolver.BackendSettings(backendID)
		return breaker.Settings{
			ErrorThreshold: s.ErrorThreshold,
			Cooldown:       time.Duration(s.CooldownMS) * time.Millisecond,
		}
	})
	r.gates = gate.NewRegistry(func(backendID string) int {
		return resolver.BackendSettings(backendID).MaxConcurrency
	})
	r.scheduler = hedge.NewScheduler(adapters, r.breakers, r.gates, r.logger)
	return r
}

// Route dispatches one generate request for the role and returns either a
// single normalized success or a single aggregated failure enumerating
// every candidate's disposition. An unknown role fails fast with
// registry.ErrUnknownRole before any attempt is made.
func (r *Router) Route(ctx context.Context, roleID string, prompt adapter.Prompt) (*RouteResult, error) {
	role, err := r.resolver.Resolve(roleID)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	start := time.Now()

	budgetCtx, cancel := context.WithTimeout(ctx, role.TotalBudget)
	defer cancel()

	winner, dispositions, err := r.scheduler.Run(budgetCtx, role, prompt)
	elapsed := time.Since(start)

	if err != nil {
		result := &RouteResult{
			OK:        false,
			RequestID: requestID,
			Role:      roleID,
			Elapsed:   elapsed,
			Errors:    candidateErrors(dispositions),
		}
		r.logger.Warn("route failed",
			zap.String("request_id", requestID),
			zap.String("role", roleID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return result, fmt.Errorf("route %s: %w", roleID, err)
	}

	r.logger.Info("route resolved",
		zap.String("request_id", requestID),
		zap.String("role", roleID),
		zap.String("backend", winner.Candidate.BackendID),
		zap.String("model", winner.Candidate.Model),
		zap.Duration("elapsed", elapsed))

	return &RouteResult{
		OK:        true,
		RequestID: requestID,
		Role:      roleID,
		Backend:   winner.Candidate.BackendID,
		Model:     winner.Candidate.Model,
		Output:    winner.Result.Output,
		Citations: winner.Result.Citations,
		Usage:     winner.Result.Usage,
		Elapsed:   elapsed,
	}, nil
}

// Health returns the current breaker status per backend.
func (r *Router) Health() map[string]breaker.Status {
	return r.breakers.Snapshot()
}
