package registry

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zen-systems/hedgegate/pkg/adapter"
	"github.com/zen-systems/hedgegate/pkg/config"
)

// ErrUnknownRole is returned when a role has no configuration. It is the
// one failure surfaced before any attempt is made.
var ErrUnknownRole = errors.New("unknown role")

// Candidate is one resolved backend attempt within a role's ordered list.
type Candidate struct {
	BackendID string
	Family    Family
	Model     string
	Params    adapter.Params
	Timeout   time.Duration
}

// Role is a fully resolved role configuration.
type Role struct {
	ID              string
	Candidates      []Candidate
	TotalBudget     time.Duration
	HedgeDelay      time.Duration
	FallbackStagger time.Duration
}

// TableSource supplies the current role table snapshot. *config.Store
// satisfies it; a plain table can be wrapped with StaticTable.
type TableSource interface {
	Table() *config.RoleTable
}

// StaticTable adapts a fixed RoleTable into a TableSource.
type StaticTable struct {
	RoleTable *config.RoleTable
}

// Table returns the wrapped table.
func (s StaticTable) Table() *config.RoleTable {
	return s.RoleTable
}

// Resolver maps role ids to resolved candidate lists. Resolution is pure
// given the current table snapshot: the same role always yields the same
// ordered list until the whole table is replaced.
type Resolver struct {
	source TableSource
}

// NewResolver creates a resolver over a table source.
func NewResolver(source TableSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the resolved configuration for a role.
func (r *Resolver) Resolve(roleID string) (*Role, error) {
	table := r.source.Table()
	if table == nil {
		return nil, fmt.Errorf("%w: %q (no role table loaded)", ErrUnknownRole, roleID)
	}
	spec, ok := table.Roles[roleID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, roleID)
	}

	role := &Role{
		ID:              roleID,
		Candidates:      make([]Candidate, 0, len(spec.Candidates)),
		TotalBudget:     time.Duration(spec.TotalBudgetMS) * time.Millisecond,
		HedgeDelay:      time.Duration(spec.HedgeDelayMS) * time.Millisecond,
		FallbackStagger: time.Duration(spec.FallbackStaggerMS) * time.Millisecond,
	}
	for _, c := range spec.Candidates {
		family := DetectFamily(c.Model)
		role.Candidates = append(role.Candidates, Candidate{
			BackendID: string(family),
			Family:    family,
			Model:     c.Model,
			Params: adapter.Params{
				Temperature:     c.Temperature,
				ReasoningEffort: c.ReasoningEffort,
				MaxOutputTokens: c.MaxOutputTokens,
			},
			Timeout: time.Duration(c.TimeoutMS) * time.Millisecond,
		})
	}
	return role, nil
}

// Roles returns the sorted list of configured role ids.
func (r *Resolver) Roles() []string {
	table := r.source.Table()
	if table == nil {
		return nil
	}
	roles := make([]string, 0, len(table.Roles))
	for name := range table.Roles {
		roles = append(roles, name)
	}
	sort.Strings(roles)
	return roles
}

// BackendSettings returns the admission/breaker tunables for a backend.
func (r *Resolver) BackendSettings(backendID string) config.BackendSettings {
	return r.source.Table().Backend(backendID)
}
