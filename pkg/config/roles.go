package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoleTable holds the full routing configuration: one ordered candidate
// list per role plus per-backend health and admission tunables. A table is
// immutable once built; hot reload replaces the whole table atomically.
type RoleTable struct {
	Roles    map[string]RoleSpec        `yaml:"roles"`
	Backends map[string]BackendSettings `yaml:"backends"`
}

// RoleSpec configures one logical role.
type RoleSpec struct {
	Candidates        []CandidateSpec `yaml:"candidates"`
	TotalBudgetMS     int             `yaml:"total_budget_ms,omitempty"`
	HedgeDelayMS      int             `yaml:"hedge_delay_ms,omitempty"`
	FallbackStaggerMS int             `yaml:"fallback_stagger_ms,omitempty"`
}

// CandidateSpec configures one backend attempt within a role's ordered list.
// The backend family is derived from the model identifier at resolve time.
type CandidateSpec struct {
	Model           string  `yaml:"model"`
	TimeoutMS       int     `yaml:"timeout_ms,omitempty"`
	Temperature     float64 `yaml:"temperature,omitempty"`
	ReasoningEffort string  `yaml:"reasoning_effort,omitempty"`
	MaxOutputTokens int     `yaml:"max_output_tokens,omitempty"`
}

// knownBackendIDs are the backend families with a built-in adapter.
var knownBackendIDs = []string{"anthropic", "openai", "google", "local"}

// BackendSettings holds per-backend admission and breaker tunables.
type BackendSettings struct {
	MaxConcurrency int `yaml:"max_concurrency,omitempty"`
	ErrorThreshold int `yaml:"error_threshold,omitempty"`
	CooldownMS     int `yaml:"cooldown_ms,omitempty"`
}

// LoadRoleTable reads a role table from a YAML file, applies environment
// overrides and defaults, and validates the result.
func LoadRoleTable(path string) (*RoleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var table RoleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, err
	}

	applyEnvOverrides(&table)
	applyRoleDefaults(&table)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// DefaultRoleTable returns the built-in role table: the three roles the
// original deployment shipped with, each with a cross-provider fallback
// chain so one slow provider never stalls a request.
func DefaultRoleTable() *RoleTable {
	table := &RoleTable{
		Roles: map[string]RoleSpec{
			"strategist": {
				Candidates: []CandidateSpec{
					{Model: "claude-sonnet-4-20250514", TimeoutMS: 6000, Temperature: 0.7},
					{Model: "gpt-5.2-thinking", TimeoutMS: 6000, ReasoningEffort: "medium"},
					{Model: "gemini-2.0-pro", TimeoutMS: 6000, Temperature: 0.7},
				},
				TotalBudgetMS: 8000,
			},
			"planner": {
				Candidates: []CandidateSpec{
					{Model: "gpt-5.2-pro", TimeoutMS: 10000, ReasoningEffort: "high", MaxOutputTokens: 16000},
					{Model: "claude-opus-4-20250514", TimeoutMS: 10000, Temperature: 0.2, MaxOutputTokens: 16000},
				},
				TotalBudgetMS: 15000,
				HedgeDelayMS:  2500,
			},
			"validator": {
				Candidates: []CandidateSpec{
					{Model: "gemini-2.0-flash-001", TimeoutMS: 4000, Temperature: 0.2},
					{Model: "gpt-5.2-instant", TimeoutMS: 4000},
				},
				TotalBudgetMS: 6000,
				HedgeDelayMS:  800,
			},
		},
	}

	applyEnvOverrides(table)
	applyRoleDefaults(table)
	return table
}

// applyEnvOverrides rewrites the table from <ROLE>_MODEL-style environment
// keys so operators can swap models without touching the file.
func applyEnvOverrides(table *RoleTable) {
	if table == nil {
		return
	}

	for name, role := range table.Roles {
		prefix := envKey(name)
		if model := os.Getenv(prefix + "_MODEL"); model != "" && len(role.Candidates) > 0 {
			role.Candidates[0].Model = model
		}
		if v, ok := envInt(prefix + "_TIMEOUT_MS"); ok && len(role.Candidates) > 0 {
			role.Candidates[0].TimeoutMS = v
		}
		if v, ok := envInt(prefix + "_BUDGET_MS"); ok {
			role.TotalBudgetMS = v
		}
		if v, ok := envInt(prefix + "_HEDGE_DELAY_MS"); ok {
			role.HedgeDelayMS = v
		}
		table.Roles[name] = role
	}

	// Backend overrides apply to the known families as well as any
	// backend the file declares, so a table with no backends: section
	// (the default table included) still honors them.
	names := make(map[string]bool, len(table.Backends)+len(knownBackendIDs))
	for name := range table.Backends {
		names[name] = true
	}
	for _, name := range knownBackendIDs {
		names[name] = true
	}
	for name := range names {
		backend, declared := table.Backends[name]
		prefix := envKey(name)
		hit := false
		if v, ok := envInt(prefix + "_MAX_CONCURRENCY"); ok {
			backend.MaxConcurrency = v
			hit = true
		}
		if v, ok := envInt(prefix + "_ERROR_THRESHOLD"); ok {
			backend.ErrorThreshold = v
			hit = true
		}
		if v, ok := envInt(prefix + "_COOLDOWN_MS"); ok {
			backend.CooldownMS = v
			hit = true
		}
		if declared || hit {
			if table.Backends == nil {
				table.Backends = make(map[string]BackendSettings)
			}
			table.Backends[name] = backend
		}
	}
}

func envKey(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func applyRoleDefaults(table *RoleTable) {
	if table == nil {
		return
	}

	for name, role := range table.Roles {
		if role.TotalBudgetMS == 0 {
			role.TotalBudgetMS = 8000
		}
		if role.HedgeDelayMS == 0 {
			role.HedgeDelayMS = 1200
		}
		if role.FallbackStaggerMS == 0 {
			role.FallbackStaggerMS = 600
		}
		table.Roles[name] = role
	}

	if table.Backends == nil {
		table.Backends = make(map[string]BackendSettings)
	}
	for name, backend := range table.Backends {
		table.Backends[name] = backendDefaults(backend)
	}
}

func backendDefaults(b BackendSettings) BackendSettings {
	if b.MaxConcurrency == 0 {
		b.MaxConcurrency = 8
	}
	if b.ErrorThreshold == 0 {
		b.ErrorThreshold = 5
	}
	if b.CooldownMS == 0 {
		b.CooldownMS = 60000
	}
	return b
}

// Backend returns the settings for a backend id, with defaults applied
// for backends the file never mentioned.
func (t *RoleTable) Backend(id string) BackendSettings {
	if t != nil {
		if b, ok := t.Backends[id]; ok {
			return b
		}
	}
	return backendDefaults(BackendSettings{})
}

// Validate checks structural invariants of the table.
func (t *RoleTable) Validate() error {
	if t == nil || len(t.Roles) == 0 {
		return fmt.Errorf("role table has no roles")
	}
	for name, role := range t.Roles {
		if len(role.Candidates) == 0 {
			return fmt.Errorf("role %q has no candidates", name)
		}
		if role.TotalBudgetMS <= 0 {
			return fmt.Errorf("role %q: total_budget_ms must be positive", name)
		}
		for i, c := range role.Candidates {
			if c.Model == "" {
				return fmt.Errorf("role %q: candidate %d has no model", name, i)
			}
			if c.TimeoutMS < 0 {
				return fmt.Errorf("role %q: candidate %d has negative timeout", name, i)
			}
		}
	}
	return nil
}
