package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/zen-systems/hedgegate/pkg/config"
)

func testTable() *config.RoleTable {
	return &config.RoleTable{
		Roles: map[string]config.RoleSpec{
			"strategist": {
				TotalBudgetMS:     9000,
				HedgeDelayMS:      1000,
				FallbackStaggerMS: 500,
				Candidates: []config.CandidateSpec{
					{Model: "claude-sonnet-4-20250514", TimeoutMS: 6000, Temperature: 0.7},
					{Model: "gpt-5.2-thinking", TimeoutMS: 6000, ReasoningEffort: "high"},
					{Model: "gemini-2.0-pro", TimeoutMS: 5000, MaxOutputTokens: 2048},
				},
			},
		},
		Backends: map[string]config.BackendSettings{
			"anthropic": {MaxConcurrency: 4, ErrorThreshold: 3, CooldownMS: 30000},
		},
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(StaticTable{RoleTable: testTable()})

	role, err := r.Resolve("strategist")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if role.ID != "strategist" {
		t.Errorf("role id: got %q", role.ID)
	}
	if role.TotalBudget != 9*time.Second {
		t.Errorf("total budget: got %v", role.TotalBudget)
	}
	if role.HedgeDelay != time.Second {
		t.Errorf("hedge delay: got %v", role.HedgeDelay)
	}
	if role.FallbackStagger != 500*time.Millisecond {
		t.Errorf("fallback stagger: got %v", role.FallbackStagger)
	}
	if len(role.Candidates) != 3 {
		t.Fatalf("candidates: got %d", len(role.Candidates))
	}

	first := role.Candidates[0]
	if first.Family != FamilyAnthropic || first.BackendID != "anthropic" {
		t.Errorf("first candidate family: got %q/%q", first.Family, first.BackendID)
	}
	if first.Timeout != 6*time.Second {
		t.Errorf("first candidate timeout: got %v", first.Timeout)
	}
	if first.Params.Temperature != 0.7 {
		t.Errorf("first candidate temperature: got %v", first.Params.Temperature)
	}
	if role.Candidates[1].Params.ReasoningEffort != "high" {
		t.Errorf("second candidate effort: got %q", role.Candidates[1].Params.ReasoningEffort)
	}
	if role.Candidates[2].Family != FamilyGoogle {
		t.Errorf("third candidate family: got %q", role.Candidates[2].Family)
	}
	if role.Candidates[2].Params.MaxOutputTokens != 2048 {
		t.Errorf("third candidate max tokens: got %d", role.Candidates[2].Params.MaxOutputTokens)
	}
}

func TestResolveUnknownRole(t *testing.T) {
	r := NewResolver(StaticTable{RoleTable: testTable()})

	if _, err := r.Resolve("oracle"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestResolveNilTable(t *testing.T) {
	r := NewResolver(StaticTable{})

	if _, err := r.Resolve("strategist"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestRolesSorted(t *testing.T) {
	table := testTable()
	table.Roles["validator"] = config.RoleSpec{
		Candidates: []config.CandidateSpec{{Model: "gemini-2.0-flash-001", TimeoutMS: 3000}},
	}
	table.Roles["planner"] = config.RoleSpec{
		Candidates: []config.CandidateSpec{{Model: "gpt-5.2-pro", TimeoutMS: 4000}},
	}
	r := NewResolver(StaticTable{RoleTable: table})

	got := r.Roles()
	want := []string{"planner", "strategist", "validator"}
	if len(got) != len(want) {
		t.Fatalf("roles: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roles: got %v, want %v", got, want)
		}
	}
}

func TestBackendSettings(t *testing.T) {
	r := NewResolver(StaticTable{RoleTable: testTable()})

	anthropic := r.BackendSettings("anthropic")
	if anthropic.MaxConcurrency != 4 || anthropic.ErrorThreshold != 3 {
		t.Errorf("configured backend: got %+v", anthropic)
	}

	// Unknown backends get defaults rather than zeros.
	local := r.BackendSettings("local")
	if local.MaxConcurrency == 0 || local.ErrorThreshold == 0 || local.CooldownMS == 0 {
		t.Errorf("default backend settings missing: %+v", local)
	}
}
