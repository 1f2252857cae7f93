package adapter

import (
	"context"
	"time"
)

// Prompt carries the rendered prompt for a generate call. Prompt
// construction is the caller's responsibility; adapters only transport it.
type Prompt struct {
	System string
	User   string
}

// Params holds per-call request parameters. Temperature and ReasoningEffort
// are mutually exclusive: reasoning model families ignore Temperature and
// the rest ignore ReasoningEffort. Each adapter decides which applies.
type Params struct {
	Temperature     float64
	ReasoningEffort string
	MaxOutputTokens int
}

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Result is the normalized outcome of a successful backend call.
type Result struct {
	Output    string        `json:"output"`
	Citations []string      `json:"citations,omitempty"`
	Model     string        `json:"model"`
	Usage     Usage         `json:"usage"`
	Latency   time.Duration `json:"latency"`
}

// Adapter normalizes one backend's request/response shape into a uniform
// call contract. Implementations must respect ctx cancellation by aborting
// the underlying network call promptly, and must not touch shared routing
// state; health bookkeeping belongs to the scheduler.
type Adapter interface {
	// Call sends a prompt to the model and returns a normalized result.
	Call(ctx context.Context, model string, params Params, prompt Prompt) (*Result, error)

	// Name returns the adapter's identifier.
	Name() string
}

const defaultMaxOutputTokens = 4096

func maxTokensOrDefault(p Params) int {
	if p.MaxOutputTokens > 0 {
		return p.MaxOutputTokens
	}
	return defaultMaxOutputTokens
}
