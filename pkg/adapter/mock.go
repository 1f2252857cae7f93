package adapter

import (
	"context"
	"fmt"
	"time"
)

// MockAdapter returns deterministic responses for local runs and tests.
// A non-zero Delay is honored cooperatively: the call returns ctx.Err()
// if cancelled before the delay elapses.
type MockAdapter struct {
	responses       map[string]string
	defaultResponse string
	Delay           time.Duration
	Err             error
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Call returns a deterministic result for the prompt.
func (a *MockAdapter) Call(ctx context.Context, model string, _ Params, prompt Prompt) (*Result, error) {
	start := time.Now()

	if a.Delay > 0 {
		timer := time.NewTimer(a.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if a.Err != nil {
		return nil, a.Err
	}

	if model == "" {
		model = "mock-1"
	}
	output, ok := a.responses[prompt.User]
	if !ok {
		output = fmt.Sprintf("%s\n%s", a.defaultResponse, prompt.User)
	}
	return &Result{
		Output:  output,
		Model:   model,
		Latency: time.Since(start),
	}, nil
}
