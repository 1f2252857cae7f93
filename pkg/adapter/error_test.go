package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsDefinitive(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		definitive bool
	}{
		{
			name:       "nil error",
			err:        nil,
			definitive: false,
		},
		{
			name:       "context cancelled",
			err:        context.Canceled,
			definitive: false,
		},
		{
			name:       "context deadline",
			err:        context.DeadlineExceeded,
			definitive: false,
		},
		{
			name:       "wrapped cancellation",
			err:        fmt.Errorf("anthropic API error: %w", context.Canceled),
			definitive: false,
		},
		{
			name:       "network timeout",
			err:        timeoutErr{},
			definitive: false,
		},
		{
			name:       "auth failure",
			err:        &BackendError{Status: 401, Err: errors.New("invalid key")},
			definitive: true,
		},
		{
			name:       "rate limit",
			err:        &BackendError{Status: 429, Err: errors.New("rate limited")},
			definitive: true,
		},
		{
			name:       "malformed response",
			err:        &BackendError{Err: errors.New("returned no choices")},
			definitive: true,
		},
		{
			name:       "plain provider error",
			err:        errors.New("openai API error: bad request"),
			definitive: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDefinitive(tt.err); got != tt.definitive {
				t.Fatalf("IsDefinitive(%v) = %v, want %v", tt.err, got, tt.definitive)
			}
		})
	}
}

func TestBackendErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &BackendError{Status: 500, Err: inner}

	if !errors.Is(err, inner) {
		t.Fatalf("expected BackendError to unwrap to inner error")
	}
	if err.Error() != "boom" {
		t.Fatalf("unexpected message: %q", err.Error())
	}

	bare := &BackendError{Status: 503}
	if bare.Error() != "backend error (status=503)" {
		t.Fatalf("unexpected bare message: %q", bare.Error())
	}
}
