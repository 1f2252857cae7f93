package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func compatServer(t *testing.T, handler http.HandlerFunc) *CompatAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := NewCompatAdapter("local", srv.URL, "test-key")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return a
}

func TestCompatAdapterCall(t *testing.T) {
	a := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}

		var req compatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "hello"}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3},
		})
	})

	result, err := a.Call(context.Background(), "local-1", Params{Temperature: 0.2}, Prompt{
		System: "be brief",
		User:   "say hello",
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result.Output != "hello" {
		t.Fatalf("unexpected output %q", result.Output)
	}
	if result.Usage.PromptTokens != 12 || result.Usage.CompletionTokens != 3 {
		t.Fatalf("unexpected usage %+v", result.Usage)
	}
}

func TestCompatAdapterErrorStatus(t *testing.T) {
	a := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "slow down", "type": "rate_limit", "code": "429"},
		})
	})

	_, err := a.Call(context.Background(), "local-1", Params{}, Prompt{User: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BackendError, got %T", err)
	}
	if be.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", be.Status)
	}
	if !IsDefinitive(err) {
		t.Fatal("rate limit should classify as definitive")
	}
}

func TestCompatAdapterRespectsCancellation(t *testing.T) {
	a := compatServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read; without
		// this the client disconnect is never noticed, r.Context() never
		// fires, and srv.Close deadlocks waiting on this handler.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := a.Call(ctx, "local-1", Params{}, Prompt{User: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsDefinitive(err) {
		t.Fatalf("cancellation must not classify as definitive: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("call did not abort promptly: %s", elapsed)
	}
}
