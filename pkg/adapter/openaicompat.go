package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CompatAdapter implements the Adapter interface for self-hosted backends
// exposing an OpenAI-compatible chat completions API.
type CompatAdapter struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// compatRequest represents the OpenAI-compatible request format.
type compatRequest struct {
	Model       string          `json:"model"`
	Messages    []compatMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

// compatMessage represents a chat message.
type compatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// compatResponse represents the OpenAI-compatible response format.
type compatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewCompatAdapter creates an adapter for an OpenAI-compatible endpoint.
func NewCompatAdapter(name, baseURL, apiKey string) (*CompatAdapter, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if name == "" {
		name = "local"
	}

	return &CompatAdapter{
		name:       name,
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the adapter identifier.
func (a *CompatAdapter) Name() string {
	return a.name
}

// Call sends a prompt to the endpoint and returns the normalized result.
func (a *CompatAdapter) Call(ctx context.Context, model string, params Params, prompt Prompt) (*Result, error) {
	start := time.Now()

	var messages []compatMessage
	if prompt.System != "" {
		messages = append(messages, compatMessage{Role: "system", Content: prompt.System})
	}
	messages = append(messages, compatMessage{Role: "user", Content: prompt.User})

	reqBody := compatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokensOrDefault(params),
		Temperature: params.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s API request failed: %w", a.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var compatResp compatResponse
	if err := json.Unmarshal(body, &compatResp); err != nil {
		return nil, &BackendError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("failed to parse response: %w", err),
		}
	}

	if compatResp.Error != nil {
		return nil, &BackendError{
			Status: resp.StatusCode,
			Code:   compatResp.Error.Code,
			Err: fmt.Errorf("%s API error: %s (type: %s)",
				a.name, compatResp.Error.Message, compatResp.Error.Type),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &BackendError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s API returned status %d: %s", a.name, resp.StatusCode, string(body)),
		}
	}

	if len(compatResp.Choices) == 0 {
		return nil, &BackendError{Err: fmt.Errorf("%s returned no choices", a.name)}
	}

	return &Result{
		Output: compatResp.Choices[0].Message.Content,
		Model:  model,
		Usage: Usage{
			PromptTokens:     compatResp.Usage.PromptTokens,
			CompletionTokens: compatResp.Usage.CompletionTokens,
		},
		Latency: time.Since(start),
	}, nil
}
