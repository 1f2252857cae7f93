package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIAdapter implements the Adapter interface for OpenAI models.
type OpenAIAdapter struct {
	client openai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// isReasoningModel reports whether the model takes a reasoning effort
// instead of a temperature.
func isReasoningModel(model string) bool {
	return strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4") ||
		strings.HasPrefix(model, "gpt-5")
}

// Call sends a prompt to OpenAI and returns the normalized result.
func (a *OpenAIAdapter) Call(ctx context.Context, model string, params Params, prompt Prompt) (*Result, error) {
	start := time.Now()

	var messages []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.User))

	req := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokensOrDefault(params))),
	}
	if isReasoningModel(model) {
		effort := params.ReasoningEffort
		if effort == "" {
			effort = "medium"
		}
		req.ReasoningEffort = shared.ReasoningEffort(effort)
	} else if params.Temperature > 0 {
		req.Temperature = openai.Float(params.Temperature)
	}

	resp, err := a.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, &BackendError{Err: fmt.Errorf("openai returned no choices")}
	}

	return &Result{
		Output: resp.Choices[0].Message.Content,
		Model:  model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
		},
		Latency: time.Since(start),
	}, nil
}
