package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"nimbus/internal/config"
	"nimbus/internal/types"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIClient calls the OpenAI chat completions API. It implements the
// qna.LLMClient capability: a single system+user exchange returning text.
type OpenAIClient struct {
	base        *BaseClient
	apiKey      types.SecretString
	model       string
	baseURL     string
	temperature float32
}

// NewOpenAIClient creates an OpenAI client from configuration. Callers must
// only construct one when cfg.Enabled() is true.
func NewOpenAIClient(cfg config.LLMConfig, base *BaseClient) *OpenAIClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		base:        base,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke sends a system instruction and user message and returns the
// model's reply text. Errors carry upstream_* codes so the caller's
// fallback and status mapping stay uniform.
func (c *OpenAIClient) Invoke(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	resp, err := c.base.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())
		return req, nil
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			return "", types.NewAppError(types.ErrCodeUpstreamRateLimited, "language model rate limited", err)
		}
		return "", types.NewAppError(types.ErrCodeUpstreamLLM, "language model unavailable", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", types.NewAppError(types.ErrCodeUpstreamLLM,
			fmt.Sprintf("language model returned status %d", resp.StatusCode), nil)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamLLM, "invalid language model response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", types.NewAppError(types.ErrCodeUpstreamLLM, "language model returned no choices", nil)
	}

	return parsed.Choices[0].Message.Content, nil
}
