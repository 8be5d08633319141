package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// OpenAI defaults
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"

	systemPrompt       = "You are a helpful research assistant."
	defaultTemperature = 0.7
	defaultMaxTokens   = 500
)

// OpenAIConfig configures the OpenAI chat-completions client
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI calls /chat/completions with a fixed research-assistant system prompt
type OpenAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAI creates an OpenAI completer; an API key is required
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, &ProviderError{Provider: ProviderOpenAI, Message: "API key is required"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAI{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Complete sends prompt as the user message and returns the first choice, trimmed
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "send request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", statusFailure(ProviderOpenAI, resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "decode response", Err: err}
	}
	if out.Error != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: out.Error.Message}
	}
	if len(out.Choices) == 0 {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "no choices returned", Err: errors.New("empty response")}
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func (o *OpenAI) Provider() string { return ProviderOpenAI }
func (o *OpenAI) Model() string    { return o.model }
