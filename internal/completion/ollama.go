package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Ollama defaults
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.2"
)

// OllamaConfig configures the Ollama generate client
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Ollama calls /api/generate without streaming
type Ollama struct {
	client  *http.Client
	baseURL string
	model   string
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllama creates an Ollama completer
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Ollama{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: o.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", &ProviderError{Provider: ProviderOllama, Message: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: ProviderOllama, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: ProviderOllama, Message: "send request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", statusFailure(ProviderOllama, resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ProviderError{Provider: ProviderOllama, Message: "decode response", Err: err}
	}
	if out.Error != "" {
		return "", &ProviderError{Provider: ProviderOllama, Message: out.Error}
	}
	return strings.TrimSpace(out.Response), nil
}

func (o *Ollama) Provider() string { return ProviderOllama }
func (o *Ollama) Model() string    { return o.model }
