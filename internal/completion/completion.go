// Package completion generates free text from a prompt through a language
// model. OpenAI chat completions and Ollama generate are supported.
package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/scholarrag/internal/config"
)

// Provider names
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	DefaultTimeout = 120 * time.Second
)

// ErrProvider is the sentinel every provider failure wraps
var ErrProvider = errors.New("completion provider failed")

// Completer produces a completion for a prompt
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Provider() string
	Model() string
}

// ProviderError describes a failed completion call
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both ErrProvider and the underlying cause
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProvider}
	}
	return []error{ErrProvider, e.Err}
}

// statusFailure reads a bounded error body from a non-200 response
func statusFailure(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

// New builds a Completer from configuration. An empty provider selects OpenAI
// when an API key is configured and Ollama otherwise.
func New(cfg config.CompletionConfig) (Completer, error) {
	switch DetectProvider(cfg) {
	case ProviderOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case ProviderOllama:
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}
		return NewOllama(OllamaConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

// DetectProvider returns the provider New would build for cfg
func DetectProvider(cfg config.CompletionConfig) string {
	if p := strings.ToLower(strings.TrimSpace(cfg.Provider)); p != "" {
		return p
	}
	if cfg.OpenAIAPIKey != "" {
		return ProviderOpenAI
	}
	return ProviderOllama
}
