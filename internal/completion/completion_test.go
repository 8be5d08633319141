package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scholarrag/internal/config"
)

func TestOpenAI_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOpenAIModel, req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, systemPrompt, req.Messages[0].Content)
		assert.Equal(t, "summarize this", req.Messages[1].Content)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
		assert.Equal(t, 500, req.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  A summary [1].  "}}]}`))
	}))
	defer server.Close()

	c, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "summarize this")
	require.NoError(t, err)
	assert.Equal(t, "A summary [1].", out)
}

func TestOpenAI_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewOpenAI(OpenAIConfig{})
		assert.ErrorIs(t, err, ErrProvider)
	})

	t.Run("http status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("rate limited"))
		}))
		defer server.Close()

		c, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProvider)

		var pe *ProviderError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
		assert.Contains(t, pe.Error(), "rate limited")
	})

	t.Run("no choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}))
		defer server.Close()

		c, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
		require.NoError(t, err)
		_, err = c.Complete(context.Background(), "p")
		assert.ErrorIs(t, err, ErrProvider)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		c, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
		require.NoError(t, err)
		_, err = c.Complete(context.Background(), "p")
		assert.ErrorIs(t, err, ErrProvider)
	})
}

func TestOllama_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOllamaModel, req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, "prompt text", req.Prompt)

		_, _ = w.Write([]byte(`{"response":"\nOverview [2]\n","done":true}`))
	}))
	defer server.Close()

	c := NewOllama(OllamaConfig{BaseURL: server.URL + "/"})
	out, err := c.Complete(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "Overview [2]", out)
	assert.Equal(t, ProviderOllama, c.Provider())
}

func TestOllama_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	_, err := NewOllama(OllamaConfig{BaseURL: server.URL}).Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "model not found")
}

func TestNew(t *testing.T) {
	c, err := New(config.CompletionConfig{OpenAIAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, c.Provider())
	assert.Equal(t, DefaultOpenAIModel, c.Model())

	c, err = New(config.CompletionConfig{})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, c.Provider())

	c, err = New(config.CompletionConfig{Provider: "ollama", Model: "mistral", OpenAIAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, c.Provider())
	assert.Equal(t, "mistral", c.Model())

	_, err = New(config.CompletionConfig{Provider: "anthropic"})
	assert.Error(t, err)
}
