package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider names
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text"

	JinaDimension   = 1024
	OpenAIDimension = 1536
	OllamaDimension = 768
	LocalDimension  = 384

	JinaBaseURL   = "https://api.jina.ai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"
	OllamaBaseURL = "http://localhost:11434"

	DefaultBatchSize = 50
	MaxBatchSize     = 100

	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	requestTimeout = 30 * time.Second
)

// RemoteProvider calls an OpenAI-compatible /embeddings endpoint. Jina and
// OpenAI share the request and response shapes.
type RemoteProvider struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewJinaProvider creates a Jina AI embedder
func NewJinaProvider(apiKey, model string, cache *Cache) (*RemoteProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: JINA_API_KEY not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultJinaModel
	}
	return newRemoteProvider(ProviderJina, JinaBaseURL, apiKey, model, JinaDimension, cache), nil
}

// NewOpenAIProvider creates an OpenAI embedder
func NewOpenAIProvider(apiKey, model string, cache *Cache) (*RemoteProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newRemoteProvider(ProviderOpenAI, OpenAIBaseURL, apiKey, model, OpenAIDimension, cache), nil
}

func newRemoteProvider(name, baseURL, apiKey, model string, dim int, cache *Cache) *RemoteProvider {
	return &RemoteProvider{
		name:      name,
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		dimension: dim,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		cache: cache,
	}
}

// WithBaseURL points the provider at another host, e.g. a proxy or test server
func (p *RemoteProvider) WithBaseURL(baseURL string) *RemoteProvider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

func (p *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

// GenerateBatch serves cached texts locally and sends only the misses upstream
func (p *RemoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := validateBatch(req); err != nil {
		return nil, err
	}
	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	out := make([]*Embedding, len(req.Texts))
	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range req.Texts {
		if p.cache != nil {
			if vector, ok := p.cache.Lookup(model, text); ok {
				out[i] = &Embedding{Vector: vector, Dimension: len(vector), Provider: p.name, Model: model}
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		fetched, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() ([]*Embedding, error) {
			return p.callAPI(ctx, missTexts, model)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProviderFailed, p.name, err)
		}
		if len(fetched) != len(missTexts) {
			return nil, fmt.Errorf("%w: %s returned %d embeddings for %d texts",
				ErrProviderFailed, p.name, len(fetched), len(missTexts))
		}
		for j, emb := range fetched {
			if p.cache != nil {
				p.cache.Store(model, missTexts[j], emb.Vector)
			}
			out[missIdx[j]] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *RemoteProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	body, err := json.Marshal(map[string]interface{}{
		"input": texts,
		"model": model,
	})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, statusError(resp.StatusCode, bodyBytes)
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		pos := data.Index
		if pos < 0 || pos >= len(embeddings) || embeddings[pos] != nil {
			pos = i
		}
		if len(data.Embedding) != p.dimension {
			return nil, permanent(fmt.Errorf("%s returned dimension %d, expected %d",
				p.name, len(data.Embedding), p.dimension))
		}
		embeddings[pos] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     model,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("missing embedding at index %d", i)
		}
	}
	return embeddings, nil
}

func (p *RemoteProvider) Dimension() int {
	return p.dimension
}

func (p *RemoteProvider) Provider() string {
	return p.name
}

func (p *RemoteProvider) Model() string {
	return p.model
}

func (p *RemoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
