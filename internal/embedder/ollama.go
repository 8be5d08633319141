package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OllamaProvider embeds text through a local Ollama server's /api/embeddings
// endpoint. Ollama has no batch API, so batches are sent one text at a time.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewOllamaProvider creates an Ollama embedder. dim must match the model's
// output size; zero selects the nomic-embed-text dimension.
func NewOllamaProvider(baseURL, model string, dim int, cache *Cache) *OllamaProvider {
	if baseURL == "" {
		baseURL = OllamaBaseURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if dim <= 0 {
		dim = OllamaDimension
	}
	return &OllamaProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimension:  dim,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      cache,
	}
}

func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.model
	}
	if o.cache != nil {
		if vector, ok := o.cache.Lookup(model, req.Text); ok {
			return o.embedding(vector, model), nil
		}
	}

	vector, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() ([]float32, error) {
		return o.callAPI(ctx, req.Text, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", ErrProviderFailed, err)
	}
	if o.cache != nil {
		o.cache.Store(model, req.Text, vector)
	}
	return o.embedding(vector, model), nil
}

func (o *OllamaProvider) embedding(vector []float32, model string) *Embedding {
	return &Embedding{
		Vector:    vector,
		Dimension: len(vector),
		Provider:  ProviderOllama,
		Model:     model,
	}
}

func (o *OllamaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := validateBatch(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := o.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	model := req.Model
	if model == "" {
		model = o.model
	}
	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderOllama,
		Model:      model,
	}, nil
}

func (o *OllamaProvider) callAPI(ctx context.Context, text, model string) ([]float32, error) {
	body, err := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: model, Prompt: text})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, statusError(resp.StatusCode, bodyBytes)
	}

	var apiResp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Embedding) != o.dimension {
		return nil, permanent(fmt.Errorf("ollama returned dimension %d, expected %d",
			len(apiResp.Embedding), o.dimension))
	}

	vector := make([]float32, len(apiResp.Embedding))
	for i, v := range apiResp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

func (o *OllamaProvider) Dimension() int {
	return o.dimension
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
