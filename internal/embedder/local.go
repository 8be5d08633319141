package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var localTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// LocalProvider is an offline embedder. It hashes lowercase word tokens into
// LocalDimension buckets with sublinear term weighting and L2-normalizes the
// result. Texts sharing words score a positive cosine; unrelated texts score
// zero. No network or model files are needed.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates the hashed bag-of-words embedder
func NewLocalProvider(cache *Cache) *LocalProvider {
	return &LocalProvider{
		model: "hashed-bow-384",
		cache: cache,
	}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var vector []float32
	if l.cache != nil {
		vector, _ = l.cache.Lookup(l.model, req.Text)
	}
	if vector == nil {
		vector = HashedVector(req.Text, LocalDimension)
		if l.cache != nil {
			l.cache.Store(l.model, req.Text, vector)
		}
	}

	return &Embedding{
		Vector:    vector,
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
	}, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := validateBatch(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// HashedVector builds the bag-of-words vector used by LocalProvider
func HashedVector(text string, dim int) []float32 {
	counts := make(map[int]int)
	for _, tok := range localTokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		counts[int(h.Sum32()%uint32(dim))]++
	}

	vector := make([]float32, dim)
	for bucket, n := range counts {
		vector[bucket] = float32(1 + math.Log(float64(n)))
	}
	return NormalizeVector(vector)
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / norm)
	}

	return result
}
