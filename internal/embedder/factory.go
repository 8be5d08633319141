package embedder

import (
	"fmt"
	"strings"

	"github.com/dshills/scholarrag/internal/config"
)

// New creates an embedder from configuration. An empty provider auto-detects:
// Jina if its key is set, then OpenAI, then the offline local provider.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch DetectProvider(cfg) {
	case ProviderJina:
		return NewJinaProvider(cfg.JinaAPIKey, cfg.Model, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.Model, cache)
	case ProviderOllama:
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model, 0, cache), nil
	case ProviderLocal:
		return NewLocalProvider(cache), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider New would build for cfg
func DetectProvider(cfg config.EmbedderConfig) string {
	if p := strings.ToLower(strings.TrimSpace(cfg.Provider)); p != "" {
		return p
	}
	if cfg.JinaAPIKey != "" {
		return ProviderJina
	}
	if cfg.OpenAIAPIKey != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
