package embedder

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 10000

// Cache keeps recently embedded vectors keyed by model and text. Abstract
// chunks are re-embedded on every re-ingestion, so repeated text is common.
type Cache struct {
	vectors *lru.Cache[string, []float32]
}

// NewCache creates a cache holding at most size vectors
func NewCache(size int) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	vectors, err := lru.New[string, []float32](size)
	if err != nil {
		vectors, _ = lru.New[string, []float32](defaultCacheSize)
	}
	return &Cache{vectors: vectors}
}

// Lookup returns a copy of the vector stored for text under model
func (c *Cache) Lookup(model, text string) ([]float32, bool) {
	v, ok := c.vectors.Get(cacheKey(model, text))
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Store records vector for text under model, evicting the least recently used entry when full
func (c *Cache) Store(model, text string, vector []float32) {
	v := make([]float32, len(vector))
	copy(v, vector)
	c.vectors.Add(cacheKey(model, text), v)
}

func (c *Cache) Len() int {
	return c.vectors.Len()
}

func (c *Cache) Purge() {
	c.vectors.Purge()
}

func cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(h[:])
}
