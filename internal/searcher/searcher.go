package searcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/scholarrag/internal/embedder"
	"github.com/dshills/scholarrag/internal/logging"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/pkg/types"
)

// Default fusion policy
const (
	DefaultLexicalLimit        = 10
	DefaultLexicalBoost        = 0.05
	DefaultCandidateMultiplier = 3
	MaxK                       = 100
)

// VectorIndex finds the chunks whose embeddings are closest to a query vector.
// Results are ordered by similarity descending, then chunk id ascending.
// EmbeddingDimension reports 0 when no embeddings are stored.
type VectorIndex interface {
	SearchVector(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]storage.VectorResult, error)
	EmbeddingDimension(ctx context.Context) (int, error)
}

// LexicalIndex finds documents whose title, abstract or keywords match a query
type LexicalIndex interface {
	SearchText(ctx context.Context, query string, limit int) ([]storage.TextResult, error)
}

// ChunkResolver loads the chunk text and owning document metadata for chunk ids
type ChunkResolver interface {
	ResolveChunks(ctx context.Context, chunkIDs []int64) (map[int64]types.Hit, error)
}

// Config contains the fusion policy
type Config struct {
	LexicalLimit        int     // Lexical matches considered for the boost
	LexicalBoost        float64 // Added to a chunk's similarity when its document matches lexically
	CandidateMultiplier int     // Vector candidates fetched per requested result
	MinSimilarity       float64 // Vector candidates below this are dropped; 0 disables
}

// DefaultConfig returns the built-in fusion policy
func DefaultConfig() Config {
	return Config{
		LexicalLimit:        DefaultLexicalLimit,
		LexicalBoost:        DefaultLexicalBoost,
		CandidateMultiplier: DefaultCandidateMultiplier,
	}
}

// Searcher coordinates retrieval across the vector and lexical indexes
type Searcher struct {
	vectors  VectorIndex
	lexical  LexicalIndex
	resolver ChunkResolver
	embedder embedder.Embedder
	config   Config
	log      *logging.Logger
}

// NewSearcher creates a Searcher over separate index implementations
func NewSearcher(vectors VectorIndex, lexical LexicalIndex, resolver ChunkResolver,
	emb embedder.Embedder, config Config, log *logging.Logger) *Searcher {

	if config.LexicalLimit <= 0 {
		config.LexicalLimit = DefaultLexicalLimit
	}
	if config.CandidateMultiplier <= 0 {
		config.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Searcher{
		vectors:  vectors,
		lexical:  lexical,
		resolver: resolver,
		embedder: emb,
		config:   config,
		log:      log,
	}
}

// New creates a Searcher backed entirely by one Storage
func New(store storage.Storage, emb embedder.Embedder, config Config, log *logging.Logger) *Searcher {
	return NewSearcher(store, store, store, emb, config, log)
}

// Retrieve returns up to k chunks ranked by boosted similarity. The lexical
// and vector legs run concurrently; a chunk whose document matched lexically
// gains LexicalBoost. Ties break on chunk id ascending.
func (s *Searcher) Retrieve(ctx context.Context, query string, k int) ([]types.Hit, error) {
	startTime := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.ErrEmptyQuery
	}
	if k <= 0 {
		return nil, types.ErrInvalidLimit
	}
	if k > MaxK {
		k = MaxK
	}

	// An empty corpus answers without touching the embedding provider
	dim, err := s.vectors.EmbeddingDimension(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding dimension: %w", err)
	}
	if dim == 0 {
		return []types.Hit{}, nil
	}

	var (
		vectorResults []storage.VectorResult
		lexicalIDs    map[int64]bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := embedder.EmbedQuery(gctx, s.embedder, query)
		if err != nil {
			return fmt.Errorf("failed to generate query embedding: %w", err)
		}
		vectorResults, err = s.vectors.SearchVector(gctx, vec, k*s.config.CandidateMultiplier, s.config.MinSimilarity)
		if err != nil {
			return fmt.Errorf("vector search failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		textResults, err := s.lexical.SearchText(gctx, query, s.config.LexicalLimit)
		if err != nil {
			// The boost is an adjustment; ranking proceeds without it
			s.log.Warn("lexical search failed", "error", err)
			return nil
		}
		lexicalIDs = make(map[int64]bool, len(textResults))
		for _, tr := range textResults {
			lexicalIDs[tr.DocumentID] = true
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(vectorResults) == 0 {
		return []types.Hit{}, nil
	}

	ids := make([]int64, len(vectorResults))
	for i, vr := range vectorResults {
		ids[i] = vr.ChunkID
	}
	meta, err := s.resolver.ResolveChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chunks: %w", err)
	}

	hits := fuse(vectorResults, meta, lexicalIDs, s.config.LexicalBoost)
	if len(hits) > k {
		hits = hits[:k]
	}

	s.log.Debug("retrieved",
		"k", k,
		"candidates", len(vectorResults),
		"lexical_matches", len(lexicalIDs),
		"hits", len(hits),
		"duration", time.Since(startTime))
	return hits, nil
}

// Search runs Retrieve and folds the hits into documents in rank order
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]types.DocumentHit, error) {
	hits, err := s.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return types.GroupHits(hits), nil
}

// fuse joins candidates with their metadata, applies the lexical boost and
// sorts. Candidates whose chunk no longer resolves are dropped.
func fuse(candidates []storage.VectorResult, meta map[int64]types.Hit, lexical map[int64]bool, boost float64) []types.Hit {
	hits := make([]types.Hit, 0, len(candidates))
	for _, c := range candidates {
		hit, ok := meta[c.ChunkID]
		if !ok {
			continue
		}
		hit.Score = c.Similarity
		if lexical[hit.DocumentID] {
			hit.Score += boost
		}
		hits = append(hits, hit)
	}
	sortHits(hits)
	return hits
}

// sortHits orders by score descending, then chunk id ascending
func sortHits(hits []types.Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
}
