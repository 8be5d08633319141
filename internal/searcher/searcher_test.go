package searcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/scholarrag/internal/embedder"
	"github.com/dshills/scholarrag/internal/indexer"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/pkg/types"
)

// fakeVectors implements VectorIndex with canned results
type fakeVectors struct {
	results   []storage.VectorResult
	err       error
	empty     bool
	lastLimit int
	lastMin   float64
	scans     int
}

func (f *fakeVectors) EmbeddingDimension(ctx context.Context) (int, error) {
	if f.empty {
		return 0, nil
	}
	return embedder.LocalDimension, nil
}

func (f *fakeVectors) SearchVector(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]storage.VectorResult, error) {
	f.scans++
	f.lastLimit = limit
	f.lastMin = minSimilarity
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

// fakeLexical implements LexicalIndex with canned results
type fakeLexical struct {
	results []storage.TextResult
	err     error
}

func (f *fakeLexical) SearchText(ctx context.Context, query string, limit int) ([]storage.TextResult, error) {
	return f.results, f.err
}

// fakeResolver resolves chunk ids from a fixed table
type fakeResolver map[int64]types.Hit

func (f fakeResolver) ResolveChunks(ctx context.Context, ids []int64) (map[int64]types.Hit, error) {
	out := make(map[int64]types.Hit, len(ids))
	for _, id := range ids {
		if h, ok := f[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func testResolver() fakeResolver {
	return fakeResolver{
		1: {ChunkID: 1, DocumentID: 10, Title: "Smart Irrigation System", Content: "irrigation chunk"},
		2: {ChunkID: 2, DocumentID: 20, Title: "Flood Early Warning", Content: "flood chunk"},
		3: {ChunkID: 3, DocumentID: 10, Title: "Smart Irrigation System", Content: "second irrigation chunk"},
		4: {ChunkID: 4, DocumentID: 30, Title: "Crop Yield Model", Content: "crop chunk"},
	}
}

func newTestSearcher(v *fakeVectors, l *fakeLexical) *Searcher {
	return NewSearcher(v, l, testResolver(), embedder.NewLocalProvider(nil), DefaultConfig(), nil)
}

func TestRetrieve_Validation(t *testing.T) {
	s := newTestSearcher(&fakeVectors{}, &fakeLexical{})
	ctx := context.Background()

	if _, err := s.Retrieve(ctx, "   ", 5); !errors.Is(err, types.ErrEmptyQuery) {
		t.Errorf("blank query: got %v, want ErrEmptyQuery", err)
	}
	if _, err := s.Retrieve(ctx, "irrigation", 0); !errors.Is(err, types.ErrInvalidLimit) {
		t.Errorf("k=0: got %v, want ErrInvalidLimit", err)
	}
}

func TestRetrieve_LexicalBoostReorders(t *testing.T) {
	vectors := &fakeVectors{results: []storage.VectorResult{
		{ChunkID: 1, Similarity: 0.80},
		{ChunkID: 2, Similarity: 0.78},
		{ChunkID: 4, Similarity: 0.50},
	}}
	lexical := &fakeLexical{results: []storage.TextResult{{DocumentID: 20, Score: 0.9}}}
	s := newTestSearcher(vectors, lexical)

	hits, err := s.Retrieve(context.Background(), "flood", 3)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].ChunkID != 2 {
		t.Errorf("expected boosted chunk 2 first, got %d", hits[0].ChunkID)
	}
	if diff := hits[0].Score - 0.83; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected boosted score 0.83, got %f", hits[0].Score)
	}
	if hits[1].ChunkID != 1 || hits[1].Score != 0.80 {
		t.Errorf("unboosted chunk changed: %+v", hits[1])
	}
}

func TestRetrieve_TieBreakOnChunkID(t *testing.T) {
	vectors := &fakeVectors{results: []storage.VectorResult{
		{ChunkID: 4, Similarity: 0.5},
		{ChunkID: 3, Similarity: 0.5},
		{ChunkID: 1, Similarity: 0.5},
	}}
	s := newTestSearcher(vectors, &fakeLexical{})

	for run := 0; run < 5; run++ {
		hits, err := s.Retrieve(context.Background(), "anything", 3)
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
		got := []int64{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID}
		want := []int64{1, 3, 4}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("run %d: order %v, want %v", run, got, want)
			}
		}
	}
}

func TestRetrieve_CandidatesAndTruncation(t *testing.T) {
	vectors := &fakeVectors{results: []storage.VectorResult{
		{ChunkID: 1, Similarity: 0.9},
		{ChunkID: 2, Similarity: 0.8},
		{ChunkID: 3, Similarity: 0.7},
		{ChunkID: 4, Similarity: 0.6},
	}}
	config := DefaultConfig()
	config.MinSimilarity = 0.25
	s := NewSearcher(vectors, &fakeLexical{}, testResolver(), embedder.NewLocalProvider(nil), config, nil)

	hits, err := s.Retrieve(context.Background(), "irrigation", 2)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits, got %d", len(hits))
	}
	if vectors.lastLimit != 2*DefaultCandidateMultiplier {
		t.Errorf("expected candidate limit %d, got %d", 2*DefaultCandidateMultiplier, vectors.lastLimit)
	}
	if vectors.lastMin != 0.25 {
		t.Errorf("expected min similarity 0.25, got %f", vectors.lastMin)
	}
}

func TestRetrieve_UnresolvedChunksDropped(t *testing.T) {
	vectors := &fakeVectors{results: []storage.VectorResult{
		{ChunkID: 99, Similarity: 0.99},
		{ChunkID: 1, Similarity: 0.5},
	}}
	s := newTestSearcher(vectors, &fakeLexical{})

	hits, err := s.Retrieve(context.Background(), "irrigation", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != 1 {
		t.Errorf("expected only chunk 1, got %+v", hits)
	}
}

func TestRetrieve_LegFailures(t *testing.T) {
	t.Run("lexical failure keeps vector ranking", func(t *testing.T) {
		vectors := &fakeVectors{results: []storage.VectorResult{{ChunkID: 1, Similarity: 0.4}}}
		s := newTestSearcher(vectors, &fakeLexical{err: errors.New("fts unavailable")})

		hits, err := s.Retrieve(context.Background(), "irrigation", 5)
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
		if len(hits) != 1 || hits[0].Score != 0.4 {
			t.Errorf("unexpected hits %+v", hits)
		}
	})

	t.Run("vector failure is returned", func(t *testing.T) {
		scanErr := errors.New("scan failed")
		s := newTestSearcher(&fakeVectors{err: scanErr}, &fakeLexical{})

		if _, err := s.Retrieve(context.Background(), "irrigation", 5); !errors.Is(err, scanErr) {
			t.Errorf("expected scan error, got %v", err)
		}
	})
}

func TestRetrieve_EmptyCorpus(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	s := New(store, embedder.NewLocalProvider(nil), DefaultConfig(), nil)
	hits, err := s.Retrieve(context.Background(), "irrigation", 12)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", hits)
	}
}

func TestSearch_EndToEnd(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	emb := embedder.NewLocalProvider(nil)
	idx := indexer.New(store, emb, nil, nil, nil)

	var abstract strings.Builder
	for abstract.Len() < 2500 {
		abstract.WriteString("The irrigation controller schedules watering from soil moisture readings. ")
	}
	irrigation, err := idx.IndexDocument(ctx, types.DocumentInput{Entry: types.Entry{
		Title:    "Smart Irrigation System",
		Authors:  []string{"Juan Dela Cruz", "Maria Santos"},
		Abstract: abstract.String(),
	}}, indexer.Options{})
	if err != nil {
		t.Fatalf("failed to index: %v", err)
	}
	_, err = idx.IndexDocument(ctx, types.DocumentInput{Entry: types.Entry{
		Title:    "Flood Early Warning Network",
		Authors:  []string{"Ana Reyes"},
		Abstract: "River level sensors report to a central dashboard. Alerts reach residents within minutes.",
	}}, indexer.Options{})
	if err != nil {
		t.Fatalf("failed to index: %v", err)
	}

	s := New(store, emb, DefaultConfig(), nil)
	hits, err := s.Retrieve(ctx, "irrigation", 12)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if hits[0].DocumentID != irrigation.DocumentID {
		t.Errorf("top hit document %d, want %d", hits[0].DocumentID, irrigation.DocumentID)
	}
	if hits[0].Score <= 0 {
		t.Errorf("expected positive score, got %f", hits[0].Score)
	}
	if hits[0].Title != "Smart Irrigation System" {
		t.Errorf("unexpected title %q", hits[0].Title)
	}

	docs, err := s.Search(ctx, "irrigation", 12)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if docs[0].DocumentID != irrigation.DocumentID {
		t.Errorf("top document %d, want %d", docs[0].DocumentID, irrigation.DocumentID)
	}
	if len(docs[0].Snippets) < 2 {
		t.Errorf("expected every irrigation chunk grouped, got %d snippets", len(docs[0].Snippets))
	}
	seen := make(map[int64]bool)
	for _, d := range docs {
		if seen[d.DocumentID] {
			t.Errorf("document %d appears twice", d.DocumentID)
		}
		seen[d.DocumentID] = true
	}
}

// failingEmbedder rejects every request, like an unreachable remote provider
type failingEmbedder struct {
	*embedder.LocalProvider
	calls int
}

func (f *failingEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	f.calls++
	return nil, embedder.ErrProviderFailed
}

func (f *failingEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	f.calls++
	return nil, embedder.ErrProviderFailed
}

func TestRetrieve_EmptyCorpusSkipsEmbedding(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	emb := &failingEmbedder{LocalProvider: embedder.NewLocalProvider(nil)}
	s := New(store, emb, DefaultConfig(), nil)

	hits, err := s.Retrieve(context.Background(), "irrigation", 12)
	if err != nil {
		t.Fatalf("Retrieve on empty corpus failed: %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", hits)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times on empty corpus", emb.calls)
	}

	docs, err := s.Search(context.Background(), "irrigation", 12)
	if err != nil {
		t.Fatalf("Search on empty corpus failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %#v", docs)
	}
}

func TestRetrieve_EmptyVectorIndexSkipsScan(t *testing.T) {
	vectors := &fakeVectors{empty: true}
	s := newTestSearcher(vectors, &fakeLexical{})

	hits, err := s.Retrieve(context.Background(), "irrigation", 5)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(hits) != 0 || vectors.scans != 0 {
		t.Errorf("expected no hits and no scan, got %d hits, %d scans", len(hits), vectors.scans)
	}
}
