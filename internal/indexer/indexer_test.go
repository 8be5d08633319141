package indexer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scholarrag/internal/embedder"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/pkg/types"
)

// mockEmbedder implements embedder.Embedder for testing
type mockEmbedder struct {
	dimension int
	batchFn   func(texts []string) error
	calls     atomic.Int32
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dimension: 8}
}

func (m *mockEmbedder) vector(text string) []float32 {
	return embedder.HashedVector(text, m.dimension)
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	resp, err := m.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	m.calls.Add(1)
	if m.batchFn != nil {
		if err := m.batchFn(req.Texts); err != nil {
			return nil, err
		}
	}
	embeddings := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		embeddings[i] = &embedder.Embedding{
			Vector:    m.vector(text),
			Dimension: m.dimension,
			Provider:  "mock",
			Model:     "test-v1",
		}
	}
	return &embedder.BatchEmbeddingResponse{Embeddings: embeddings, Provider: "mock", Model: "test-v1"}, nil
}

func (m *mockEmbedder) Dimension() int   { return m.dimension }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "test-v1" }
func (m *mockEmbedder) Close() error     { return nil }

// memorySources records Put calls instead of touching disk
type memorySources struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *memorySources) Put(ctx context.Context, hash, ext string, raw []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	if _, ok := m.files[hash+ext]; !ok {
		m.files[hash+ext] = raw
	}
	return hash + ext, nil
}

func setupIndexer(t *testing.T, emb embedder.Embedder) (*Indexer, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, emb, nil, nil, &Config{Workers: 4}), store
}

// longAbstract builds an abstract of roughly n characters made of short sentences
func longAbstract(n int) string {
	var b strings.Builder
	for i := 1; b.Len() < n; i++ {
		fmt.Fprintf(&b, "Sentence %d describes irrigation scheduling with soil moisture sensors. ", i)
	}
	return strings.TrimSpace(b.String())
}

func sampleInput() types.DocumentInput {
	return types.DocumentInput{
		Entry: types.Entry{
			Title:    "Smart Irrigation System",
			Authors:  []string{"Juan Dela Cruz", "Maria Santos"},
			Keywords: []string{"irrigation", "IoT"},
			Year:     2023,
			Abstract: longAbstract(2500),
		},
		Filename: "capstones.docx",
	}
}

func TestNew(t *testing.T) {
	idx := New(nil, newMockEmbedder(), nil, nil, nil)
	assert.NotNil(t, idx.parser)
	assert.NotNil(t, idx.chunker)
	assert.NotNil(t, idx.log)
	assert.Greater(t, idx.workers, 0)

	idx = New(nil, newMockEmbedder(), nil, nil, &Config{Workers: 3})
	assert.Equal(t, 3, idx.workers)
}

func TestIndexDocument_NewDocument(t *testing.T) {
	emb := newMockEmbedder()
	idx, store := setupIndexer(t, emb)
	ctx := context.Background()

	res, err := idx.IndexDocument(ctx, sampleInput(), Options{})
	require.NoError(t, err)
	assert.Greater(t, res.DocumentID, int64(0))
	assert.False(t, res.Replaced)
	assert.False(t, res.Duplicate)
	assert.GreaterOrEqual(t, res.Chunks, 2)

	authors, err := store.ListAuthors(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Juan Dela Cruz", "Maria Santos"}, authors)

	sections, err := store.ListSectionsByDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, types.SectionAbstract, sections[0].Heading)
	assert.Equal(t, 1, sections[0].OrderNo)

	chunks, err := store.ListChunksByDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, res.Chunks)
	for i, c := range chunks {
		assert.Equal(t, i+1, c.OrdInSec)
		require.NotNil(t, c.SectionID)
		assert.Equal(t, sections[0].ID, *c.SectionID)
		assert.LessOrEqual(t, len(c.Content), 1200)
		assert.Greater(t, c.TokenCount, 0)

		e, err := store.GetEmbedding(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, e.Dimension)
		assert.Equal(t, "mock", e.Provider)
	}

	lex, err := store.GetLexical(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Smart Irrigation System", lex.Title)
	assert.Contains(t, lex.Content, "IoT")

	doc, err := idx.Document(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 2023, doc.Year)
	assert.Equal(t, []string{"irrigation", "IoT"}, doc.Keywords)
	assert.Equal(t, sampleInput().Hash(), doc.ContentHash)
}

func TestIndexDocument_EmptyEntry(t *testing.T) {
	emb := newMockEmbedder()
	idx, store := setupIndexer(t, emb)

	_, err := idx.IndexDocument(context.Background(), types.DocumentInput{
		Entry: types.Entry{Authors: []string{"Juan Dela Cruz"}},
	}, Options{})
	assert.ErrorIs(t, err, types.ErrEmptyEntry)
	assert.Equal(t, int32(0), emb.calls.Load())

	n, err := store.CountDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIndexDocument_TitleOnly(t *testing.T) {
	idx, store := setupIndexer(t, newMockEmbedder())
	ctx := context.Background()

	res, err := idx.IndexDocument(ctx, types.DocumentInput{
		Entry: types.Entry{Title: "Untitled Abstract Study"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Chunks)

	sections, err := store.ListSectionsByDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Empty(t, sections)

	hits, err := store.SearchText(ctx, "untitled", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, res.DocumentID, hits[0].DocumentID)
}

func TestIndexDocument_ReingestReplaces(t *testing.T) {
	idx, store := setupIndexer(t, newMockEmbedder())
	ctx := context.Background()
	in := sampleInput()

	first, err := idx.IndexDocument(ctx, in, Options{})
	require.NoError(t, err)
	before, err := store.ListChunksByDocument(ctx, first.DocumentID)
	require.NoError(t, err)

	in.Keywords = []string{"hydroponics"}
	second, err := idx.IndexDocument(ctx, in, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.True(t, second.Replaced)

	n, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after, err := store.ListChunksByDocument(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
	assert.NotEqual(t, before[0].ID, after[0].ID, "chunks are rewritten")

	sections, err := store.ListSectionsByDocument(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.Len(t, sections, 1)

	keywords, err := store.ListKeywords(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hydroponics"}, keywords)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(after), status.Embeddings)
}

func TestIndexDocument_SkipExisting(t *testing.T) {
	emb := newMockEmbedder()
	idx, _ := setupIndexer(t, emb)
	ctx := context.Background()

	first, err := idx.IndexDocument(ctx, sampleInput(), Options{})
	require.NoError(t, err)

	dup, err := idx.IndexDocument(ctx, sampleInput(), Options{SkipExisting: true})
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, first.DocumentID, dup.DocumentID)
}

func TestIndexDocument_EmbedFailureWritesNothing(t *testing.T) {
	emb := newMockEmbedder()
	idx, store := setupIndexer(t, emb)
	ctx := context.Background()

	first, err := idx.IndexDocument(ctx, sampleInput(), Options{})
	require.NoError(t, err)
	before, err := store.ListChunksByDocument(ctx, first.DocumentID)
	require.NoError(t, err)

	providerErr := errors.New("provider unavailable")
	emb.batchFn = func([]string) error { return providerErr }

	in := sampleInput()
	in.Keywords = []string{"changed"}
	_, err = idx.IndexDocument(ctx, in, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, providerErr)

	after, err := store.ListChunksByDocument(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	keywords, err := store.ListKeywords(ctx, first.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, []string{"irrigation", "IoT"}, keywords)

	other := sampleInput()
	other.Title = "Another Study"
	_, err = idx.IndexDocument(ctx, other, Options{})
	require.Error(t, err)
	n, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexDocument_DimensionMismatchRollsBack(t *testing.T) {
	emb := newMockEmbedder()
	idx, store := setupIndexer(t, emb)
	ctx := context.Background()

	_, err := idx.IndexDocument(ctx, sampleInput(), Options{})
	require.NoError(t, err)

	emb.dimension = 4
	other := sampleInput()
	other.Title = "Another Study"
	_, err = idx.IndexDocument(ctx, other, Options{})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	n, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexDocument_ConcurrentSameHash(t *testing.T) {
	idx, store := setupIndexer(t, newMockEmbedder())
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	ids := make([]int64, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := idx.IndexDocument(ctx, sampleInput(), Options{})
			errs[i] = err
			if err == nil {
				ids[i] = res.DocumentID
			}
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	n, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sections, err := store.ListSectionsByDocument(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, sections, 1)
	assert.Equal(t, 0, idx.locks.size())
}

func TestIndexDocument_StoresSourceOnce(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	sources := &memorySources{}
	idx := New(store, newMockEmbedder(), sources, nil, nil)

	in := sampleInput()
	in.Raw = []byte("first upload")
	_, err = idx.IndexDocument(context.Background(), in, Options{})
	require.NoError(t, err)

	in.Raw = []byte("second upload")
	_, err = idx.IndexDocument(context.Background(), in, Options{})
	require.NoError(t, err)

	require.Len(t, sources.files, 1)
	assert.Equal(t, []byte("first upload"), sources.files[in.Hash()+SourceExt])
}

func TestIndexDocx(t *testing.T) {
	idx, store := setupIndexer(t, newMockEmbedder())
	ctx := context.Background()

	raw := buildDocx(t, []string{
		"Title: Smart Irrigation System",
		"Researchers: Juan Dela Cruz, Maria Santos",
		"Year: 2023",
		longAbstract(600),
		"Title: Flood Early Warning Network",
		"Researchers: Ana Reyes and Jose Rizal",
		"Keywords: flood, sensors",
		"River level sensors report to a central dashboard over LoRa radio links. Alerts reach residents within minutes.",
	})

	res, err := idx.IndexDocx(ctx, "capstones.docx", raw)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 2, res.Indexed)
	assert.Equal(t, 0, res.Failed)
	assert.Len(t, res.DocumentIDs, 2)
	assert.Greater(t, res.ChunksCreated, 0)

	docs, total, err := idx.ListDocuments(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, "capstones.docx", d.Filename)
	}

	again, err := idx.IndexDocx(ctx, "capstones.docx", raw)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Replaced)

	n, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndexDocx_PartialFailure(t *testing.T) {
	emb := newMockEmbedder()
	emb.batchFn = func(texts []string) error {
		for _, text := range texts {
			if strings.Contains(text, "LoRa") {
				return errors.New("rejected")
			}
		}
		return nil
	}
	idx, _ := setupIndexer(t, emb)

	raw := buildDocx(t, []string{
		"Title: Smart Irrigation System",
		longAbstract(600),
		"Title: Flood Early Warning Network",
		"River level sensors report to a central dashboard over LoRa radio links. Alerts reach residents within minutes.",
	})

	res, err := idx.IndexDocx(context.Background(), "capstones.docx", raw)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.ErrorMessages, 1)
	assert.Contains(t, res.ErrorMessages[0], "Flood Early Warning Network")
}

func TestIndexDocx_Rejects(t *testing.T) {
	idx, _ := setupIndexer(t, newMockEmbedder())
	ctx := context.Background()

	_, err := idx.IndexDocx(ctx, "tiny.docx", []byte("too small"))
	assert.ErrorIs(t, err, ErrDocxTooSmall)

	_, err = idx.IndexDocx(ctx, "noise.docx", bytes.Repeat([]byte("x"), MinDocxBytes))
	assert.Error(t, err)

	labelsOnly := make([]string, 0, 24)
	for i := 0; i < 12; i++ {
		labelsOnly = append(labelsOnly, "Researchers: Juan Dela Cruz", "Year: 2021")
	}
	_, err = idx.IndexDocx(ctx, "labels.docx", buildDocx(t, labelsOnly))
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestDeleteDocument(t *testing.T) {
	idx, store := setupIndexer(t, newMockEmbedder())
	ctx := context.Background()

	res, err := idx.IndexDocument(ctx, sampleInput(), Options{})
	require.NoError(t, err)

	require.NoError(t, idx.DeleteDocument(ctx, res.DocumentID))
	_, err = idx.Document(ctx, res.DocumentID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	hits, err := store.SearchText(ctx, "irrigation", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Chunks)
	assert.Equal(t, 0, status.Embeddings)

	assert.ErrorIs(t, idx.DeleteDocument(ctx, res.DocumentID), storage.ErrNotFound)
}

func TestListDocuments_InvalidLimit(t *testing.T) {
	idx, _ := setupIndexer(t, newMockEmbedder())
	_, _, err := idx.ListDocuments(context.Background(), 0, 0)
	assert.ErrorIs(t, err, types.ErrInvalidLimit)
}

func TestKeyedLock(t *testing.T) {
	t.Run("serializes one key", func(t *testing.T) {
		k := newKeyedLock()
		ctx := context.Background()

		var active, peak atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := k.Lock(ctx, "a")
				require.NoError(t, err)
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				active.Add(-1)
				unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), peak.Load())
		assert.Equal(t, 0, k.size())
	})

	t.Run("different keys do not block", func(t *testing.T) {
		k := newKeyedLock()
		ctx := context.Background()
		unlockA, err := k.Lock(ctx, "a")
		require.NoError(t, err)
		unlockB, err := k.Lock(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 2, k.size())
		unlockA()
		unlockB()
		assert.Equal(t, 0, k.size())
	})

	t.Run("context cancellation", func(t *testing.T) {
		k := newKeyedLock()
		unlock, err := k.Lock(context.Background(), "a")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = k.Lock(ctx, "a")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		unlock()
		unlock() // second call is a no-op
		assert.Equal(t, 0, k.size())
	})
}

func buildDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "word/document.xml", Method: zip.Store})
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
