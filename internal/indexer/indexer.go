package indexer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/scholarrag/internal/chunker"
	"github.com/dshills/scholarrag/internal/embedder"
	"github.com/dshills/scholarrag/internal/logging"
	"github.com/dshills/scholarrag/internal/parser"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/pkg/types"
)

// MinDocxBytes is the smallest upload accepted as a .docx compilation
const MinDocxBytes = 500

// SourceExt is the extension used for persisted source copies
const SourceExt = ".docx"

var (
	// ErrDocxTooSmall is returned for uploads below MinDocxBytes
	ErrDocxTooSmall = errors.New("docx file too small")
	// ErrNoEntries is returned when a compilation yields no documents
	ErrNoEntries = errors.New("no documents found in file")
)

// SourceStore persists the original bytes of an ingested file once per content hash
type SourceStore interface {
	Put(ctx context.Context, hash, ext string, raw []byte) (string, error)
}

// Indexer coordinates the ingestion pipeline: parse -> chunk -> embed -> store
type Indexer struct {
	parser   *parser.Parser
	chunker  *chunker.Chunker
	storage  storage.Storage
	embedder embedder.Embedder
	sources  SourceStore
	log      *logging.Logger
	locks    *keyedLock

	// Worker pool configuration
	workers int
}

// Config contains configuration for the indexer
type Config struct {
	Workers int // Concurrent entries per compilation (default: runtime.NumCPU())
}

// Options modify a single ingestion
type Options struct {
	// SkipExisting reports an already-indexed hash as a duplicate instead of replacing it
	SkipExisting bool
}

// Result describes the outcome of indexing one document
type Result struct {
	DocumentID int64 `json:"document_id"`
	Duplicate  bool  `json:"duplicate"`
	Replaced   bool  `json:"replaced"`
	Chunks     int   `json:"chunks"`
}

// BatchResult summarizes the ingestion of a compilation file
type BatchResult struct {
	Filename      string        `json:"filename"`
	Entries       int           `json:"entries"`
	Indexed       int           `json:"indexed"`
	Replaced      int           `json:"replaced"`
	Failed        int           `json:"failed"`
	ChunksCreated int           `json:"chunks_created"`
	DocumentIDs   []int64       `json:"document_ids"`
	ErrorMessages []string      `json:"errors,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// New creates a new Indexer. sources may be nil, in which case raw bytes are not kept.
func New(store storage.Storage, emb embedder.Embedder, sources SourceStore, log *logging.Logger, config *Config) *Indexer {
	workers := runtime.NumCPU()
	if config != nil && config.Workers > 0 {
		workers = config.Workers
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Indexer{
		parser:   parser.New(),
		chunker:  chunker.New(),
		storage:  store,
		embedder: emb,
		sources:  sources,
		log:      log,
		locks:    newKeyedLock(),
		workers:  workers,
	}
}

// IndexDocument ingests one document. Re-ingesting a known content hash
// replaces the stored document and all of its children unless opts.SkipExisting
// is set. Nothing is written when chunking or embedding fails.
func (idx *Indexer) IndexDocument(ctx context.Context, in types.DocumentInput, opts Options) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Abstract = strings.TrimSpace(in.Abstract)
	hash := in.Hash()

	unlock, err := idx.locks.Lock(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer unlock()

	chunks := idx.chunker.Chunk(in.Abstract)
	var vectors [][]float32
	if len(chunks) > 0 {
		vectors, err = embedder.EmbedTexts(ctx, idx.embedder, chunks)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
	}

	if idx.sources != nil && len(in.Raw) > 0 {
		if _, err := idx.sources.Put(ctx, hash, SourceExt, in.Raw); err != nil {
			return nil, fmt.Errorf("failed to store source file: %w", err)
		}
	}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := idx.writeDocument(ctx, tx, in, hash, chunks, vectors, opts)
	if err != nil {
		return nil, err
	}
	if result.Duplicate {
		return result, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.log.Info("indexed document",
		"document_id", result.DocumentID,
		"replaced", result.Replaced,
		"chunks", result.Chunks)
	return result, nil
}

// writeDocument performs every write of one ingestion inside tx
func (idx *Indexer) writeDocument(ctx context.Context, tx storage.Tx, in types.DocumentInput, hash string,
	chunks []string, vectors [][]float32, opts Options) (*Result, error) {

	result := &Result{}
	doc := storage.DocumentFromInput(in, hash)

	existing, err := tx.GetDocumentByHash(ctx, hash)
	switch {
	case err == nil:
		if opts.SkipExisting {
			return &Result{DocumentID: existing.ID, Duplicate: true}, nil
		}
		if err := clearChildren(ctx, tx, existing.ID); err != nil {
			return nil, err
		}
		doc.ID = existing.ID
		if err := tx.UpdateDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to update document: %w", err)
		}
		result.Replaced = true
	case errors.Is(err, storage.ErrNotFound):
		if err := tx.CreateDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to create document: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}
	result.DocumentID = doc.ID

	if err := tx.ReplaceAuthors(ctx, doc.ID, in.Authors); err != nil {
		return nil, fmt.Errorf("failed to store authors: %w", err)
	}
	if err := tx.ReplaceKeywords(ctx, doc.ID, in.Keywords); err != nil {
		return nil, fmt.Errorf("failed to store keywords: %w", err)
	}

	if in.Abstract != "" {
		section := &storage.Section{
			DocumentID: doc.ID,
			Heading:    types.SectionAbstract,
			Content:    in.Abstract,
			OrderNo:    1,
		}
		if err := tx.CreateSection(ctx, section); err != nil {
			return nil, fmt.Errorf("failed to create section: %w", err)
		}

		for i, content := range chunks {
			sectionID := section.ID
			chunk := &storage.Chunk{
				DocumentID: doc.ID,
				SectionID:  &sectionID,
				Content:    content,
				OrdInSec:   i + 1,
				TokenCount: chunker.EstimateTokenCount(content),
			}
			if err := tx.CreateChunk(ctx, chunk); err != nil {
				return nil, fmt.Errorf("failed to store chunk: %w", err)
			}
			emb := &storage.Embedding{
				ChunkID:   chunk.ID,
				Vector:    vectors[i],
				Dimension: len(vectors[i]),
				Provider:  idx.embedder.Provider(),
				Model:     idx.embedder.Model(),
			}
			if err := tx.UpsertEmbedding(ctx, emb); err != nil {
				return nil, fmt.Errorf("failed to store embedding: %w", err)
			}
			result.Chunks++
		}
	}

	row := &storage.LexicalRow{
		DocumentID: doc.ID,
		Title:      in.Title,
		Abstract:   in.Abstract,
		Content:    lexicalContent(in),
	}
	if err := tx.UpsertLexical(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to update lexical index: %w", err)
	}

	return result, nil
}

// clearChildren removes everything a document owns except its row
func clearChildren(ctx context.Context, tx storage.Tx, documentID int64) error {
	if err := tx.DeleteLexical(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete lexical row: %w", err)
	}
	if err := tx.DeleteChunksByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}
	if err := tx.DeleteSectionsByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete old sections: %w", err)
	}
	return nil
}

// lexicalContent is the searchable body: the abstract followed by the keywords
func lexicalContent(in types.DocumentInput) string {
	if len(in.Keywords) == 0 {
		return in.Abstract
	}
	return strings.TrimSpace(in.Abstract + " " + strings.Join(in.Keywords, " "))
}

// IndexDocx parses a compilation file and indexes every entry concurrently.
// A failing entry is recorded in the result and does not stop its siblings.
func (idx *Indexer) IndexDocx(ctx context.Context, filename string, raw []byte) (*BatchResult, error) {
	if len(raw) < MinDocxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrDocxTooSmall, len(raw))
	}

	startTime := time.Now()
	entries, err := idx.parser.ParseDocx(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	stats := &BatchResult{
		Filename:      filename,
		Entries:       len(entries),
		DocumentIDs:   make([]int64, 0, len(entries)),
		ErrorMessages: make([]string, 0),
	}
	ids := make([]int64, len(entries))

	var mu sync.Mutex // Protect stats
	g := new(errgroup.Group)
	g.SetLimit(idx.workers)

	for i, entry := range entries {
		g.Go(func() error {
			in := types.DocumentInput{Entry: entry, Filename: filename, Raw: raw}
			res, err := idx.IndexDocument(ctx, in, Options{})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				stats.ErrorMessages = append(stats.ErrorMessages,
					fmt.Sprintf("entry %d (%s): %v", i+1, entry.Title, err))
				idx.log.Warn("failed to index entry", "file", filename, "entry", i+1, "error", err)
				return nil
			}
			ids[i] = res.DocumentID
			stats.ChunksCreated += res.Chunks
			if res.Replaced {
				stats.Replaced++
			} else {
				stats.Indexed++
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range ids {
		if id != 0 {
			stats.DocumentIDs = append(stats.DocumentIDs, id)
		}
	}
	stats.Duration = time.Since(startTime)

	idx.log.Info("indexed compilation",
		"file", filename,
		"entries", stats.Entries,
		"indexed", stats.Indexed,
		"replaced", stats.Replaced,
		"failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

// DeleteDocument removes a document and everything it owns
func (idx *Indexer) DeleteDocument(ctx context.Context, id int64) error {
	if err := idx.storage.DeleteDocument(ctx, id); err != nil {
		return err
	}
	idx.log.Info("deleted document", "document_id", id)
	return nil
}

// Document returns a stored document with its authors and keywords
func (idx *Indexer) Document(ctx context.Context, id int64) (*types.Document, error) {
	doc, err := idx.storage.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return idx.assemble(ctx, doc)
}

// ListDocuments returns one page of documents plus the total count
func (idx *Indexer) ListDocuments(ctx context.Context, offset, limit int) ([]types.Document, int, error) {
	if limit <= 0 {
		return nil, 0, types.ErrInvalidLimit
	}
	rows, err := idx.storage.ListDocuments(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := idx.storage.CountDocuments(ctx)
	if err != nil {
		return nil, 0, err
	}
	docs := make([]types.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := idx.assemble(ctx, row)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *doc)
	}
	return docs, total, nil
}

func (idx *Indexer) assemble(ctx context.Context, row *storage.Document) (*types.Document, error) {
	authors, err := idx.storage.ListAuthors(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	keywords, err := idx.storage.ListKeywords(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	doc := row.ToTypesDocument(authors, keywords)
	return &doc, nil
}
