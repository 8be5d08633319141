package storage

import (
	"context"
	"time"

	"github.com/dshills/scholarrag/pkg/types"
)

// Storage defines the interface for persisting and querying indexed research documents
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *Document) error
	UpdateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id int64) (*Document, error)
	GetDocumentByHash(ctx context.Context, contentHash string) (*Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*Document, error)
	CountDocuments(ctx context.Context) (int, error)
	DeleteDocument(ctx context.Context, id int64) error

	// Author and keyword operations. Replace deletes existing rows first.
	ReplaceAuthors(ctx context.Context, documentID int64, names []string) error
	ListAuthors(ctx context.Context, documentID int64) ([]string, error)
	ReplaceKeywords(ctx context.Context, documentID int64, keywords []string) error
	ListKeywords(ctx context.Context, documentID int64) ([]string, error)

	// Section operations
	CreateSection(ctx context.Context, section *Section) error
	ListSectionsByDocument(ctx context.Context, documentID int64) ([]*Section, error)
	DeleteSectionsByDocument(ctx context.Context, documentID int64) error

	// Chunk operations
	CreateChunk(ctx context.Context, chunk *Chunk) error
	ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error)
	DeleteChunksByDocument(ctx context.Context, documentID int64) error
	ResolveChunks(ctx context.Context, chunkIDs []int64) (map[int64]types.Hit, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)
	EmbeddingDimension(ctx context.Context) (int, error)

	// Lexical index operations
	UpsertLexical(ctx context.Context, row *LexicalRow) error
	GetLexical(ctx context.Context, documentID int64) (*LexicalRow, error)
	DeleteLexical(ctx context.Context, documentID int64) error

	// Search operations
	SearchVector(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]VectorResult, error)
	SearchText(ctx context.Context, query string, limit int) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context) (*IndexStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// Document is a row of the documents table
type Document struct {
	ID            int64
	ContentHash   string
	Filename      string
	Title         string
	Year          int // 0 stored as NULL
	Abstract      string
	Course        string
	Host          string
	DocType       string
	ExternalLinks string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ToTypesDocument converts a row plus its owned lists to the public shape
func (d *Document) ToTypesDocument(authors, keywords []string) types.Document {
	if authors == nil {
		authors = []string{}
	}
	if keywords == nil {
		keywords = []string{}
	}
	return types.Document{
		ID:            d.ID,
		ContentHash:   d.ContentHash,
		Filename:      d.Filename,
		Title:         d.Title,
		Year:          d.Year,
		Abstract:      d.Abstract,
		Course:        d.Course,
		Host:          d.Host,
		DocType:       d.DocType,
		ExternalLinks: d.ExternalLinks,
		Authors:       authors,
		Keywords:      keywords,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// DocumentFromInput builds a row from ingestion input
func DocumentFromInput(in types.DocumentInput, contentHash string) *Document {
	return &Document{
		ContentHash:   contentHash,
		Filename:      in.Filename,
		Title:         in.Title,
		Year:          in.Year,
		Abstract:      in.Abstract,
		Course:        in.Course,
		Host:          in.Host,
		DocType:       in.DocType,
		ExternalLinks: in.ExternalLinks,
	}
}

// Section is a named part of a document
type Section struct {
	ID         int64
	DocumentID int64
	Heading    string
	Content    string
	OrderNo    int
}

// Chunk is an embeddable slice of a section
type Chunk struct {
	ID         int64
	DocumentID int64
	SectionID  *int64 // Nullable; cleared when the section is deleted
	Content    string
	OrdInSec   int
	TokenCount int
	CreatedAt  time.Time
}

// Embedding is the vector stored for a chunk
type Embedding struct {
	ChunkID   int64
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// LexicalRow is a document's full-text index entry
type LexicalRow struct {
	DocumentID int64
	Title      string
	Abstract   string
	Content    string
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID    int64
	Similarity float64
}

// TextResult represents a result from full-text search; Score is higher for better matches
type TextResult struct {
	DocumentID int64
	Score      float64
}

// IndexStatus contains statistics about the index
type IndexStatus struct {
	Documents  int
	Sections   int
	Chunks     int
	Embeddings int
	Dimension  int
	SizeMB     float64
	Driver     string
	BuildMode  string
	Health     HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	LexicalIndexBuilt   bool
}
