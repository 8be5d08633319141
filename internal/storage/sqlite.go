package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/scholarrag/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrDimensionMismatch is returned when an embedding's dimension differs from the corpus
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// A single connection serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and applies migrations
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction. Every method of the returned Tx runs on
// the transaction's connection.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

func nullYear(year int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(year), Valid: year > 0}
}

// Document operations

const documentColumns = `id, content_hash, filename, title, year, abstract, course, host,
	doc_type, external_links, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (*Document, error) {
	var (
		doc  Document
		year sql.NullInt64
	)
	err := row.Scan(&doc.ID, &doc.ContentHash, &doc.Filename, &doc.Title, &year, &doc.Abstract,
		&doc.Course, &doc.Host, &doc.DocType, &doc.ExternalLinks, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if year.Valid {
		doc.Year = int(year.Int64)
	}
	return &doc, nil
}

func (s *SQLiteStorage) createDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	query := `
		INSERT INTO documents (content_hash, filename, title, year, abstract, course, host,
			doc_type, external_links, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		doc.ContentHash, doc.Filename, doc.Title, nullYear(doc.Year), doc.Abstract, doc.Course,
		doc.Host, doc.DocType, doc.ExternalLinks, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("%w: document %s", ErrAlreadyExists, doc.ContentHash)
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	doc.ID = id
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *Document) error {
	return s.createDocumentWithQuerier(ctx, s.querier(), doc)
}

// updateDocumentWithQuerier rewrites every scalar field except the identity hash
func (s *SQLiteStorage) updateDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	query := `
		UPDATE documents
		SET filename = ?, title = ?, year = ?, abstract = ?, course = ?, host = ?,
		    doc_type = ?, external_links = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		doc.Filename, doc.Title, nullYear(doc.Year), doc.Abstract, doc.Course, doc.Host,
		doc.DocType, doc.ExternalLinks, now, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateDocument(ctx context.Context, doc *Document) error {
	return s.updateDocumentWithQuerier(ctx, s.querier(), doc)
}

func (s *SQLiteStorage) getDocumentWithQuerier(ctx context.Context, q querier, id int64) (*Document, error) {
	doc, err := scanDocument(q.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) getDocumentByHashWithQuerier(ctx context.Context, q querier, contentHash string) (*Document, error) {
	doc, err := scanDocument(q.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE content_hash = ?", contentHash))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStorage) GetDocumentByHash(ctx context.Context, contentHash string) (*Document, error) {
	return s.getDocumentByHashWithQuerier(ctx, s.querier(), contentHash)
}

// listDocumentsWithQuerier pages documents newest first
func (s *SQLiteStorage) listDocumentsWithQuerier(ctx context.Context, q querier, offset, limit int) ([]*Document, error) {
	if limit <= 0 {
		return []*Document{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := q.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY id DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*Document, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*Document, error) {
	return s.listDocumentsWithQuerier(ctx, s.querier(), offset, limit)
}

func (s *SQLiteStorage) countDocumentsWithQuerier(ctx context.Context, q querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int, error) {
	return s.countDocumentsWithQuerier(ctx, s.querier())
}

// deleteDocumentWithQuerier removes the lexical row and the document; owned
// rows cascade.
func (s *SQLiteStorage) deleteDocumentWithQuerier(ctx context.Context, q querier, id int64) error {
	if err := s.deleteLexicalWithQuerier(ctx, q, id); err != nil {
		return err
	}
	result, err := q.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id int64) error {
	return s.deleteDocumentWithQuerier(ctx, s.querier(), id)
}

// Author and keyword operations

func (s *SQLiteStorage) replaceListWithQuerier(ctx context.Context, q querier, table, column string, documentID int64, values []string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	insert := "INSERT INTO " + table + " (document_id, " + column + ", position) VALUES (?, ?, ?)"
	for i, v := range values {
		if _, err := q.ExecContext(ctx, insert, documentID, v, i+1); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) listValuesWithQuerier(ctx context.Context, q querier, table, column string, documentID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+column+" FROM "+table+" WHERE document_id = ? ORDER BY position, id", documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *SQLiteStorage) ReplaceAuthors(ctx context.Context, documentID int64, names []string) error {
	return s.replaceListWithQuerier(ctx, s.querier(), "authors", "full_name", documentID, names)
}

func (s *SQLiteStorage) ListAuthors(ctx context.Context, documentID int64) ([]string, error) {
	return s.listValuesWithQuerier(ctx, s.querier(), "authors", "full_name", documentID)
}

func (s *SQLiteStorage) ReplaceKeywords(ctx context.Context, documentID int64, keywords []string) error {
	return s.replaceListWithQuerier(ctx, s.querier(), "keywords", "keyword", documentID, keywords)
}

func (s *SQLiteStorage) ListKeywords(ctx context.Context, documentID int64) ([]string, error) {
	return s.listValuesWithQuerier(ctx, s.querier(), "keywords", "keyword", documentID)
}

// Section operations

func (s *SQLiteStorage) createSectionWithQuerier(ctx context.Context, q querier, section *Section) error {
	result, err := q.ExecContext(ctx,
		"INSERT INTO sections (document_id, heading, content, order_no) VALUES (?, ?, ?, ?)",
		section.DocumentID, section.Heading, section.Content, section.OrderNo)
	if err != nil {
		return fmt.Errorf("failed to create section: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	section.ID = id
	return nil
}

func (s *SQLiteStorage) CreateSection(ctx context.Context, section *Section) error {
	return s.createSectionWithQuerier(ctx, s.querier(), section)
}

func (s *SQLiteStorage) listSectionsByDocumentWithQuerier(ctx context.Context, q querier, documentID int64) ([]*Section, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, document_id, heading, content, order_no
		FROM sections WHERE document_id = ? ORDER BY order_no, id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sections := make([]*Section, 0)
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.DocumentID, &sec.Heading, &sec.Content, &sec.OrderNo); err != nil {
			return nil, err
		}
		sections = append(sections, &sec)
	}
	return sections, rows.Err()
}

func (s *SQLiteStorage) ListSectionsByDocument(ctx context.Context, documentID int64) ([]*Section, error) {
	return s.listSectionsByDocumentWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStorage) deleteSectionsByDocumentWithQuerier(ctx context.Context, q querier, documentID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM sections WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete sections: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteSectionsByDocument(ctx context.Context, documentID int64) error {
	return s.deleteSectionsByDocumentWithQuerier(ctx, s.querier(), documentID)
}

// Chunk operations

func (s *SQLiteStorage) createChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, `
		INSERT INTO chunks (document_id, section_id, content, ord_in_sec, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, chunk.DocumentID, chunk.SectionID, chunk.Content, chunk.OrdInSec, chunk.TokenCount, now)
	if err != nil {
		return fmt.Errorf("failed to create chunk: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	chunk.ID = id
	chunk.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateChunk(ctx context.Context, chunk *Chunk) error {
	return s.createChunkWithQuerier(ctx, s.querier(), chunk)
}

func (s *SQLiteStorage) listChunksByDocumentWithQuerier(ctx context.Context, q querier, documentID int64) ([]*Chunk, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, document_id, section_id, content, ord_in_sec, token_count, created_at
		FROM chunks WHERE document_id = ? ORDER BY section_id, ord_in_sec, id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*Chunk, 0)
	for rows.Next() {
		var (
			c         Chunk
			sectionID sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &sectionID, &c.Content, &c.OrdInSec,
			&c.TokenCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		if sectionID.Valid {
			id := sectionID.Int64
			c.SectionID = &id
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error) {
	return s.listChunksByDocumentWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStorage) deleteChunksByDocumentWithQuerier(ctx context.Context, q querier, documentID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteChunksByDocument(ctx context.Context, documentID int64) error {
	return s.deleteChunksByDocumentWithQuerier(ctx, s.querier(), documentID)
}

// resolveChunksWithQuerier loads chunk content and owning-document metadata
// for the given ids in a single query. Unknown ids are absent from the map.
func (s *SQLiteStorage) resolveChunksWithQuerier(ctx context.Context, q querier, chunkIDs []int64) (map[int64]types.Hit, error) {
	hits := make(map[int64]types.Hit, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return hits, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunkIDs)), ",")
	args := make([]interface{}, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx, `
		SELECT c.id, c.content, c.document_id, c.section_id, d.title, d.year
		FROM chunks c
		INNER JOIN documents d ON d.id = c.document_id
		WHERE c.id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			h         types.Hit
			sectionID sql.NullInt64
			year      sql.NullInt64
		)
		if err := rows.Scan(&h.ChunkID, &h.Content, &h.DocumentID, &sectionID, &h.Title, &year); err != nil {
			return nil, err
		}
		if sectionID.Valid {
			id := sectionID.Int64
			h.SectionID = &id
		}
		if year.Valid {
			h.Year = int(year.Int64)
		}
		hits[h.ChunkID] = h
	}
	return hits, rows.Err()
}

func (s *SQLiteStorage) ResolveChunks(ctx context.Context, chunkIDs []int64) (map[int64]types.Hit, error) {
	return s.resolveChunksWithQuerier(ctx, s.querier(), chunkIDs)
}

// Embedding operations

// upsertEmbeddingWithQuerier stores a chunk vector, rejecting a dimension that
// differs from any other stored embedding.
func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	if embedding.Dimension == 0 {
		embedding.Dimension = len(embedding.Vector)
	}
	if embedding.Dimension != len(embedding.Vector) || embedding.Dimension == 0 {
		return fmt.Errorf("%w: declared %d, vector has %d values",
			ErrDimensionMismatch, embedding.Dimension, len(embedding.Vector))
	}

	var existing int
	err := q.QueryRowContext(ctx,
		"SELECT dimension FROM embeddings WHERE chunk_id != ? LIMIT 1", embedding.ChunkID).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to check embedding dimension: %w", err)
	case existing != embedding.Dimension:
		return fmt.Errorf("%w: corpus uses %d, got %d", ErrDimensionMismatch, existing, embedding.Dimension)
	}

	now := time.Now().UTC()
	_, err = q.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			created_at = excluded.created_at
	`, embedding.ChunkID, serializeVector(embedding.Vector), embedding.Dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, chunkID int64) (*Embedding, error) {
	var (
		e    Embedding
		blob []byte
	)
	err := q.QueryRowContext(ctx, `
		SELECT chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings WHERE chunk_id = ?
	`, chunkID).Scan(&e.ChunkID, &blob, &e.Dimension, &e.Provider, &e.Model, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Vector = deserializeVector(blob)
	return &e, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// embeddingDimensionWithQuerier returns the corpus dimension, 0 when empty
func (s *SQLiteStorage) embeddingDimensionWithQuerier(ctx context.Context, q querier) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, "SELECT dimension FROM embeddings LIMIT 1").Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return dim, err
}

func (s *SQLiteStorage) EmbeddingDimension(ctx context.Context) (int, error) {
	return s.embeddingDimensionWithQuerier(ctx, s.querier())
}

// Lexical index operations

func (s *SQLiteStorage) upsertLexicalWithQuerier(ctx context.Context, q querier, row *LexicalRow) error {
	if err := s.deleteLexicalWithQuerier(ctx, q, row.DocumentID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx,
		"INSERT INTO documents_fts (rowid, title, abstract, content) VALUES (?, ?, ?, ?)",
		row.DocumentID, row.Title, row.Abstract, row.Content)
	if err != nil {
		return fmt.Errorf("failed to index document %d: %w", row.DocumentID, err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertLexical(ctx context.Context, row *LexicalRow) error {
	return s.upsertLexicalWithQuerier(ctx, s.querier(), row)
}

func (s *SQLiteStorage) getLexicalWithQuerier(ctx context.Context, q querier, documentID int64) (*LexicalRow, error) {
	row := LexicalRow{DocumentID: documentID}
	err := q.QueryRowContext(ctx,
		"SELECT title, abstract, content FROM documents_fts WHERE rowid = ?", documentID).
		Scan(&row.Title, &row.Abstract, &row.Content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *SQLiteStorage) GetLexical(ctx context.Context, documentID int64) (*LexicalRow, error) {
	return s.getLexicalWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStorage) deleteLexicalWithQuerier(ctx context.Context, q querier, documentID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM documents_fts WHERE rowid = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to remove document %d from lexical index: %w", documentID, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteLexical(ctx context.Context, documentID int64) error {
	return s.deleteLexicalWithQuerier(ctx, s.querier(), documentID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), vector, limit, minSimilarity)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, query string, limit int) ([]TextResult, error) {
	return searchText(ctx, s.querier(), query, limit)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*IndexStatus, error) {
	status := &IndexStatus{
		Driver:    DriverName,
		BuildMode: BuildMode,
	}

	counts := []struct {
		table string
		dest  *int
	}{
		{"documents", &status.Documents},
		{"sections", &status.Sections},
		{"chunks", &status.Chunks},
		{"embeddings", &status.Embeddings},
	}
	for _, c := range counts {
		if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	dim, err := s.embeddingDimensionWithQuerier(ctx, q)
	if err != nil {
		return nil, err
	}
	status.Dimension = dim

	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var ftsName string
	ftsErr := q.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='documents_fts'").Scan(&ftsName)

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.Embeddings > 0,
		LexicalIndexBuilt:   ftsErr == nil,
	}
	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// Transaction implementations. Each one runs on the transaction querier;
// the pool holds a single connection, so touching s.db here would block.

func (t *sqliteTx) CreateDocument(ctx context.Context, doc *Document) error {
	return t.storage.createDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) UpdateDocument(ctx context.Context, doc *Document) error {
	return t.storage.updateDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return t.storage.getDocumentWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) GetDocumentByHash(ctx context.Context, contentHash string) (*Document, error) {
	return t.storage.getDocumentByHashWithQuerier(ctx, t.querier(), contentHash)
}

func (t *sqliteTx) ListDocuments(ctx context.Context, offset, limit int) ([]*Document, error) {
	return t.storage.listDocumentsWithQuerier(ctx, t.querier(), offset, limit)
}

func (t *sqliteTx) CountDocuments(ctx context.Context) (int, error) {
	return t.storage.countDocumentsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, id int64) error {
	return t.storage.deleteDocumentWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ReplaceAuthors(ctx context.Context, documentID int64, names []string) error {
	return t.storage.replaceListWithQuerier(ctx, t.querier(), "authors", "full_name", documentID, names)
}

func (t *sqliteTx) ListAuthors(ctx context.Context, documentID int64) ([]string, error) {
	return t.storage.listValuesWithQuerier(ctx, t.querier(), "authors", "full_name", documentID)
}

func (t *sqliteTx) ReplaceKeywords(ctx context.Context, documentID int64, keywords []string) error {
	return t.storage.replaceListWithQuerier(ctx, t.querier(), "keywords", "keyword", documentID, keywords)
}

func (t *sqliteTx) ListKeywords(ctx context.Context, documentID int64) ([]string, error) {
	return t.storage.listValuesWithQuerier(ctx, t.querier(), "keywords", "keyword", documentID)
}

func (t *sqliteTx) CreateSection(ctx context.Context, section *Section) error {
	return t.storage.createSectionWithQuerier(ctx, t.querier(), section)
}

func (t *sqliteTx) ListSectionsByDocument(ctx context.Context, documentID int64) ([]*Section, error) {
	return t.storage.listSectionsByDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) DeleteSectionsByDocument(ctx context.Context, documentID int64) error {
	return t.storage.deleteSectionsByDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) CreateChunk(ctx context.Context, chunk *Chunk) error {
	return t.storage.createChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error) {
	return t.storage.listChunksByDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) DeleteChunksByDocument(ctx context.Context, documentID int64) error {
	return t.storage.deleteChunksByDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) ResolveChunks(ctx context.Context, chunkIDs []int64) (map[int64]types.Hit, error) {
	return t.storage.resolveChunksWithQuerier(ctx, t.querier(), chunkIDs)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) EmbeddingDimension(ctx context.Context) (int, error) {
	return t.storage.embeddingDimensionWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) UpsertLexical(ctx context.Context, row *LexicalRow) error {
	return t.storage.upsertLexicalWithQuerier(ctx, t.querier(), row)
}

func (t *sqliteTx) GetLexical(ctx context.Context, documentID int64) (*LexicalRow, error) {
	return t.storage.getLexicalWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) DeleteLexical(ctx context.Context, documentID int64) error {
	return t.storage.deleteLexicalWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, vector []float32, limit int, minSimilarity float64) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), vector, limit, minSimilarity)
}

func (t *sqliteTx) SearchText(ctx context.Context, query string, limit int) ([]TextResult, error) {
	return searchText(ctx, t.querier(), query, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*IndexStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
