package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scholarrag/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func createTestDocument(t *testing.T, s *SQLiteStorage, title string) *Document {
	t.Helper()
	doc := &Document{
		ContentHash: types.ContentHash(title, []string{"Juan Dela Cruz"}, "abstract of "+title),
		Filename:    "compilation.docx",
		Title:       title,
		Year:        2023,
		Abstract:    "abstract of " + title,
	}
	require.NoError(t, s.CreateDocument(context.Background(), doc))
	return doc
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
}

func TestNewSQLiteStorage_CreatesDirectory(t *testing.T) {
	path := t.TempDir() + "/nested/dir/test.db"
	storage, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, storage.Close())

	// reopening applies no migrations twice
	storage, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, storage.Close())
}

func TestCreateDocument(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	doc := createTestDocument(t, s, "Smart Irrigation System")
	assert.Greater(t, doc.ID, int64(0))
	assert.False(t, doc.CreatedAt.IsZero())

	dup := &Document{ContentHash: doc.ContentHash, Title: "other"}
	err := s.CreateDocument(ctx, dup)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetDocument(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Smart Irrigation System")

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Smart Irrigation System", got.Title)
	assert.Equal(t, 2023, got.Year)
	assert.Equal(t, doc.ContentHash, got.ContentHash)

	byHash, err := s.GetDocumentByHash(ctx, doc.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, byHash.ID)

	_, err = s.GetDocument(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetDocumentByHash(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDocument_NullYear(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	doc := &Document{ContentHash: types.ContentHash("t", nil, ""), Title: "t"}
	require.NoError(t, s.CreateDocument(ctx, doc))

	var year interface{}
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT year FROM documents WHERE id = ?", doc.ID).Scan(&year))
	assert.Nil(t, year)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Year)
}

func TestUpdateDocument(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Original")

	doc.Course = "BS Computer Science"
	doc.Year = 0
	require.NoError(t, s.UpdateDocument(ctx, doc))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "BS Computer Science", got.Course)
	assert.Equal(t, 0, got.Year)

	missing := &Document{ID: 4242}
	assert.ErrorIs(t, s.UpdateDocument(ctx, missing), ErrNotFound)
}

func TestListAndCountDocuments(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	first := createTestDocument(t, s, "First")
	second := createTestDocument(t, s, "Second")
	third := createTestDocument(t, s, "Third")

	n, err := s.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := s.ListDocuments(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, third.ID, page[0].ID)
	assert.Equal(t, second.ID, page[1].ID)

	page, err = s.ListDocuments(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	page, err = s.ListDocuments(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestReplaceAuthorsAndKeywords(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Doc")

	require.NoError(t, s.ReplaceAuthors(ctx, doc.ID, []string{"Juan Dela Cruz", "Maria Santos"}))
	require.NoError(t, s.ReplaceKeywords(ctx, doc.ID, []string{"irrigation", "IoT"}))

	authors, err := s.ListAuthors(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Juan Dela Cruz", "Maria Santos"}, authors)

	require.NoError(t, s.ReplaceAuthors(ctx, doc.ID, []string{"Ana Reyes"}))
	authors, err = s.ListAuthors(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana Reyes"}, authors)

	keywords, err := s.ListKeywords(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"irrigation", "IoT"}, keywords)
}

func TestChunksAndSections(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Doc")

	section := &Section{DocumentID: doc.ID, Heading: types.SectionAbstract, Content: "text", OrderNo: 1}
	require.NoError(t, s.CreateSection(ctx, section))

	for i := 1; i <= 3; i++ {
		c := &Chunk{DocumentID: doc.ID, SectionID: &section.ID, Content: "chunk content here", OrdInSec: i, TokenCount: 4}
		require.NoError(t, s.CreateChunk(ctx, c))
	}

	chunks, err := s.ListChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i+1, c.OrdInSec)
		require.NotNil(t, c.SectionID)
		assert.Equal(t, section.ID, *c.SectionID)
	}

	// deleting the section keeps chunks but clears their section
	require.NoError(t, s.DeleteSectionsByDocument(ctx, doc.ID))
	chunks, err = s.ListChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Nil(t, chunks[0].SectionID)

	require.NoError(t, s.DeleteChunksByDocument(ctx, doc.ID))
	chunks, err = s.ListChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestResolveChunks(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Smart Irrigation System")

	section := &Section{DocumentID: doc.ID, Heading: types.SectionAbstract, Content: "x", OrderNo: 1}
	require.NoError(t, s.CreateSection(ctx, section))
	c1 := &Chunk{DocumentID: doc.ID, SectionID: &section.ID, Content: "first chunk", OrdInSec: 1}
	c2 := &Chunk{DocumentID: doc.ID, Content: "loose chunk", OrdInSec: 1}
	require.NoError(t, s.CreateChunk(ctx, c1))
	require.NoError(t, s.CreateChunk(ctx, c2))

	hits, err := s.ResolveChunks(ctx, []int64{c1.ID, c2.ID, 777})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first chunk", hits[c1.ID].Content)
	assert.Equal(t, doc.ID, hits[c1.ID].DocumentID)
	assert.Equal(t, "Smart Irrigation System", hits[c1.ID].Title)
	assert.Equal(t, 2023, hits[c1.ID].Year)
	require.NotNil(t, hits[c1.ID].SectionID)
	assert.Nil(t, hits[c2.ID].SectionID)

	empty, err := s.ResolveChunks(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbeddings(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Doc")
	c := &Chunk{DocumentID: doc.ID, Content: "chunk", OrdInSec: 1}
	require.NoError(t, s.CreateChunk(ctx, c))

	dim, err := s.EmbeddingDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dim)

	emb := &Embedding{ChunkID: c.ID, Vector: []float32{0.1, 0.2, 0.3}, Provider: "local", Model: "m"}
	require.NoError(t, s.UpsertEmbedding(ctx, emb))
	assert.Equal(t, 3, emb.Dimension)

	got, err := s.GetEmbedding(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Vector)
	assert.Equal(t, "local", got.Provider)

	dim, err = s.EmbeddingDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	// replacing the same chunk's vector is allowed
	require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{ChunkID: c.ID, Vector: []float32{1, 0, 0}, Provider: "local", Model: "m"}))

	other := &Chunk{DocumentID: doc.ID, Content: "other", OrdInSec: 2}
	require.NoError(t, s.CreateChunk(ctx, other))
	err = s.UpsertEmbedding(ctx, &Embedding{ChunkID: other.ID, Vector: []float32{1, 2}, Provider: "local", Model: "m"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = s.UpsertEmbedding(ctx, &Embedding{ChunkID: other.ID, Vector: []float32{1, 2, 3}, Dimension: 4})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.GetEmbedding(ctx, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLexicalLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Smart Irrigation System")

	row := &LexicalRow{
		DocumentID: doc.ID,
		Title:      "Smart Irrigation System",
		Abstract:   "Automated watering of rice fields",
		Content:    "Automated watering of rice fields irrigation IoT",
	}
	require.NoError(t, s.UpsertLexical(ctx, row))

	got, err := s.GetLexical(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Smart Irrigation System", got.Title)

	results, err := s.SearchText(ctx, "irrigation", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, doc.ID, results[0].DocumentID)
	assert.Greater(t, results[0].Score, 0.0)
	assert.LessOrEqual(t, results[0].Score, 1.0)

	// upsert replaces rather than duplicates
	row.Title = "Renamed Study"
	require.NoError(t, s.UpsertLexical(ctx, row))
	results, err = s.SearchText(ctx, "watering", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	require.NoError(t, s.DeleteLexical(ctx, doc.ID))
	_, err = s.GetLexical(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	results, err = s.SearchText(ctx, "irrigation", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchText_Sanitized(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Doc")
	require.NoError(t, s.UpsertLexical(ctx, &LexicalRow{DocumentID: doc.ID, Title: "Soil NOT moisture", Content: "sensor"}))

	results, err := s.SearchText(ctx, `"soil" AND (moisture*`, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = s.SearchText(ctx, `*** ()`, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.SearchText(ctx, "soil", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchText_Ranking(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	weak := createTestDocument(t, s, "Weak")
	strong := createTestDocument(t, s, "Strong")

	require.NoError(t, s.UpsertLexical(ctx, &LexicalRow{DocumentID: weak.ID, Title: "Crop yields",
		Content: "A long discussion of many unrelated agricultural topics including irrigation once among other words and more words"}))
	require.NoError(t, s.UpsertLexical(ctx, &LexicalRow{DocumentID: strong.ID, Title: "Irrigation irrigation",
		Content: "irrigation"}))

	results, err := s.SearchText(ctx, "irrigation", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, strong.ID, results[0].DocumentID)
	assert.Greater(t, results[0].Score, results[1].Score, "stronger match must score higher")
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
		assert.Less(t, r.Score, 1.0)
	}
}

func TestDeleteDocument_Cascade(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Doc")

	require.NoError(t, s.ReplaceAuthors(ctx, doc.ID, []string{"Juan Dela Cruz"}))
	require.NoError(t, s.ReplaceKeywords(ctx, doc.ID, []string{"k"}))
	section := &Section{DocumentID: doc.ID, Heading: types.SectionAbstract, Content: "x", OrderNo: 1}
	require.NoError(t, s.CreateSection(ctx, section))
	c := &Chunk{DocumentID: doc.ID, SectionID: &section.ID, Content: "chunk", OrdInSec: 1}
	require.NoError(t, s.CreateChunk(ctx, c))
	require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{ChunkID: c.ID, Vector: []float32{1, 0}}))
	require.NoError(t, s.UpsertLexical(ctx, &LexicalRow{DocumentID: doc.ID, Title: "Doc"}))

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	for _, table := range []string{"documents", "authors", "keywords", "sections", "chunks", "embeddings", "documents_fts"} {
		var n int
		require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}

	assert.ErrorIs(t, s.DeleteDocument(ctx, doc.ID), ErrNotFound)
}

func TestDeleteTrigger_ClearsLexical(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Doc")
	require.NoError(t, s.UpsertLexical(ctx, &LexicalRow{DocumentID: doc.ID, Title: "Doc"}))

	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", doc.ID)
	require.NoError(t, err)

	_, err = s.GetLexical(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBeginTx_CommitRollback(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	doc := &Document{ContentHash: types.ContentHash("rolled back", nil, ""), Title: "rolled back"}
	require.NoError(t, tx.CreateDocument(ctx, doc))
	require.NoError(t, tx.UpsertLexical(ctx, &LexicalRow{DocumentID: doc.ID, Title: "rolled back"}))

	// reads inside the tx see the write
	got, err := tx.GetDocumentByHash(ctx, doc.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	require.NoError(t, tx.Rollback())

	_, err = s.GetDocumentByHash(ctx, doc.ContentHash)
	assert.ErrorIs(t, err, ErrNotFound)
	results, err := s.SearchText(ctx, "rolled", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	tx, err = s.BeginTx(ctx)
	require.NoError(t, err)
	committed := &Document{ContentHash: types.ContentHash("committed", nil, ""), Title: "committed"}
	require.NoError(t, tx.CreateDocument(ctx, committed))
	require.NoError(t, tx.Commit())

	_, err = s.GetDocument(ctx, committed.ID)
	assert.NoError(t, err)

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	doc := createTestDocument(t, s, "Doc")
	c := &Chunk{DocumentID: doc.ID, Content: "chunk", OrdInSec: 1}
	require.NoError(t, s.CreateChunk(ctx, c))
	require.NoError(t, s.UpsertEmbedding(ctx, &Embedding{ChunkID: c.ID, Vector: []float32{1, 0, 0, 0}}))

	status, err := s.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Documents)
	assert.Equal(t, 1, status.Chunks)
	assert.Equal(t, 1, status.Embeddings)
	assert.Equal(t, 4, status.Dimension)
	assert.Equal(t, DriverName, status.Driver)
	assert.Equal(t, BuildMode, status.BuildMode)
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.EmbeddingsAvailable)
	assert.True(t, status.Health.LexicalIndexBuilt)
}

func TestMigrations_Rollback(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	v, err := currentVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	require.NoError(t, RollbackMigration(ctx, s.db))
	v, err = currentVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	// reapplying restores the lexical index
	require.NoError(t, ApplyMigrations(ctx, s.db))
	v, err = currentVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	require.NoError(t, RollbackMigration(ctx, s.db))
	require.NoError(t, RollbackMigration(ctx, s.db))
	v, err = currentVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", v.String())
	assert.Error(t, RollbackMigration(ctx, s.db))
}

func TestToTypesDocument(t *testing.T) {
	d := &Document{ID: 7, Title: "T", Year: 2020}
	out := d.ToTypesDocument(nil, []string{"k"})
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, []string{}, out.Authors)
	assert.Equal(t, []string{"k"}, out.Keywords)

	in := types.DocumentInput{Entry: types.Entry{Title: "X", Year: 1999}, Filename: "f.docx"}
	row := DocumentFromInput(in, "hash")
	assert.Equal(t, "hash", row.ContentHash)
	assert.Equal(t, 1999, row.Year)
	assert.Equal(t, "f.docx", row.Filename)
}
