// Package storage provides SQLite-based persistence for indexed research documents.
//
// The storage layer manages:
//   - Documents, identified by a unique content hash
//   - Authors and keywords, ordered by position
//   - Sections and their chunks
//   - One vector embedding per chunk
//   - The FTS5 lexical index (one row per document)
//
// # Database Schema
//
// Tables:
//   - documents: scalar metadata and content_hash (UNIQUE)
//   - authors, keywords: owned lists, ON DELETE CASCADE
//   - sections: heading, content, order_no
//   - chunks: content and ord_in_sec; section_id is SET NULL when the section goes
//   - embeddings: little-endian float32 BLOB, dimension, provider, model
//   - documents_fts: FTS5 (title, abstract, content), porter unicode61 tokenizer,
//     rowid = document id, cleared by trigger when the document is deleted
//
// Schema changes are semver-ordered migrations recorded in schema_version.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.scholarrag/scholarrag.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	doc, err := db.GetDocumentByHash(ctx, hash)
//
// # Transactions
//
// Ingestion writes a document and all its children atomically:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.CreateDocument(ctx, doc); err != nil {
//	    return err
//	}
//	// ... authors, sections, chunks, embeddings, lexical row
//	return tx.Commit()
//
// The pool holds one connection, so code holding a Tx must use it for every
// statement until Commit or Rollback.
//
// # Search
//
// SearchText sanitizes free text into OR-joined quoted terms and ranks by
// bm25, normalized to [0, 1) with higher meaning better. SearchVector compares
// the query against every stored vector of the same dimension by cosine
// similarity and orders by similarity descending, then chunk id ascending.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite and ranks vectors in Go. Building
// with -tags "sqlite_vec sqlite_fts5" and CGO_ENABLED=1 switches to
// github.com/mattn/go-sqlite3 and registers a vec_distance_cosine SQL function
// so ranking and LIMIT run inside SQLite.
package storage
