// Package indexer coordinates the ingestion pipeline for research documents.
//
// The indexer orchestrates parsing, chunking, embedding, and storage
// operations. Each document is written in a single transaction, so a reader
// never observes a half-indexed document.
//
// # Basic Usage
//
//	idx := indexer.New(store, emb, sources, log, &indexer.Config{Workers: 4})
//
//	res, err := idx.IndexDocument(ctx, types.DocumentInput{Entry: entry}, indexer.Options{})
//	batch, err := idx.IndexDocx(ctx, "capstones-2023.docx", raw)
//
// # Ingestion Pipeline
//
//  1. Validate: an entry needs a title or an abstract
//  2. Hash: title, authors and the abstract prefix identify the document
//  3. Lock: ingestion of one hash is serialized, other hashes run in parallel
//  4. Chunk & Embed: happens before any write, a provider failure writes nothing
//  5. Store: document, authors, keywords, the ABSTRACT section, chunks with
//     embeddings and the lexical row, committed together
//
// Re-ingesting a known hash deletes the old children and rewrites them under
// the same document id. Set Options.SkipExisting to report the document as a
// duplicate instead.
//
// # Compilations
//
// IndexDocx parses a .docx compilation and indexes its entries with a bounded
// worker pool. Per-entry failures are collected in BatchResult.ErrorMessages.
package indexer
