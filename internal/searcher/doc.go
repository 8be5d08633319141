// Package searcher implements hybrid retrieval over indexed research documents.
//
// A query runs two legs concurrently:
//   - Vector: the query is embedded and compared against every chunk embedding
//   - Lexical: full-text match over document titles, abstracts and keywords
//
// Vector candidates are the ranking; the lexical leg only adjusts it. A chunk
// whose document also matched lexically gains Config.LexicalBoost (0.05 by
// default). Results are ordered by boosted score descending, then chunk id
// ascending, so identical corpora and queries give identical output.
//
// # Basic Usage
//
//	s := searcher.New(store, emb, searcher.DefaultConfig(), log)
//
//	hits, err := s.Retrieve(ctx, "soil moisture irrigation", 12)
//	docs, err := s.Search(ctx, "soil moisture irrigation", 12)
//
// # Swapping the Vector Index
//
// The vector scan is brute force. NewSearcher takes the VectorIndex,
// LexicalIndex and ChunkResolver separately, so an approximate nearest
// neighbour index can replace the scan without touching the fusion logic.
package searcher
