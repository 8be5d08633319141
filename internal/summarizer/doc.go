// Package summarizer produces cited natural-language answers from retrieved
// passages.
//
// Summarize returns a key immediately and generates in the background; callers
// poll Get with the key. Each key moves through
//
//	absent -> pending -> ready -> (TTL) -> absent
//	absent -> pending -> absent          (generation failed)
//
// The key hashes the sorted ids of the contributing documents with the
// lower-cased query, so the same evidence and question share one cache entry.
// While a key is pending, further requests for it start no new work.
package summarizer
