// Package chunker divides abstract text into sentence-aligned chunks for embedding.
//
// # Basic Usage
//
//	c := chunker.New()
//	for i, part := range c.Chunk(abstract) {
//	    fmt.Printf("chunk %d: %d chars\n", i+1, len(part))
//	}
//
// # Strategy
//
// Text is first segmented into sentences: a boundary is a whitespace run that
// follows '.', '!' or '?' and precedes a capital letter or '('. Sentences are
// then packed greedily, joined by a single space, while the running buffer plus
// the next sentence stays within TargetChars (1200). When it would not, the
// buffer is emitted and the sentence starts a new one.
//
// Chunks whose trimmed length is MinChars (20) or less are discarded. Lengths are
// counted in characters, not bytes.
//
// Chunk is a pure function of its input: the same text always yields the same
// chunks, and empty or whitespace-only text yields none.
package chunker
