package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// TargetChars is the packing limit for a chunk, in characters
	TargetChars = 1200

	// MinChars is the length a trimmed chunk must exceed to be kept
	MinChars = 20

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4
)

// Chunker splits prose into sentence-aligned chunks
type Chunker struct {
	target int
	min    int
}

// New creates a Chunker with the default limits
func New() *Chunker {
	return &Chunker{target: TargetChars, min: MinChars}
}

// NewWithLimits creates a Chunker with custom limits; non-positive values keep the defaults
func NewWithLimits(target, min int) *Chunker {
	c := New()
	if target > 0 {
		c.target = target
	}
	if min > 0 {
		c.min = min
	}
	return c
}

// Chunk splits text into sentences and packs them greedily into chunks of at
// most the target length. A sentence longer than the target becomes a chunk on
// its own. Chunks no longer than the minimum are dropped.
func (c *Chunker) Chunk(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks []string
		buf    string
	)
	for _, s := range sentences {
		if charLen(buf)+charLen(s)+1 <= c.target {
			buf = strings.TrimSpace(buf + " " + s)
			continue
		}
		if buf != "" {
			chunks = append(chunks, buf)
		}
		buf = s
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}

	kept := chunks[:0]
	for _, ch := range chunks {
		if charLen(strings.TrimSpace(ch)) > c.min {
			kept = append(kept, ch)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// SplitSentences breaks text at whitespace runs that follow '.', '!' or '?'
// and precede an ASCII capital letter or an opening parenthesis.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsSpace(r) || i == 0 || !isTerminal(text[i-1]) {
			i += size
			continue
		}

		// Consume the whole whitespace run
		j := i
		for j < len(text) {
			rr, sz := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(rr) {
				break
			}
			j += sz
		}
		if j < len(text) && opensSentence(text[j]) {
			sentences = append(sentences, text[start:i])
			start = j
		}
		i = j
	}
	return append(sentences, text[start:])
}

// EstimateTokenCount estimates the number of tokens in text using a simple heuristic
func EstimateTokenCount(text string) int {
	return charLen(text) / TokensPerChar
}

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func opensSentence(b byte) bool {
	return (b >= 'A' && b <= 'Z') || b == '('
}

func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
