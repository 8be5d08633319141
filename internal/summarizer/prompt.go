package summarizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/scholarrag/pkg/types"
)

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Passage is one document's evidence as presented to the model. Passages are
// numbered from 1 in prompt order and citations refer to those numbers.
type Passage struct {
	DocumentID int64
	Title      string
	Authors    string
	Year       int
	Content    string
}

// CacheKey derives the summary key from the contributing document ids and the
// query. Id order does not matter and the query is compared case-insensitively
// after trimming.
func CacheKey(documentIDs []int64, query string) string {
	ids := append([]int64(nil), documentIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	basis := "[" + strings.Join(parts, ", ") + "]:" + strings.ToLower(strings.TrimSpace(query))

	sum := sha256.Sum256([]byte(basis))
	return hex.EncodeToString(sum[:])
}

// BuildPrompt renders the grounded summarization prompt
func BuildPrompt(query string, passages []Passage) string {
	var refs strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&refs, "[%d] %s\n", i+1, p.Title)
		fmt.Fprintf(&refs, "    Authors: %s\n", p.Authors)
		fmt.Fprintf(&refs, "    Year: %s\n", yearLabel(p.Year))
		fmt.Fprintf(&refs, "    Abstract: %s\n\n", p.Content)
	}

	return fmt.Sprintf(`Based on the following research capstone abstracts, provide a comprehensive summary that answers the user's query: "%s"

References:
%s

Instructions:
1. Synthesize information from the provided abstracts to answer the query
2. Use [N] format to cite specific capstones (e.g., [1], [2], [3])
3. Include multiple citations when combining information from different sources
4. Keep the summary concise (2-3 paragraphs maximum)
5. Focus on directly addressing the user's query

Generate a well-structured summary with proper citations:`, query, refs.String())
}

func yearLabel(year int) string {
	if year == 0 {
		return "n.d."
	}
	return strconv.Itoa(year)
}

// ParseCitations resolves the [n] markers in text against passages. Markers
// outside 1..len(passages) and repeats are ignored; the result is sorted by
// index.
func ParseCitations(text string, passages []Passage) []types.Reference {
	refs := make([]types.Reference, 0)
	seen := make(map[int]bool)
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(passages) || seen[n] {
			continue
		}
		seen[n] = true
		p := passages[n-1]
		refs = append(refs, types.Reference{
			Index:      n,
			DocumentID: p.DocumentID,
			Title:      p.Title,
			Authors:    p.Authors,
			Year:       p.Year,
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Index < refs[j].Index })
	return refs
}

// truncateRunes cuts s to at most n characters
func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
