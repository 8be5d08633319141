package types

// Hit is one retrieved chunk with its owning document metadata
type Hit struct {
	ChunkID    int64   `json:"chunk_id"`
	Content    string  `json:"content"`
	DocumentID int64   `json:"document_id"`
	SectionID  *int64  `json:"section_id,omitempty"`
	Title      string  `json:"title"`
	Year       int     `json:"year,omitempty"`
	Score      float64 `json:"score"`
}

// DocumentHit groups the hits of one document in rank order
type DocumentHit struct {
	DocumentID int64    `json:"document_id"`
	Title      string   `json:"title"`
	Year       int      `json:"year,omitempty"`
	Score      float64  `json:"score"`
	Snippets   []string `json:"snippets"`
}

// GroupHits folds ranked chunk hits into ranked document hits.
// A document's score is that of its best chunk, and documents keep the order
// in which they first appear.
func GroupHits(hits []Hit) []DocumentHit {
	out := make([]DocumentHit, 0, len(hits))
	index := make(map[int64]int, len(hits))
	for _, h := range hits {
		if i, ok := index[h.DocumentID]; ok {
			out[i].Snippets = append(out[i].Snippets, h.Content)
			continue
		}
		index[h.DocumentID] = len(out)
		out = append(out, DocumentHit{
			DocumentID: h.DocumentID,
			Title:      h.Title,
			Year:       h.Year,
			Score:      h.Score,
			Snippets:   []string{h.Content},
		})
	}
	return out
}
