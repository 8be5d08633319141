package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// searchVector performs vector similarity search using cosine similarity.
// Results are ordered by similarity descending, ties by chunk id ascending.
func searchVector(ctx context.Context, q querier, queryVector []float32, limit int, minSimilarity float64) ([]VectorResult, error) {
	if limit <= 0 || len(queryVector) == 0 {
		return []VectorResult{}, nil
	}
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, q, queryVector, limit, minSimilarity)
	}
	return searchVectorFallback(ctx, q, queryVector, limit, minSimilarity)
}

// searchVectorOptimized ranks inside SQLite with the registered vec_distance_cosine
func searchVectorOptimized(ctx context.Context, q querier, queryVector []float32, limit int, minSimilarity float64) ([]VectorResult, error) {
	blob := serializeVector(queryVector)

	query := `
		SELECT chunk_id, 1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM embeddings
		WHERE dimension = ?
	`
	args := []interface{}{blob, len(queryVector)}

	if minSimilarity != 0 {
		query += " AND (1.0 - vec_distance_cosine(vector, ?)) >= ?"
		args = append(args, blob, minSimilarity)
	}

	query += " ORDER BY similarity DESC, chunk_id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.ChunkID, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchVectorFallback scans every stored vector and ranks in Go
func searchVectorFallback(ctx context.Context, q querier, queryVector []float32, limit int, minSimilarity float64) ([]VectorResult, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT chunk_id, vector FROM embeddings WHERE dimension = ?", len(queryVector))
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]VectorResult, 0, 256)
	for rows.Next() {
		var (
			chunkID int64
			blob    []byte
		)
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}

		similarity := cosineSimilarity(queryVector, vector)
		if minSimilarity != 0 && similarity < minSimilarity {
			continue
		}
		candidates = append(candidates, VectorResult{ChunkID: chunkID, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortVectorResults(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// searchText performs BM25 full-text search over the documents_fts table
func searchText(ctx context.Context, q querier, query string, limit int) ([]TextResult, error) {
	if limit <= 0 {
		return []TextResult{}, nil
	}
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return []TextResult{}, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT rowid, bm25(documents_fts) AS score
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY score ASC, rowid ASC
		LIMIT ?
	`, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute text search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var (
			id   int64
			bm25 float64
		)
		if err := rows.Scan(&id, &bm25); err != nil {
			return nil, err
		}
		results = append(results, TextResult{DocumentID: id, Score: normalizeBM25(bm25)})
	}
	return results, rows.Err()
}

// normalizeBM25 maps an FTS5 bm25 value (negative, lower is better) into
// [0, 1) so that stronger matches score higher
func normalizeBM25(score float64) float64 {
	a := math.Abs(score)
	return a / (1.0 + a)
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity accumulates in float64; zero-norm inputs score 0
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func sortVectorResults(results []VectorResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkID < results[j].ChunkID
	})
}

var ftsTermPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// sanitizeFTSQuery turns free text into an FTS5 query of OR-joined quoted
// terms. Operators and punctuation never reach the MATCH expression.
func sanitizeFTSQuery(query string) string {
	terms := ftsTermPattern.FindAllString(query, -1)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
