package embedder

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is a vector produced for one text
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
}

// EmbeddingRequest represents a request to generate embeddings
type EmbeddingRequest struct {
	Text  string
	Model string // Optional: override default model
}

// BatchEmbeddingRequest represents a batch request
type BatchEmbeddingRequest struct {
	Texts []string
	Model string // Optional: override default model
}

// BatchEmbeddingResponse holds one embedding per input text, in input order
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder maps text to fixed-dimension vectors. Every vector an Embedder
// returns has length Dimension().
type Embedder interface {
	// GenerateEmbedding generates a single embedding for the given text
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch generates embeddings for multiple texts efficiently
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// EmbedTexts embeds texts in batches of at most DefaultBatchSize and returns
// the raw vectors in input order.
func EmbedTexts(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += DefaultBatchSize {
		end := start + DefaultBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		resp, err := e.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts[start:end]})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
				ErrProviderFailed, end-start, len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			vectors = append(vectors, emb.Vector)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query
func EmbedQuery(ctx context.Context, e Embedder, query string) ([]float32, error) {
	emb, err := e.GenerateEmbedding(ctx, EmbeddingRequest{Text: query})
	if err != nil {
		return nil, err
	}
	return emb.Vector, nil
}

func validateRequest(req EmbeddingRequest) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	return nil
}

func validateBatch(req BatchEmbeddingRequest) error {
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}

	for i, text := range req.Texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}

	return nil
}
