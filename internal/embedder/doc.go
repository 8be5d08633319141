// Package embedder turns text into fixed-dimension vectors for the chunk index.
//
// Providers: Jina AI and OpenAI (both OpenAI-compatible /embeddings APIs),
// Ollama (/api/embeddings, one text per request) and an offline hashed
// bag-of-words provider that needs no network. Each provider reports a single
// Dimension; the indexer refuses to mix dimensions in one store.
//
// # Usage
//
//	emb, err := embedder.New(cfg.Embedder)
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	vectors, err := embedder.EmbedTexts(ctx, emb, chunks)
//
// EmbedTexts splits input into batches of DefaultBatchSize. Remote providers
// consult an LRU cache keyed by model and text before calling upstream, and
// retry transient failures with exponential backoff. HTTP 4xx responses other
// than 408 and 429 are not retried.
//
// # Provider selection
//
// config.EmbedderConfig.Provider picks a provider explicitly (jina, openai,
// ollama, local). When empty, JINA_API_KEY wins over OPENAI_API_KEY, and with
// neither set the local provider is used.
package embedder
