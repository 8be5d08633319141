package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/dshills/scholarrag/internal/completion"
	"github.com/dshills/scholarrag/internal/config"
	"github.com/dshills/scholarrag/internal/logging"
	"github.com/dshills/scholarrag/pkg/types"
)

// Defaults applied when a config value is unset
const (
	DefaultTTL               = time.Hour
	DefaultCacheSize         = 1000
	DefaultMaxPassages       = 10
	DefaultPassageChars      = 1200
	DefaultGenerationTimeout = 150 * time.Second
	DefaultMaxConcurrent     = 4
)

var (
	// ErrNoPassages is returned when retrieval finds nothing to summarize
	ErrNoPassages = errors.New("no passages retrieved for query")
	// ErrClosed is returned by Summarize after Close
	ErrClosed = errors.New("summarizer closed")
)

// Retriever returns ranked chunk hits for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]types.Hit, error)
}

// AuthorLister returns a document's authors in order
type AuthorLister interface {
	ListAuthors(ctx context.Context, documentID int64) ([]string, error)
}

// Orchestrator generates cited summaries in the background and caches them.
// At most one generation runs per key at any time.
type Orchestrator struct {
	retriever Retriever
	authors   AuthorLister
	completer completion.Completer
	cfg       config.SummaryConfig
	log       *logging.Logger

	cache   *expirable.LRU[string, *types.Summary]
	sem     *semaphore.Weighted
	limiter *rate.Limiter // nil when unlimited

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// New creates an Orchestrator
func New(retriever Retriever, authors AuthorLister, completer completion.Completer,
	cfg config.SummaryConfig, log *logging.Logger) *Orchestrator {

	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.MaxPassages <= 0 {
		cfg.MaxPassages = DefaultMaxPassages
	}
	if cfg.PassageChars <= 0 {
		cfg.PassageChars = DefaultPassageChars
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if log == nil {
		log = logging.Nop()
	}

	o := &Orchestrator{
		retriever: retriever,
		authors:   authors,
		completer: completer,
		cfg:       cfg,
		log:       log,
		cache:     expirable.NewLRU[string, *types.Summary](cfg.CacheSize, nil, cfg.TTL),
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		inflight:  make(map[string]struct{}),
	}
	if cfg.RequestsPerMinute > 0 {
		o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return o
}

// Summarize retrieves passages for query and returns the summary key with its
// state. A cached key is ready. A key already being generated is pending and
// no new work starts. Otherwise generation starts in the background and the
// key is pending. Generation failures never reach the caller; the key simply
// stays absent.
func (o *Orchestrator) Summarize(ctx context.Context, query string, k int) (string, types.SummaryState, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", types.SummaryAbsent, types.ErrEmptyQuery
	}
	if k <= 0 {
		return "", types.SummaryAbsent, types.ErrInvalidLimit
	}

	hits, err := o.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return "", types.SummaryAbsent, fmt.Errorf("failed to retrieve passages: %w", err)
	}
	if n := min(k, o.cfg.MaxPassages); len(hits) > n {
		hits = hits[:n]
	}
	if len(hits) == 0 {
		return "", types.SummaryAbsent, ErrNoPassages
	}

	passages, err := o.buildPassages(ctx, hits)
	if err != nil {
		return "", types.SummaryAbsent, err
	}
	ids := make([]int64, len(passages))
	for i, p := range passages {
		ids[i] = p.DocumentID
	}
	key := CacheKey(ids, query)

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return "", types.SummaryAbsent, ErrClosed
	}
	// A finished generation stores its result before leaving the in-flight
	// set, so checking the cache under the lock cannot miss it.
	if _, ok := o.inflight[key]; ok {
		o.mu.Unlock()
		return key, types.SummaryPending, nil
	}
	if _, ok := o.cache.Get(key); ok {
		o.mu.Unlock()
		return key, types.SummaryReady, nil
	}
	o.inflight[key] = struct{}{}
	o.wg.Add(1)
	o.mu.Unlock()

	go o.generate(key, query, passages)

	o.log.Debug("summary requested", "key", key, "passages", len(passages))
	return key, types.SummaryPending, nil
}

// buildPassages groups hits by document in rank order. Each passage joins its
// document's chunk texts and is cut to PassageChars.
func (o *Orchestrator) buildPassages(ctx context.Context, hits []types.Hit) ([]Passage, error) {
	passages := make([]Passage, 0, len(hits))
	for _, dh := range types.GroupHits(hits) {
		names, err := o.authors.ListAuthors(ctx, dh.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list authors: %w", err)
		}
		passages = append(passages, Passage{
			DocumentID: dh.DocumentID,
			Title:      dh.Title,
			Authors:    strings.Join(names, ", "),
			Year:       dh.Year,
			Content:    truncateRunes(strings.Join(dh.Snippets, " "), o.cfg.PassageChars),
		})
	}
	return passages, nil
}

// generate runs on its own goroutine under a detached, time-bounded context
func (o *Orchestrator) generate(key, query string, passages []Passage) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		delete(o.inflight, key)
		o.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.GenerationTimeout)
	defer cancel()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.log.Warn("summary generation not started", "key", key, "error", err)
		return
	}
	defer o.sem.Release(1)

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			o.log.Warn("summary generation rate limited", "key", key, "error", err)
			return
		}
	}

	start := time.Now()
	text, err := o.completer.Complete(ctx, BuildPrompt(query, passages))
	if err != nil {
		o.log.Error("summary generation failed",
			"key", key,
			"provider", o.completer.Provider(),
			"error", err)
		return
	}

	text = strings.TrimSpace(text)
	summary := &types.Summary{
		SummaryText: text,
		References:  ParseCitations(text, passages),
	}
	o.cache.Add(key, summary)

	o.log.Info("summary generated",
		"key", key,
		"references", len(summary.References),
		"duration", time.Since(start))
}

// Get returns the cached summary for key. Unknown, expired and in-flight keys
// are absent.
func (o *Orchestrator) Get(key string) (*types.Summary, bool) {
	s, ok := o.cache.Get(key)
	if !ok {
		return nil, false
	}
	out := &types.Summary{
		SummaryText: s.SummaryText,
		References:  append([]types.Reference(nil), s.References...),
	}
	return out, true
}

// State reports where key stands without starting any work
func (o *Orchestrator) State(key string) types.SummaryState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inflight[key]; ok {
		return types.SummaryPending
	}
	if _, ok := o.cache.Get(key); ok {
		return types.SummaryReady
	}
	return types.SummaryAbsent
}

// Wait blocks until key leaves the in-flight set or ctx is done, then returns
// the cached summary if generation succeeded.
func (o *Orchestrator) Wait(ctx context.Context, key string, poll time.Duration) (*types.Summary, bool, error) {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if o.State(key) != types.SummaryPending {
			s, ok := o.Get(key)
			return s, ok, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close rejects new requests and waits for background generations to finish
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.wg.Wait()
}
