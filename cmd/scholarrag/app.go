package main

import (
	"context"
	"fmt"

	"github.com/dshills/scholarrag/internal/completion"
	"github.com/dshills/scholarrag/internal/config"
	"github.com/dshills/scholarrag/internal/embedder"
	"github.com/dshills/scholarrag/internal/indexer"
	"github.com/dshills/scholarrag/internal/logging"
	"github.com/dshills/scholarrag/internal/searcher"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/internal/summarizer"
)

// app holds the wired components shared by every command
type app struct {
	cfg        *config.Config
	log        *logging.Logger
	store      *storage.SQLiteStorage
	embedder   embedder.Embedder
	indexer    *indexer.Indexer
	searcher   *searcher.Searcher
	summarizer *summarizer.Orchestrator
}

// newApp loads configuration and opens storage. The summarizer is only
// built when withSummaries is set since it needs a completion provider.
func newApp(withSummaries bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logMode != "" {
		cfg.Log.Mode = logMode
	}

	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &app{cfg: cfg, log: log, store: store}

	sources, err := storage.NewFileSourceStore(cfg.Storage.SourceDir)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open source store: %w", err)
	}

	a.embedder, err = embedder.New(cfg.Embedder)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	a.indexer = indexer.New(store, a.embedder, sources, log, &indexer.Config{Workers: cfg.Indexer.Workers})
	a.searcher = searcher.New(store, a.embedder, searcher.Config{
		LexicalLimit:        cfg.Retrieval.LexicalLimit,
		LexicalBoost:        cfg.Retrieval.LexicalBoost,
		CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
		MinSimilarity:       cfg.Retrieval.MinSimilarity,
	}, log)

	if withSummaries {
		completer, err := completion.New(cfg.Completion)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create completer: %w", err)
		}
		a.summarizer = summarizer.New(a.searcher, store, completer, cfg.Summary, log)
		log.Info("completion provider ready", "provider", completer.Provider(), "model", completer.Model())
	}

	log.Info("scholarrag ready",
		"db", cfg.Storage.DBPath,
		"embedding_provider", a.embedder.Provider(),
		"embedding_model", a.embedder.Model(),
		"build_mode", storage.BuildMode)
	return a, nil
}

func (a *app) close() {
	if a.summarizer != nil {
		a.summarizer.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close storage", "error", err)
		}
	}
	a.log.Sync()
}

// run builds the app, hands it to fn and tears it down afterwards
func run(ctx context.Context, withSummaries bool, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(withSummaries)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
