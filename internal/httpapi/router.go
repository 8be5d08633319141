// Package httpapi exposes ingestion, search and summaries over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/scholarrag/internal/indexer"
	"github.com/dshills/scholarrag/internal/logging"
	"github.com/dshills/scholarrag/internal/searcher"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/internal/summarizer"
)

// RouterConfig carries the components the handlers call into
type RouterConfig struct {
	Storage    storage.Storage
	Indexer    *indexer.Indexer
	Searcher   *searcher.Searcher
	Summarizer *summarizer.Orchestrator
	Logger     *logging.Logger
	DefaultK   int
}

// NewRouter builds the gin engine with every route registered
func NewRouter(cfg RouterConfig) *gin.Engine {
	h := newHandler(cfg)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(cfg.Logger))
	r.MaxMultipartMemory = maxUploadBytes

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.POST("/documents", h.CreateDocument)
		api.POST("/documents/upload", h.UploadDocx)
		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.DELETE("/documents/:id", h.DeleteDocument)

		api.GET("/search", h.Search)

		api.POST("/summarize", h.Summarize)
		api.GET("/summaries/:key", h.GetSummary)
	}

	return r
}

// Server runs the router on an address until its context is cancelled
type Server struct {
	Engine *gin.Engine
	log    *logging.Logger
}

func NewServer(cfg RouterConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Server{Engine: NewRouter(cfg), log: log}
}

// Run serves on address and shuts down gracefully when ctx is done
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
