package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dshills/scholarrag/internal/indexer"
	"github.com/dshills/scholarrag/internal/logging"
	"github.com/dshills/scholarrag/internal/parser"
	"github.com/dshills/scholarrag/internal/searcher"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/internal/summarizer"
	"github.com/dshills/scholarrag/pkg/types"
)

const (
	maxUploadBytes   = 64 << 20
	defaultPageLimit = 50
	maxPageLimit     = 500
	defaultK         = 12
)

type handler struct {
	storage    storage.Storage
	indexer    *indexer.Indexer
	searcher   *searcher.Searcher
	summarizer *summarizer.Orchestrator
	log        *logging.Logger
	defaultK   int
}

func newHandler(cfg RouterConfig) *handler {
	k := cfg.DefaultK
	if k <= 0 {
		k = defaultK
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &handler{
		storage:    cfg.Storage,
		indexer:    cfg.Indexer,
		searcher:   cfg.Searcher,
		summarizer: cfg.Summarizer,
		log:        log,
		defaultK:   k,
	}
}

type documentRequest struct {
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Authors       []string `json:"authors"`
	Keywords      []string `json:"keywords"`
	Year          int      `json:"year" binding:"gte=0"`
	Course        string   `json:"course"`
	Host          string   `json:"host"`
	DocType       string   `json:"doc_type"`
	ExternalLinks string   `json:"external_links"`
	Filename      string   `json:"filename"`
	SkipExisting  bool     `json:"skip_existing"`
}

type summarizeRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k" binding:"gte=0,lte=100"`
}

func (h *handler) Health(c *gin.Context) {
	status, err := h.storage.GetStatus(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusServiceUnavailable, "unavailable", err)
		return
	}
	RespondOK(c, gin.H{
		"ok":     status.Health.DatabaseAccessible,
		"status": status,
	})
}

func (h *handler) CreateDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	in := types.DocumentInput{
		Entry: types.Entry{
			Title:    req.Title,
			Authors:  req.Authors,
			Course:   req.Course,
			Host:     req.Host,
			DocType:  req.DocType,
			Keywords: req.Keywords,
			Year:     req.Year,
			Abstract: req.Abstract,
		},
		Filename:      req.Filename,
		ExternalLinks: req.ExternalLinks,
	}

	res, err := h.indexer.IndexDocument(c.Request.Context(), in, indexer.Options{SkipExisting: req.SkipExisting})
	switch {
	case errors.Is(err, types.ErrEmptyEntry):
		RespondError(c, http.StatusBadRequest, "empty_entry", err)
		return
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "index_failed", err)
		return
	}

	status := http.StatusCreated
	if res.Replaced || res.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *handler) UploadDocx(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), indexer.SourceExt) {
		RespondError(c, http.StatusBadRequest, "invalid_file", fmt.Errorf("expected a %s file", indexer.SourceExt))
		return
	}
	if fh.Size > maxUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errors.New("file exceeds upload limit"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	if len(raw) > maxUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errors.New("file exceeds upload limit"))
		return
	}

	stats, err := h.indexer.IndexDocx(c.Request.Context(), filepath.Base(fh.Filename), raw)
	switch {
	case errors.Is(err, indexer.ErrDocxTooSmall), errors.Is(err, indexer.ErrNoEntries),
		errors.Is(err, parser.ErrInvalidDocx):
		RespondError(c, http.StatusUnprocessableEntity, "file_rejected", err)
		return
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "index_failed", err)
		return
	}

	RespondOK(c, stats)
}

func (h *handler) ListDocuments(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("offset must be a non-negative integer"))
		return
	}
	limit, err := queryInt(c, "limit", defaultPageLimit)
	if err != nil || limit <= 0 || limit > maxPageLimit {
		RespondError(c, http.StatusBadRequest, "invalid_request",
			fmt.Errorf("limit must be between 1 and %d", maxPageLimit))
		return
	}

	docs, total, err := h.indexer.ListDocuments(c.Request.Context(), offset, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"documents": docs,
		"total":     total,
		"offset":    offset,
		"limit":     limit,
	})
}

func (h *handler) GetDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.indexer.Document(c.Request.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	RespondOK(c, doc)
}

func (h *handler) DeleteDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	err := h.indexer.DeleteDocument(c.Request.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	k, err := queryInt(c, "k", h.defaultK)
	if err != nil || k <= 0 || k > searcher.MaxK {
		RespondError(c, http.StatusBadRequest, "invalid_request",
			fmt.Errorf("k must be between 1 and %d", searcher.MaxK))
		return
	}

	results, err := h.searcher.Search(c.Request.Context(), query, k)
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		RespondError(c, http.StatusBadRequest, "empty_query", err)
		return
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}

func (h *handler) Summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	k := req.K
	if k == 0 {
		k = h.defaultK
	}

	key, state, err := h.summarizer.Summarize(c.Request.Context(), req.Query, k)
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		RespondError(c, http.StatusBadRequest, "empty_query", err)
		return
	case errors.Is(err, summarizer.ErrNoPassages):
		RespondError(c, http.StatusNotFound, "no_passages", err)
		return
	case errors.Is(err, summarizer.ErrClosed):
		RespondError(c, http.StatusServiceUnavailable, "unavailable", err)
		return
	case err != nil:
		RespondError(c, http.StatusInternalServerError, "summarize_failed", err)
		return
	}

	if summary, ok := h.summarizer.Get(key); ok {
		RespondOK(c, gin.H{"key": key, "state": types.SummaryReady, "summary": summary})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"key": key, "state": state})
}

func (h *handler) GetSummary(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))

	summary, ok := h.summarizer.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"key":   key,
			"state": h.summarizer.State(key),
		})
		return
	}
	RespondOK(c, gin.H{"key": key, "state": types.SummaryReady, "summary": summary})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
