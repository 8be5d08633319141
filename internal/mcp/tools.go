package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/scholarrag/internal/indexer"
	"github.com/dshills/scholarrag/internal/parser"
	"github.com/dshills/scholarrag/internal/storage"
	"github.com/dshills/scholarrag/internal/summarizer"
	"github.com/dshills/scholarrag/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound      = -32001 // Document or summary does not exist
	ErrorCodeFileRejected  = -32002 // Upload is not a usable .docx compilation
	ErrorCodeNoPassages    = -32003 // Nothing retrieved to summarize
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// MaxDocxBytes bounds the size of a compilation read from disk
const MaxDocxBytes = 64 << 20

// handleIngestDocx handles the ingest_docx tool invocation
func (s *Server) handleIngestDocx(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validateDocxPath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "failed to read file", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats, err := s.indexer.IndexDocx(ctx, filepath.Base(path), raw)
	switch {
	case errors.Is(err, indexer.ErrDocxTooSmall), errors.Is(err, indexer.ErrNoEntries),
		errors.Is(err, parser.ErrInvalidDocx):
		return nil, newMCPError(ErrorCodeFileRejected, "file rejected", map[string]interface{}{
			"error": err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"filename":       stats.Filename,
		"entries":        stats.Entries,
		"indexed":        stats.Indexed,
		"replaced":       stats.Replaced,
		"failed":         stats.Failed,
		"chunks_created": stats.ChunksCreated,
		"document_ids":   stats.DocumentIDs,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	in := types.DocumentInput{
		Entry: types.Entry{
			Title:    getStringDefault(args, "title", ""),
			Abstract: getStringDefault(args, "abstract", ""),
			Authors:  getStringSlice(args, "authors", parser.SplitNames),
			Keywords: getStringSlice(args, "keywords", parser.SplitKeywords),
			Year:     getIntDefault(args, "year", 0),
			Course:   getStringDefault(args, "course", ""),
			Host:     getStringDefault(args, "host", ""),
			DocType:  getStringDefault(args, "doc_type", ""),
		},
		ExternalLinks: getStringDefault(args, "external_links", ""),
	}
	opts := indexer.Options{SkipExisting: getBoolDefault(args, "skip_existing", false)}

	res, err := s.indexer.IndexDocument(ctx, in, opts)
	switch {
	case errors.Is(err, types.ErrEmptyEntry):
		return nil, newMCPError(ErrorCodeInvalidParams, "title or abstract is required", map[string]interface{}{
			"param":  "title",
			"reason": err.Error(),
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"document_id": res.DocumentID,
		"duplicate":   res.Duplicate,
		"replaced":    res.Replaced,
		"chunks":      res.Chunks,
	})), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, k, err := s.queryParams(args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	docs, err := s.searcher.Search(ctx, query, k)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":       query,
		"results":     docs,
		"total":       len(docs),
		"duration_ms": time.Since(start).Milliseconds(),
	})), nil
}

// handleSummarize handles the summarize tool invocation
func (s *Server) handleSummarize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, k, err := s.queryParams(args)
	if err != nil {
		return nil, err
	}
	wait := getIntDefault(args, "wait_seconds", 0)
	if wait < 0 || wait > 300 {
		return nil, newMCPError(ErrorCodeInvalidParams, "wait_seconds must be between 0 and 300", map[string]interface{}{
			"param": "wait_seconds",
			"value": wait,
		})
	}

	key, state, err := s.summarizer.Summarize(ctx, query, k)
	switch {
	case errors.Is(err, summarizer.ErrNoPassages):
		return nil, newMCPError(ErrorCodeNoPassages, "no documents matched the query", nil)
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "summarize failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"key":   key,
		"state": state,
	}

	if wait > 0 && state == types.SummaryPending {
		wctx, cancel := context.WithTimeout(ctx, time.Duration(wait)*time.Second)
		defer cancel()
		if _, _, err := s.summarizer.Wait(wctx, key, 250*time.Millisecond); err != nil {
			s.log.Debug("summary still pending", "key", key)
		}
		response["state"] = s.summarizer.State(key)
	}
	if summary, ok := s.summarizer.Get(key); ok {
		response["state"] = types.SummaryReady
		response["summary"] = summary
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetSummary handles the get_summary tool invocation
func (s *Server) handleGetSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	key := strings.TrimSpace(getStringDefault(args, "key", ""))
	if key == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "key parameter is required", map[string]interface{}{
			"param":  "key",
			"reason": "missing or empty",
		})
	}

	summary, ok := s.summarizer.Get(key)
	if !ok {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"key":   key,
			"state": s.summarizer.State(key),
		})), nil
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"key":     key,
		"state":   types.SummaryReady,
		"summary": summary,
	})), nil
}

// handleGetDocument handles the get_document tool invocation
func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := documentID(request)
	if err != nil {
		return nil, err
	}

	doc, err := s.indexer.Document(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "document not found", map[string]interface{}{"id": id})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode document", nil)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleDeleteDocument handles the delete_document tool invocation
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := documentID(request)
	if err != nil {
		return nil, err
	}

	err = s.indexer.DeleteDocument(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "document not found", map[string]interface{}{"id": id})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"id":      id,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed": status.Documents > 0,
		"statistics": map[string]interface{}{
			"documents_count":     status.Documents,
			"sections_count":      status.Sections,
			"chunks_count":        status.Chunks,
			"embeddings_count":    status.Embeddings,
			"embedding_dimension": status.Dimension,
			"index_size_mb":       fmt.Sprintf("%.2f", status.SizeMB),
		},
		"build": map[string]interface{}{
			"driver": status.Driver,
			"mode":   status.BuildMode,
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"lexical_index_built":  status.Health.LexicalIndexBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// queryParams extracts and validates the query and k arguments
func (s *Server) queryParams(args map[string]interface{}) (string, int, error) {
	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return "", 0, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	k := getIntDefault(args, "k", s.defaultK)
	if k < 1 || k > 100 {
		return "", 0, newMCPError(ErrorCodeInvalidParams, "k must be between 1 and 100", map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}
	return query, k, nil
}

// documentID extracts a positive id argument
func documentID(request mcp.CallToolRequest) (int64, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return 0, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	id := getIntDefault(args, "id", 0)
	if id <= 0 {
		return 0, newMCPError(ErrorCodeInvalidParams, "id must be a positive integer", map[string]interface{}{
			"param": "id",
		})
	}
	return int64(id), nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateDocxPath checks that path names a readable .docx file
func validateDocxPath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	if !strings.EqualFold(filepath.Ext(path), ".docx") {
		return ErrNotDocx
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if info.IsDir() {
		return ErrNotRegularFile
	}
	if info.Size() > MaxDocxBytes {
		return ErrFileTooLarge
	}

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice accepts either a JSON array of strings or one delimited
// string, which is split with split.
func getStringSlice(args map[string]interface{}, key string, split func(string) []string) []string {
	switch val := args[key].(type) {
	case string:
		return split(val)
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return val
	}
	return []string{}
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotRegularFile  = errors.New("path is not a regular file")
	ErrNotDocx         = errors.New("file must have a .docx extension")
	ErrFileTooLarge    = errors.New("file exceeds the size limit")
)
