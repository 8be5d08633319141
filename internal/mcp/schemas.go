package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestDocxTool returns the tool definition for ingest_docx
func ingestDocxTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_docx",
		Description: "Parse a .docx compilation of research abstracts and index every entry",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a .docx file",
				},
			},
			Required: []string{"path"},
		},
	}
}

// ingestDocumentTool returns the tool definition for ingest_document
func ingestDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_document",
		Description: "Index a single research document from its metadata fields",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Document title",
				},
				"abstract": map[string]interface{}{
					"type":        "string",
					"description": "Abstract text; chunked and embedded for semantic search",
				},
				"authors": map[string]interface{}{
					"type":        "array",
					"description": "Author full names in order",
					"items":       map[string]interface{}{"type": "string"},
				},
				"keywords": map[string]interface{}{
					"type":        "array",
					"description": "Keywords, included in full-text search",
					"items":       map[string]interface{}{"type": "string"},
				},
				"year": map[string]interface{}{
					"type":        "integer",
					"description": "Publication year",
				},
				"course": map[string]interface{}{
					"type": "string",
				},
				"host": map[string]interface{}{
					"type":        "string",
					"description": "Hosting institution",
				},
				"doc_type": map[string]interface{}{
					"type":        "string",
					"description": "Type of document, e.g. Thesis or Capstone",
				},
				"external_links": map[string]interface{}{
					"type": "string",
				},
				"skip_existing": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, report an already-indexed document instead of replacing it",
					"default":     false,
				},
			},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search indexed research documents with a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of chunks to retrieve before grouping by document (1-100)",
					"default":     12,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// summarizeTool returns the tool definition for summarize
func summarizeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "summarize",
		Description: "Start a cited summary answering a query; returns a key to poll with get_summary",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer from the indexed documents",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of chunks to retrieve (1-100)",
					"default":     12,
					"minimum":     1,
					"maximum":     100,
				},
				"wait_seconds": map[string]interface{}{
					"type":        "integer",
					"description": "Block up to this many seconds for the summary (0 returns immediately)",
					"default":     0,
					"minimum":     0,
					"maximum":     300,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getSummaryTool returns the tool definition for get_summary
func getSummaryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_summary",
		Description: "Fetch a summary by the key returned from summarize",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "Summary key",
				},
			},
			Required: []string{"key"},
		},
	}
}

// getDocumentTool returns the tool definition for get_document
func getDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_document",
		Description: "Fetch an indexed document with its authors and keywords",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Document id",
				},
			},
			Required: []string{"id"},
		},
	}
}

// deleteDocumentTool returns the tool definition for delete_document
func deleteDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and everything indexed for it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "integer",
					"description": "Document id",
				},
			},
			Required: []string{"id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
