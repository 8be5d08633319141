// Package mcp implements the Model Context Protocol (MCP) server for scholarrag.
//
// The server exposes the research index to MCP clients as tools:
//   - ingest_docx: Parse and index a .docx compilation of abstracts
//   - ingest_document: Index one document from its fields
//   - search_documents: Hybrid search, grouped by document
//   - summarize: Start a cited summary and return its key
//   - get_summary: Poll a summary by key
//   - get_document, delete_document: Read or remove one document
//   - get_status: Index statistics and health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr so stdout carries protocol messages only.
//
// # Basic Usage
//
//	scholarrag serve
//
// # Tool: summarize
//
// Summaries are generated in the background. The call returns at once unless
// wait_seconds is set:
//
//	Request:
//	{
//	  "name": "summarize",
//	  "arguments": {"query": "soil moisture irrigation", "k": 12}
//	}
//
//	Response:
//	{
//	  "key": "4f1c...",
//	  "state": "pending"
//	}
//
// Poll get_summary with the key until state is "ready". A key whose
// generation failed or expired reads as "absent"; call summarize again.
//
// # Errors
//
// Handlers return *MCPError with a JSON-RPC style code:
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  document not found
//	-32002  file rejected (too small, not a .docx, no entries)
//	-32003  nothing retrieved to summarize
//	-32004  empty query
package mcp
