// Package types provides shared type definitions for scholarrag.
//
// These types cross package boundaries: the parser produces Entry values, the
// indexer consumes DocumentInput, the searcher returns Hit and DocumentHit, and
// the summarizer produces Summary values that adapters serialise unchanged.
//
// # Identity
//
// A document's identity is its content hash, derived from the title, the
// author list and the first 1000 characters of the abstract:
//
//	hash := types.ContentHash("Smart Irrigation System",
//	    []string{"Juan Dela Cruz", "Maria Santos"}, abstract)
//
// Re-ingesting an entry with the same hash replaces the stored document
// instead of creating a second one.
package types
