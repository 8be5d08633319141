//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Compiled without CGO or with the purego tag. Vectors are ranked in Go after
// a full scan of the embeddings table. FTS5 is built into modernc.org/sqlite.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if SQL-side vector distance is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
