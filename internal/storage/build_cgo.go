//go:build sqlite_vec && !purego
// +build sqlite_vec,!purego

package storage

// Compiled with CGO and the sqlite_vec tag. Cosine distance is registered as
// the SQL function vec_distance_cosine on every connection so the vector
// scan ranks and limits inside SQLite.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec sqlite_fts5" ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3_scholarrag"

	// VectorExtensionAvailable indicates if SQL-side vector distance is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("vec_distance_cosine", vecDistanceCosine, true)
		},
	})
}

// vecDistanceCosine returns 1 - cosine similarity of two serialized vectors
func vecDistanceCosine(a, b []byte) float64 {
	return 1 - cosineSimilarity(deserializeVector(a), deserializeVector(b))
}
