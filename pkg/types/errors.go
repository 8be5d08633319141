package types

import "errors"

// Domain errors shared across components
var (
	// ErrEmptyEntry is returned when an entry has neither a title nor abstract text
	ErrEmptyEntry = errors.New("entry has no title and no abstract")
	// ErrEmptyQuery is returned when a query is blank after trimming
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrInvalidLimit is returned for non-positive result counts
	ErrInvalidLimit = errors.New("limit must be positive")
)
