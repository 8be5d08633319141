package types

import (
	"strings"
	"time"
)

// SectionAbstract is the heading of the section that holds a document's abstract.
const SectionAbstract = "ABSTRACT"

// Entry is one research document extracted from a compiled source file
type Entry struct {
	Title    string
	Authors  []string
	Course   string
	Host     string
	DocType  string
	Keywords []string
	Year     int // 0 when unknown
	Abstract string
}

// Empty reports whether the entry carries neither a title nor abstract text
func (e *Entry) Empty() bool {
	return strings.TrimSpace(e.Title) == "" && strings.TrimSpace(e.Abstract) == ""
}

// DocumentInput is everything the indexer needs to ingest one document
type DocumentInput struct {
	Entry
	Filename      string
	ExternalLinks string
	Raw           []byte // Original source bytes, may be nil
}

// Validate checks that the input can be indexed
func (d DocumentInput) Validate() error {
	if d.Empty() {
		return ErrEmptyEntry
	}
	return nil
}

// Hash returns the content hash of the input's identity fields
func (d DocumentInput) Hash() string {
	return ContentHash(d.Title, d.Authors, d.Abstract)
}

// Document is a persisted research document with its owned metadata
type Document struct {
	ID            int64     `json:"id"`
	ContentHash   string    `json:"content_hash"`
	Filename      string    `json:"filename,omitempty"`
	Title         string    `json:"title"`
	Year          int       `json:"year,omitempty"`
	Abstract      string    `json:"abstract"`
	Course        string    `json:"course,omitempty"`
	Host          string    `json:"host,omitempty"`
	DocType       string    `json:"doc_type,omitempty"`
	ExternalLinks string    `json:"external_links,omitempty"`
	Authors       []string  `json:"authors"`
	Keywords      []string  `json:"keywords"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
