package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/scholarrag/pkg/types"
)

// field identifies a labelled line in a compilation document
type field int

const (
	fieldTitle field = iota
	fieldResearchers
	fieldCourse
	fieldHost
	fieldDocType
	fieldKeywords
	fieldYear
)

// fieldLabel pairs a field with the pattern that recognises its label.
// Patterns are tried in slice order, Title first.
type fieldLabel struct {
	field   field
	pattern *regexp.Regexp
}

var fieldLabels = []fieldLabel{
	{fieldTitle, regexp.MustCompile(`(?i)^\s*Title\s*:\s*(.+)$`)},
	{fieldResearchers, regexp.MustCompile(`(?i)^\s*Researchers?\s*:\s*(.+)$`)},
	{fieldCourse, regexp.MustCompile(`(?i)^\s*Course\s*:\s*(.+)$`)},
	{fieldHost, regexp.MustCompile(`(?i)^\s*Host\s*:\s*(.+)$`)},
	{fieldDocType, regexp.MustCompile(`(?i)^\s*Type of Documents?\s*:\s*(.+)$`)},
	{fieldKeywords, regexp.MustCompile(`(?i)^\s*Keywords?\s*:\s*(.+)$`)},
	{fieldYear, regexp.MustCompile(`(?i)^\s*Year?\s*:\s*(.+)$`)},
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Parser extracts research-document entries from compilation files
type Parser struct{}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{}
}

// ParseDocx extracts the paragraphs of a .docx file and parses them into entries
func (p *Parser) ParseDocx(raw []byte) ([]types.Entry, error) {
	paragraphs, err := ExtractParagraphs(raw)
	if err != nil {
		return nil, err
	}
	return p.ParseParagraphs(paragraphs), nil
}

// ParseParagraphs runs the field-label state machine over paragraph text.
// A Title line closes the entry in progress, when it has a title or abstract
// text, and opens a new one. Lines matching no label accumulate into the
// abstract. The last entry is closed at end of input under the same rule.
func (p *Parser) ParseParagraphs(paragraphs []string) []types.Entry {
	entries := make([]types.Entry, 0)
	cur := newEntryBuilder()

	for _, raw := range paragraphs {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		f, value, ok := matchLabel(line)
		if !ok {
			cur.abstract = append(cur.abstract, line)
			continue
		}

		switch f {
		case fieldTitle:
			if cur.hasContent() {
				entries = append(entries, cur.build())
				cur = newEntryBuilder()
			}
			cur.entry.Title = strings.TrimSpace(value)
		case fieldResearchers:
			cur.entry.Authors = SplitNames(value)
		case fieldCourse:
			cur.entry.Course = strings.TrimSpace(value)
		case fieldHost:
			cur.entry.Host = strings.TrimSpace(value)
		case fieldDocType:
			cur.entry.DocType = strings.TrimSpace(value)
		case fieldKeywords:
			cur.entry.Keywords = SplitKeywords(value)
		case fieldYear:
			cur.entry.Year = ParseYear(value)
		}
	}

	if cur.hasContent() {
		entries = append(entries, cur.build())
	}
	return entries
}

// matchLabel returns the first label that matches line and its captured value
func matchLabel(line string) (field, string, bool) {
	for _, fl := range fieldLabels {
		if m := fl.pattern.FindStringSubmatch(line); m != nil {
			return fl.field, m[1], true
		}
	}
	return 0, "", false
}

// ParseYear returns the first plausible four-digit year in value, or 0
func ParseYear(value string) int {
	if m := yearPattern.FindString(value); m != "" {
		year, _ := strconv.Atoi(m)
		return year
	}
	return 0
}

type entryBuilder struct {
	entry    types.Entry
	abstract []string
}

func newEntryBuilder() *entryBuilder {
	return &entryBuilder{}
}

func (b *entryBuilder) hasContent() bool {
	return b.entry.Title != "" || len(b.abstract) > 0
}

func (b *entryBuilder) build() types.Entry {
	e := b.entry
	e.Abstract = strings.TrimSpace(strings.Join(b.abstract, "\n\n"))
	if e.Authors == nil {
		e.Authors = []string{}
	}
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	return e
}
