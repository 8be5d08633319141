package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidDocx is returned when the input is not a readable .docx container
var ErrInvalidDocx = errors.New("invalid docx")

const documentPart = "word/document.xml"

// ExtractParagraphs returns the trimmed, non-empty paragraph texts of a .docx
// file in document order. Paragraphs inside tables and hyperlinks are included.
func ExtractParagraphs(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}

	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocx, err)
	}

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrInvalidDocx, documentPart, err)
		}
		defer func() { _ = rc.Close() }()
		return parseDocumentXML(rc)
	}
	return nil, fmt.Errorf("%w: missing %s", ErrInvalidDocx, documentPart)
}

// parseDocumentXML walks the WordprocessingML token stream, collecting run
// text per top-level paragraph.
func parseDocumentXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	paragraphs := make([]string, 0)

	var (
		buf    strings.Builder
		depth  int  // nesting of <w:p>
		inText bool // inside <w:t>
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocx, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					buf.Reset()
				}
				depth++
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 {
					buf.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					buf.WriteByte(' ')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					if text := strings.TrimSpace(buf.String()); text != "" {
						paragraphs = append(paragraphs, text)
					}
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return paragraphs, nil
}
