// Package parser extracts research-document entries from compiled .docx files.
//
// A compilation lists many documents one after another, each introduced by
// labelled lines:
//
//	Title: Smart Irrigation System
//	Researchers: Juan Dela Cruz, Maria Santos
//	Course: BS Agricultural Engineering
//	Keywords: irrigation; IoT | soil moisture
//	Year: 2023
//	<abstract paragraphs>
//
// ParseParagraphs is a line-oriented state machine over those paragraphs. Labels
// are matched case-insensitively in a fixed order (Title, Researchers, Course,
// Host, Type of Document, Keywords, Year). Unlabelled lines become abstract text
// joined by blank lines. An entry without a title and without abstract text is
// never emitted.
//
// ExtractParagraphs reads word/document.xml from the zip container with
// archive/zip and encoding/xml; no office library is required.
package parser
