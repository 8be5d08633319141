package types

// SummaryState describes where a summary request stands
type SummaryState string

const (
	SummaryReady   SummaryState = "ready"
	SummaryPending SummaryState = "pending"
	SummaryAbsent  SummaryState = "absent"
)

// Reference is a citation resolved against the passages given to the model
type Reference struct {
	Index      int    `json:"index"`
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Year       int    `json:"year,omitempty"`
}

// Summary is a generated answer with the references it cites
type Summary struct {
	SummaryText string      `json:"summary_text"`
	References  []Reference `json:"references"`
}
