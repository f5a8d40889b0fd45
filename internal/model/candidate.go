package model

// Candidate is a retrieved passage plus its retrieval score and metadata,
// as returned by the document index before any re-ranking.
type Candidate struct {
	// Text is the raw passage content. May carry OCR artifacts; callers
	// normalize it only for display, never in place.
	Text string `json:"text"`

	// SourceName identifies the originating document (usually a filename).
	SourceName string `json:"source_name"`

	// Metadata holds attributes computed upstream of retrieval. A
	// "creation_date" entry, when present and parseable, takes priority
	// over anything recoverable from the passage text.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Score is the retriever's relevance score. Display only; recency
	// ranking ignores it.
	Score float64 `json:"score"`
}

// MetadataKeyCreationDate is the metadata key checked first when resolving
// a candidate's document date.
const MetadataKeyCreationDate = "creation_date"
