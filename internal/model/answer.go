package model

// Answer is the synthesizer's result: generated text plus the passages that
// were supplied as context. Fields are explicit so callers never probe for
// attribute presence on an opaque response object.
type Answer struct {
	Text    string      `json:"text"`
	Sources []Candidate `json:"sources,omitempty"`
}

// SourcePreviewLength caps how much source text is shown alongside an answer.
const SourcePreviewLength = 200

// Preview returns up to SourcePreviewLength characters of a candidate's text
// with a trailing ellipsis when truncated.
func (c Candidate) Preview() string {
	runes := []rune(c.Text)
	if len(runes) <= SourcePreviewLength {
		return c.Text
	}
	return string(runes[:SourcePreviewLength]) + "..."
}
