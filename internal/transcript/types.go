package transcript

// Segment is one timed-text entry from the transcript panel. The json tags
// match the object shape produced by the in-page extraction script, so the
// Eval result unmarshals directly.
type Segment struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// Result is what a successful fetch returns. Title is always set (falling
// back to "Unknown Video" when the page yields nothing). Description is the
// video description converted to markdown, empty when capture failed; it is
// best-effort and never fails the fetch.
type Result struct {
	Title       string
	Segments    []Segment
	Description string
}
