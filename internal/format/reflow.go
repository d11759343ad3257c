// Package format turns extracted transcript segments into the on-disk
// artifacts of a run: the reflowed transcript, the raw timestamped dump,
// and merged collections of either.
package format

import (
	"strings"

	"github.com/hazyhaar/vtx/internal/transcript"
)

const (
	// minSentenceRun is the minimum accumulated length before a '.', '!'
	// or '?' is treated as a sentence boundary. Shorter runs are almost
	// always abbreviations ("Dr.", "U.S.") rather than sentence ends.
	minSentenceRun = 20

	sentencesPerParagraph = 4
)

// Reflow joins segment texts into prose and re-paragraphs it: sentences are
// cut at terminal punctuation once the accumulated run is long enough, and
// grouped four to a paragraph. Pure function, safe on empty input.
func Reflow(segments []transcript.Segment) string {
	if len(segments) == 0 {
		return ""
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	text := strings.TrimSpace(strings.ReplaceAll(strings.Join(parts, " "), "  ", " "))
	if text == "" {
		return ""
	}

	var sentences []string
	current := make([]rune, 0, 256)
	for _, r := range text {
		current = append(current, r)
		if (r == '.' || r == '!' || r == '?') && len(current) > minSentenceRun {
			sentences = append(sentences, strings.TrimSpace(string(current)))
			current = current[:0]
		}
	}
	if rest := strings.TrimSpace(string(current)); rest != "" {
		sentences = append(sentences, rest)
	}

	var paragraphs []string
	para := make([]string, 0, sentencesPerParagraph)
	for i, s := range sentences {
		para = append(para, s)
		if len(para) >= sentencesPerParagraph || i == len(sentences)-1 {
			paragraphs = append(paragraphs, strings.Join(para, " "))
			para = para[:0]
		}
	}

	return strings.Join(paragraphs, "\n\n")
}
