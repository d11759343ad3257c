package format

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/hazyhaar/vtx/internal/discover"
	"github.com/hazyhaar/vtx/internal/transcript"
)

const (
	maxNameRunes = 100
	headerRule   = 80

	fileStampLayout = "20060102_150405"
	humanTimeLayout = "2006-01-02 15:04:05"
)

// Writer persists per-video transcript files into Dir. Now is injectable so
// tests get stable filenames; a nil Now means time.Now.
type Writer struct {
	Dir string
	Now func() time.Time
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// SafeName reduces a video title to a filesystem-friendly base name: word
// characters, spaces and hyphens survive, everything else is dropped, the
// result is capped at 100 runes and trimmed. May return "".
func SafeName(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	runes := []rune(b.String())
	if len(runes) > maxNameRunes {
		runes = runes[:maxNameRunes]
	}
	return strings.TrimSpace(string(runes))
}

// baseName picks the filename stem for a video: the sanitized title, or the
// video id from its watch URL when the title sanitizes to nothing or is the
// "Unknown Video" placeholder.
func baseName(title, watchURL string) string {
	safe := SafeName(title)
	if safe == "" || safe == transcript.UnknownTitle {
		safe = discover.VideoID(watchURL)
	}
	if safe == "" {
		safe = "transcript"
	}
	return safe
}

// Save writes the formatted and raw transcript files for one video and
// returns their base filenames. Both carry the same header block; the
// formatted body is the reflowed prose, the raw body one line per segment
// with its timestamp when present.
func (w *Writer) Save(title, watchURL string, segments []transcript.Segment) (formatted, raw string, err error) {
	now := w.now()
	base := baseName(title, watchURL)
	stamp := now.Format(fileStampLayout)

	formatted = fmt.Sprintf("%s_%s.txt", base, stamp)
	raw = fmt.Sprintf("%s_%s_raw.txt", base, stamp)

	var body strings.Builder
	body.WriteString(header(title, watchURL, now))
	body.WriteString(Reflow(segments))
	if err := os.WriteFile(filepath.Join(w.Dir, formatted), []byte(body.String()), 0o644); err != nil {
		return "", "", fmt.Errorf("format: write transcript: %w", err)
	}

	var rawBody strings.Builder
	rawBody.WriteString(header(title, watchURL, now))
	for _, seg := range segments {
		if seg.Text == "" {
			continue
		}
		if seg.Timestamp != "" {
			fmt.Fprintf(&rawBody, "[%s] %s\n", seg.Timestamp, seg.Text)
		} else {
			rawBody.WriteString(seg.Text + "\n")
		}
	}
	if err := os.WriteFile(filepath.Join(w.Dir, raw), []byte(rawBody.String()), 0o644); err != nil {
		return "", "", fmt.Errorf("format: write raw transcript: %w", err)
	}

	return formatted, raw, nil
}

func header(title, watchURL string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video: %s\n", title)
	fmt.Fprintf(&b, "URL: %s\n", watchURL)
	fmt.Fprintf(&b, "Downloaded: %s\n", now.Format(humanTimeLayout))
	b.WriteString(strings.Repeat("=", headerRule))
	b.WriteString("\n\n")
	return b.String()
}
