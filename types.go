// Package vtx extracts video transcripts from a streaming platform's
// rendered pages.
//
// Given one entry URL it discovers the videos behind it (channel, playlist
// or a single watch page), opens each in an isolated stealth tab, reads the
// transcript panel, and writes formatted plus raw text files and a JSON
// manifest. Runs can optionally be recorded in a SQLite history.
package vtx

import (
	"time"

	"github.com/hazyhaar/vtx/internal/runlog"
	"github.com/hazyhaar/vtx/internal/transcript"
)

// VideoRef identifies one video for the duration of a run. URL is the
// canonical watch URL (tracking parameters stripped) and is the dedup key.
// Title may be empty or stale at discovery time; the fetch step returns the
// resolved title rather than mutating the ref in place.
type VideoRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// TranscriptSegment is one timed-text entry from the transcript panel.
// Order is extraction order, which is playback order. Text is never empty:
// empty segments are dropped at extraction time.
type TranscriptSegment = transcript.Segment

// Run history types, re-exported for public API.
type (
	RunStore  = runlog.Store
	RunRecord = runlog.Run
	RunVideo  = runlog.Video
)

// Status tags an ExtractionOutcome.
type Status int

const (
	// StatusSuccess: segments were extracted and files written.
	StatusSuccess Status = iota
	// StatusUnavailable: the video has no transcript. A normal outcome,
	// distinct from failure.
	StatusUnavailable
	// StatusFailed: navigation, extraction, or persistence failed for this
	// video. Contained: siblings and the run continue.
	StatusFailed
)

// String returns the manifest wording for each status. The success and
// unavailable strings match the summary files produced by earlier versions
// of this tool, so downstream consumers keep working.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusUnavailable:
		return "No transcript available"
	default:
		return "Failed"
	}
}

// SavedFiles names the artifacts written for one successful video.
type SavedFiles struct {
	Formatted string `json:"formatted"`
	Raw       string `json:"raw"`
}

// ExtractionOutcome is the final record for one input video. Exactly one is
// produced per VideoRef. Segments, Files and Description are set only for
// StatusSuccess; Reason only for StatusFailed.
type ExtractionOutcome struct {
	Video       VideoRef
	Status      Status
	Segments    []TranscriptSegment
	Files       SavedFiles
	Description string
	Reason      string
}

// RunSummary is what Service.Run returns: every outcome in submission order
// plus run-level bookkeeping.
type RunSummary struct {
	RunID        string
	EntryURL     string
	OutputDir    string
	ManifestPath string
	Outcomes     []ExtractionOutcome
	Discovered   int
	Succeeded    int
	Unavailable  int
	Failed       int
	StartedAt    time.Time
	FinishedAt   time.Time
}
