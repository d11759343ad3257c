package vtx

import "errors"

// ErrNavigation is returned when a video page is unreachable or its player
// never materializes. Video-level: contained in that video's outcome.
var ErrNavigation = errors.New("vtx: navigation failed")

// ErrUnavailable marks a video that has no transcript. It is a normal
// outcome, not a fault: the scheduler never escalates it.
var ErrUnavailable = errors.New("vtx: transcript unavailable")

// ErrExtraction is returned when reading DOM state fails unexpectedly after
// the page loaded. Video-level.
var ErrExtraction = errors.New("vtx: extraction failed")

// ErrNoVideos is returned when discovery produced no usable video links.
// Run-level: the run ends with a clear message instead of an empty manifest.
var ErrNoVideos = errors.New("vtx: no videos found")

// ErrPersist is returned when writing a transcript or manifest file fails.
var ErrPersist = errors.New("vtx: persist failed")

// ErrInvalidInput is returned when the entry URL or run configuration fails
// validation.
var ErrInvalidInput = errors.New("vtx: invalid input")
