package vtx

import (
	"fmt"

	"github.com/hazyhaar/vtx/internal/discover"
)

// EntryKind classifies what a run's entry URL points at.
type EntryKind = discover.EntryKind

// Entry kinds, re-exported for callers that branch on NormalizeEntry.
const (
	EntryListing = discover.EntryListing
	EntryChannel = discover.EntryChannel
	EntryVideo   = discover.EntryVideo
)

// NormalizeEntry validates an entry URL and decides how a run processes it:
// a single watch page extracted directly, or a listing to discover first.
// Video entries come back as the canonical watch URL (tracking parameters
// stripped); listings and channels pass through unchanged. Invalid input is
// reported as ErrInvalidInput.
func NormalizeEntry(raw string) (EntryKind, string, error) {
	kind, err := discover.ClassifyEntry(raw)
	if err != nil {
		return kind, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if kind == EntryVideo {
		canonical, err := discover.CanonicalWatchURL(raw)
		if err != nil {
			return kind, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return kind, canonical, nil
	}
	return kind, raw, nil
}
