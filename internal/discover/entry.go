package discover

import (
	"fmt"
	"net/url"
	"strings"
)

// EntryKind classifies what a run's entry URL points at.
type EntryKind int

const (
	// EntryListing is a playlist or any other lazily-rendered listing page.
	EntryListing EntryKind = iota
	// EntryChannel is a channel/user/handle page; discovery targets its
	// videos tab.
	EntryChannel
	// EntryVideo is a single watch page; the video set is the singleton.
	EntryVideo
)

func (k EntryKind) String() string {
	switch k {
	case EntryChannel:
		return "channel"
	case EntryVideo:
		return "video"
	default:
		return "listing"
	}
}

// ClassifyEntry decides how an entry URL is processed: a watch URL short-cuts
// discovery entirely, channel-shaped URLs get steered to their videos tab,
// everything else is treated as a listing.
func ClassifyEntry(raw string) (EntryKind, error) {
	if strings.TrimSpace(raw) == "" {
		return EntryListing, fmt.Errorf("discover: empty url")
	}
	if strings.Contains(raw, "watch?v=") {
		return EntryVideo, nil
	}
	if strings.Contains(raw, "/c/") || strings.Contains(raw, "/user/") || strings.Contains(raw, "/@") {
		return EntryChannel, nil
	}
	return EntryListing, nil
}

// ListingURL returns the URL discovery should navigate to. Channel URLs that
// do not already target the videos tab get "/videos" appended; other URLs
// pass through unchanged.
func ListingURL(raw string) string {
	kind, err := ClassifyEntry(raw)
	if err != nil || kind != EntryChannel {
		return raw
	}
	if strings.HasSuffix(raw, "/videos") || strings.HasSuffix(raw, "/videos/") {
		return raw
	}
	return strings.TrimRight(raw, "/") + "/videos"
}

// CanonicalWatchURL normalizes a watch URL into the run's dedup key:
// lowercased scheme and host, path preserved, every query parameter except
// the video id stripped, fragment removed. Two links to the same video that
// differ only in tracking parameters canonicalize identically.
func CanonicalWatchURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("discover: empty url")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("discover: parse url: %w", err)
	}

	id := parsed.Query().Get("v")
	if id == "" {
		return "", fmt.Errorf("discover: not a watch url: %s", raw)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawQuery = "v=" + url.QueryEscape(id)

	return parsed.String(), nil
}

// VideoID extracts the video identifier from a watch URL. It returns the
// empty string when the URL carries no id; callers use it for filename
// fallbacks, not identity.
func VideoID(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("v")
}
