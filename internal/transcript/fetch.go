// Package transcript opens a watch page, coaxes the transcript panel open,
// and reads its segments. Each fetch walks the same stations: load the page,
// resolve metadata, open the panel, read the segments. A video without a
// transcript is a normal outcome here, not a failure.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TitlePlaceholder marks a ref whose title must be read from the watch page.
// Single-video runs start with it since there is no listing to take a title
// from.
const TitlePlaceholder = "Video (title will be extracted)"

// UnknownTitle is used when the watch page yields no readable title.
const UnknownTitle = "Unknown Video"

var (
	// ErrNoTranscript means the video has no transcript. Callers treat it
	// as an outcome, not an error condition.
	ErrNoTranscript = errors.New("transcript: no transcript available")

	// ErrPageUnavailable means the watch page itself could not be brought
	// up: navigation failed or the player never materialized.
	ErrPageUnavailable = errors.New("transcript: page unavailable")
)

// Page is the slice of browser capability a fetch needs. It is satisfied by
// *browser.Tab and by test fakes.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	EvalString(ctx context.Context, js string) (string, error)
	EvalBool(ctx context.Context, js string) (bool, error)
	Sleep(ctx context.Context, d time.Duration) error
}

// Config tunes the per-station budgets. Zero values mean the defaults.
type Config struct {
	// NavTimeout bounds the watch page navigation. Default: 60s.
	NavTimeout time.Duration

	// PlayerTimeout is the poll budget for the player element; a page
	// without one never had a chance. Default: 20s.
	PlayerTimeout time.Duration

	// ExpandTimeout is the budget for the "...more" description expander.
	// Default: 10s.
	ExpandTimeout time.Duration

	// ExpandSettle is the pause after expanding, letting the buttons
	// underneath re-render. Default: 500ms.
	ExpandSettle time.Duration

	// OpenTimeout is the budget for the "Show transcript" button.
	// Default: 5s.
	OpenTimeout time.Duration

	// PanelTimeout is the budget for the panel heading to become visible
	// after the open click. Default: 10s.
	PanelTimeout time.Duration

	// PanelRecheck is the short secondary budget used when the open chain
	// failed: the panel may simply have been open all along. Default: 1s.
	PanelRecheck time.Duration

	// SegmentsSettle is the pause before reading segments, so the panel
	// content finishes streaming in. Default: 1s.
	SegmentsSettle time.Duration

	// PollInterval paces all visibility polls. Default: 250ms.
	PollInterval time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 60 * time.Second
	}
	if c.PlayerTimeout <= 0 {
		c.PlayerTimeout = 20 * time.Second
	}
	if c.ExpandTimeout <= 0 {
		c.ExpandTimeout = 10 * time.Second
	}
	if c.ExpandSettle <= 0 {
		c.ExpandSettle = 500 * time.Millisecond
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 5 * time.Second
	}
	if c.PanelTimeout <= 0 {
		c.PanelTimeout = 10 * time.Second
	}
	if c.PanelRecheck <= 0 {
		c.PanelRecheck = time.Second
	}
	if c.SegmentsSettle <= 0 {
		c.SegmentsSettle = time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher extracts the transcript of a single video.
type Fetcher struct {
	cfg Config
	md  *markdownConverter
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{cfg: cfg, md: newMarkdownConverter()}
}

// Fetch runs the full extraction for one video. It returns ErrNoTranscript
// when the video has none, ErrPageUnavailable when the page could not be
// brought up, and a plain error for unexpected extraction failures. The
// returned Result carries the resolved title even when the caller's hint was
// empty or the placeholder.
func (f *Fetcher) Fetch(ctx context.Context, page Page, watchURL, titleHint string) (*Result, error) {
	log := f.cfg.Logger

	if err := page.Navigate(ctx, watchURL, f.cfg.NavTimeout); err != nil {
		return nil, fmt.Errorf("%w: navigate %s: %v", ErrPageUnavailable, watchURL, err)
	}
	log.Debug("transcript: page loading", "url", watchURL)

	title := f.resolveTitle(ctx, page, titleHint)
	description := f.captureDescription(ctx, page, watchURL)
	log.Debug("transcript: metadata resolved", "url", watchURL, "title", title)

	if err := f.waitPlayer(ctx, page); err != nil {
		return nil, err
	}

	if err := f.openPanel(ctx, page); err != nil {
		return nil, err
	}
	log.Debug("transcript: panel open", "url", watchURL)

	segments, err := f.readSegments(ctx, page)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: panel open but empty", ErrNoTranscript)
	}
	log.Debug("transcript: segments read", "url", watchURL, "count", len(segments))

	return &Result{Title: title, Segments: segments, Description: description}, nil
}

// resolveTitle keeps a usable caller-supplied title, otherwise reads the
// page's h1. Never fails: the fallback is UnknownTitle.
func (f *Fetcher) resolveTitle(ctx context.Context, page Page, hint string) string {
	if hint != "" && hint != TitlePlaceholder {
		return hint
	}
	got, err := page.EvalString(ctx, jsReadTitle)
	if err != nil || strings.TrimSpace(got) == "" {
		return UnknownTitle
	}
	return strings.TrimSpace(got)
}

// captureDescription reads the description container and converts it to
// markdown for the run log. Best-effort: every failure path produces "".
func (f *Fetcher) captureDescription(ctx context.Context, page Page, watchURL string) string {
	html, err := page.EvalString(ctx, jsReadDescription)
	if err != nil || strings.TrimSpace(html) == "" {
		return ""
	}
	md, err := f.md.convert(html, watchURL)
	if err != nil {
		f.cfg.Logger.Debug("transcript: description conversion failed", "error", err)
		return ""
	}
	return md
}

func (f *Fetcher) waitPlayer(ctx context.Context, page Page) error {
	present, err := f.pollTrue(ctx, page, jsPlayerPresent, f.cfg.PlayerTimeout)
	if err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("%w: player never appeared", ErrPageUnavailable)
	}
	return nil
}

// openPanel walks the expand/open/verify chain. When any link of the chain
// breaks, it re-checks whether the panel was simply open all along before
// declaring the transcript unavailable; the chain's cause is kept in the
// returned error for diagnostics.
func (f *Fetcher) openPanel(ctx context.Context, page Page) error {
	chainErr := f.expandAndOpen(ctx, page)
	if chainErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	f.cfg.Logger.Debug("transcript: open chain failed, rechecking panel", "cause", chainErr)
	visible, err := f.pollTrue(ctx, page, jsPanelHeadingVisible, f.cfg.PanelRecheck)
	if err == nil && visible {
		f.cfg.Logger.Info("transcript: panel was already open")
		return nil
	}
	return fmt.Errorf("%w: %v", ErrNoTranscript, chainErr)
}

func (f *Fetcher) expandAndOpen(ctx context.Context, page Page) error {
	clicked, err := f.pollTrue(ctx, page, jsClickMore, f.cfg.ExpandTimeout)
	if err != nil {
		return err
	}
	if !clicked {
		return errors.New(`transcript: "...more" button not found`)
	}
	if err := page.Sleep(ctx, f.cfg.ExpandSettle); err != nil {
		return err
	}

	clicked, err = f.pollTrue(ctx, page, jsClickShowTranscript, f.cfg.OpenTimeout)
	if err != nil {
		return err
	}
	if !clicked {
		return errors.New(`transcript: "Show transcript" button not found`)
	}

	visible, err := f.pollTrue(ctx, page, jsPanelHeadingVisible, f.cfg.PanelTimeout)
	if err != nil {
		return err
	}
	if !visible {
		return errors.New("transcript: panel heading never became visible")
	}
	return nil
}

func (f *Fetcher) readSegments(ctx context.Context, page Page) ([]Segment, error) {
	if err := page.Sleep(ctx, f.cfg.SegmentsSettle); err != nil {
		return nil, err
	}

	raw, err := page.EvalString(ctx, jsReadSegments)
	if err != nil {
		return nil, fmt.Errorf("transcript: read segments: %w", err)
	}

	var segments []Segment
	if err := json.Unmarshal([]byte(raw), &segments); err != nil {
		return nil, fmt.Errorf("transcript: parse segments: %w", err)
	}
	return segments, nil
}

// pollTrue evaluates js every PollInterval until it returns true or the
// budget runs out. A false return with nil error means the budget expired.
func (f *Fetcher) pollTrue(ctx context.Context, page Page, js string, budget time.Duration) (bool, error) {
	deadline := time.Now().Add(budget)
	for {
		ok, err := page.EvalBool(ctx, js)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := page.Sleep(ctx, f.cfg.PollInterval); err != nil {
			return false, err
		}
	}
}

const (
	jsReadTitle = `() => {
		const el = document.querySelector('h1.ytd-watch-metadata yt-formatted-string');
		return el ? (el.textContent || '').trim() : '';
	}`

	jsReadDescription = `() => {
		const el = document.querySelector('#description-inline-expander, #description');
		return el ? el.outerHTML : '';
	}`

	jsPlayerPresent = `() => !!document.querySelector('video')`

	// jsClickMore clicks the visible "...more" description expander.
	jsClickMore = `() => {
		const visible = (el) => el && el.offsetParent !== null;
		for (const el of document.querySelectorAll('button, [role="button"]')) {
			if (visible(el) && (el.textContent || '').trim().toLowerCase() === '...more') {
				el.click();
				return true;
			}
		}
		return false;
	}`

	// jsClickShowTranscript clicks the visible "Show transcript" button.
	jsClickShowTranscript = `() => {
		const visible = (el) => el && el.offsetParent !== null;
		for (const el of document.querySelectorAll('button, [role="button"]')) {
			if (visible(el) && (el.textContent || '').trim().toLowerCase() === 'show transcript') {
				el.click();
				return true;
			}
		}
		return false;
	}`

	// jsPanelHeadingVisible reports whether the panel's "Transcript"
	// heading is rendered and visible.
	jsPanelHeadingVisible = `() => {
		const visible = (el) => el && el.offsetParent !== null;
		for (const el of document.querySelectorAll('h1, h2, h3, h4, h5, h6, [role="heading"]')) {
			if (visible(el) && (el.textContent || '').trim().toLowerCase() === 'transcript') {
				return true;
			}
		}
		return false;
	}`

	// jsReadSegments serializes every transcript segment; entries without
	// text are dropped, a missing timestamp becomes "".
	jsReadSegments = `() => {
		const segments = [];
		for (const seg of document.querySelectorAll('ytd-transcript-segment-renderer')) {
			const ts = seg.querySelector('.segment-timestamp, [class*="timestamp"]');
			const node = seg.querySelector('.segment-text, [class*="segment-text"]');
			const text = node ? (node.textContent || '').trim() : '';
			if (text) {
				segments.push({ timestamp: ts ? (ts.textContent || '').trim() : '', text });
			}
		}
		return JSON.stringify(segments);
	}`
)
