// Package discover walks a lazily-rendered listing page (channel videos tab,
// playlist) until its extent stops growing, then harvests every video link
// it can see.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Page is the slice of browser capability discovery needs. It is satisfied
// by *browser.Tab and by test fakes.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	EvalString(ctx context.Context, js string) (string, error)
	EvalBool(ctx context.Context, js string) (bool, error)
	EvalFloat(ctx context.Context, js string) (float64, error)
	Sleep(ctx context.Context, d time.Duration) error
}

// Link is one harvested video link. URL is canonical (§CanonicalWatchURL);
// Title is whatever the listing showed, possibly truncated by the site.
type Link struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Config tunes the scroll-extend-measure loop. Zero values mean the
// defaults, which match observed listing render latency.
type Config struct {
	// NavTimeout bounds the initial navigation. Default: 60s.
	NavTimeout time.Duration

	// InitialSettle is the pause after navigation before any interaction,
	// giving the first render a chance to finish. Default: 5s.
	InitialSettle time.Duration

	// ScrollDelay is the pause after each scroll so newly-requested items
	// can arrive; measuring before they do reads a stale extent.
	// Default: 2.5s.
	ScrollDelay time.Duration

	// FinalSettle is the pause after the loop ends, before harvesting.
	// Default: 3s.
	FinalSettle time.Duration

	// MaxPatience is how many consecutive unchanged measurements mean the
	// listing is exhausted. Default: 5.
	MaxPatience int

	// MaxCycles caps total scroll cycles so a listing that never
	// stabilizes (ads rotating, live items) cannot spin forever.
	// Default: 200.
	MaxCycles int

	// ConsentTimeout bounds the wait for a consent dialog to show up.
	// Default: 5s.
	ConsentTimeout time.Duration

	// ConsentSettle is the pause after dismissing the dialog. Default: 2s.
	ConsentSettle time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 60 * time.Second
	}
	if c.InitialSettle <= 0 {
		c.InitialSettle = 5 * time.Second
	}
	if c.ScrollDelay <= 0 {
		c.ScrollDelay = 2500 * time.Millisecond
	}
	if c.FinalSettle <= 0 {
		c.FinalSettle = 3 * time.Second
	}
	if c.MaxPatience <= 0 {
		c.MaxPatience = 5
	}
	if c.MaxCycles <= 0 {
		c.MaxCycles = 200
	}
	if c.ConsentTimeout <= 0 {
		c.ConsentTimeout = 5 * time.Second
	}
	if c.ConsentSettle <= 0 {
		c.ConsentSettle = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Discoverer finds the video set behind a listing URL.
type Discoverer struct {
	cfg Config
}

// New creates a Discoverer.
func New(cfg Config) *Discoverer {
	cfg.defaults()
	return &Discoverer{cfg: cfg}
}

// Discover navigates to the listing behind entryURL, scrolls until the
// rendered extent stabilizes (or the cycle ceiling is hit), and returns the
// harvested links deduplicated by canonical watch URL, first seen wins.
// Links without a title are dropped. An empty slice with a nil error means
// the listing really contained nothing.
func (d *Discoverer) Discover(ctx context.Context, page Page, entryURL string) ([]Link, error) {
	cfg := d.cfg
	log := cfg.Logger

	listingURL := ListingURL(entryURL)
	if listingURL != entryURL {
		log.Info("discover: channel url, targeting videos tab", "url", listingURL)
	}

	if err := page.Navigate(ctx, listingURL, cfg.NavTimeout); err != nil {
		return nil, fmt.Errorf("discover: load listing: %w", err)
	}
	if err := page.Sleep(ctx, cfg.InitialSettle); err != nil {
		return nil, err
	}

	d.acceptConsent(ctx, page)

	if err := d.scrollOut(ctx, page); err != nil {
		return nil, err
	}

	if err := page.Sleep(ctx, cfg.FinalSettle); err != nil {
		return nil, err
	}

	raw, err := page.EvalString(ctx, jsHarvestLinks)
	if err != nil {
		return nil, fmt.Errorf("discover: harvest links: %w", err)
	}

	var links []Link
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, fmt.Errorf("discover: parse links: %w", err)
	}

	unique := dedupe(links, log)
	log.Info("discover: listing harvested", "links", len(links), "unique", len(unique))
	return unique, nil
}

// scrollOut drives the scroll-extend-measure loop: scroll to the bottom,
// wait for new items, measure. Patience counts consecutive unchanged
// measurements; the first measurement only sets the baseline.
func (d *Discoverer) scrollOut(ctx context.Context, page Page) error {
	cfg := d.cfg
	log := cfg.Logger

	previous := -1.0
	patience := 0
	cycles := 0

	for patience < cfg.MaxPatience {
		if _, err := page.EvalString(ctx, jsScrollToBottom); err != nil {
			return fmt.Errorf("discover: scroll: %w", err)
		}
		if err := page.Sleep(ctx, cfg.ScrollDelay); err != nil {
			return err
		}

		current, err := page.EvalFloat(ctx, jsScrollHeight)
		if err != nil {
			return fmt.Errorf("discover: measure extent: %w", err)
		}

		if current == previous {
			patience++
			log.Debug("discover: extent unchanged", "cycle", cycles, "patience", patience)
		} else {
			patience = 0
			previous = current
			log.Debug("discover: extent grew", "cycle", cycles, "height", current)
		}

		cycles++
		if cycles > cfg.MaxCycles {
			log.Info("discover: scroll ceiling reached", "cycles", cycles)
			break
		}
	}

	log.Info("discover: scrolling complete", "cycles", cycles)
	return nil
}

// acceptConsent dismisses the cookie consent dialog when one shows up within
// the budget. Strictly best-effort: listings render behind the dialog
// anyway, so every failure path just returns.
func (d *Discoverer) acceptConsent(ctx context.Context, page Page) {
	deadline := time.Now().Add(d.cfg.ConsentTimeout)
	for {
		clicked, err := page.EvalBool(ctx, jsClickConsent)
		if err != nil {
			return
		}
		if clicked {
			d.cfg.Logger.Info("discover: consent dialog dismissed")
			_ = page.Sleep(ctx, d.cfg.ConsentSettle)
			return
		}
		if time.Now().After(deadline) {
			return
		}
		if page.Sleep(ctx, 250*time.Millisecond) != nil {
			return
		}
	}
}

func dedupe(links []Link, log *slog.Logger) []Link {
	seen := make(map[string]struct{}, len(links))
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l.Title == "" {
			continue
		}
		key, err := CanonicalWatchURL(l.URL)
		if err != nil {
			log.Debug("discover: dropping non-watch link", "url", l.URL)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Link{URL: key, Title: l.Title})
	}
	return out
}

const (
	jsScrollToBottom = `() => { window.scrollTo(0, document.documentElement.scrollHeight); return ''; }`

	jsScrollHeight = `() => document.documentElement.scrollHeight`

	// jsClickConsent clicks the consent dialog's accept button when
	// visible. Exact "Accept all" wins; any visible Accept/Reject button
	// is the fallback.
	jsClickConsent = `() => {
		const visible = (el) => el && el.offsetParent !== null;
		const buttons = Array.from(document.querySelectorAll('button'));
		let target = buttons.find(b => visible(b) && (b.textContent || '').trim().toLowerCase() === 'accept all');
		if (!target) {
			target = buttons.find(b => visible(b) && /accept|reject/i.test(b.textContent || ''));
		}
		if (!target) return false;
		target.click();
		return true;
	}`

	// jsHarvestLinks tries selector strategies from most to least specific;
	// the first one that matches anything wins. Each strategy covers a
	// listing layout (search results, channel grid, playlist).
	jsHarvestLinks = `() => {
		const links = [];
		const selectors = [
			'a#video-title',
			'a#video-title-link',
			'a.yt-simple-endpoint.style-scope.ytd-video-renderer',
			'ytd-video-renderer a#video-title',
			'ytd-grid-video-renderer a#video-title',
			'ytd-playlist-video-renderer a#video-title'
		];
		for (const selector of selectors) {
			for (const el of document.querySelectorAll(selector)) {
				if (el.href && el.href.includes('watch?v=')) {
					links.push({ url: el.href, title: el.title || (el.textContent || '').trim() });
				}
			}
			if (links.length > 0) break;
		}
		return JSON.stringify(links);
	}`
)
