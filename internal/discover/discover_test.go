package discover_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/vtx/internal/discover"
)

// fakePage simulates a listing page: a sequence of extent measurements, an
// optional consent button, and a fixed harvest payload.
type fakePage struct {
	heights []float64 // successive scrollHeight readings; last one repeats
	harvest string    // JSON returned by the harvest script
	consent bool
	navErr  error

	navigated     []string
	scrolls       int
	measures      int
	consentClicks int
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) EvalString(ctx context.Context, js string) (string, error) {
	if strings.Contains(js, "scrollTo") {
		p.scrolls++
		return "", nil
	}
	return p.harvest, nil
}

func (p *fakePage) EvalBool(ctx context.Context, js string) (bool, error) {
	if p.consent && p.consentClicks == 0 {
		p.consentClicks++
		return true, nil
	}
	return false, nil
}

func (p *fakePage) EvalFloat(ctx context.Context, js string) (float64, error) {
	i := p.measures
	if i >= len(p.heights) {
		i = len(p.heights) - 1
	}
	p.measures++
	return p.heights[i], nil
}

func (p *fakePage) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func fastConfig() discover.Config {
	return discover.Config{
		NavTimeout:     time.Second,
		InitialSettle:  time.Millisecond,
		ScrollDelay:    time.Millisecond,
		FinalSettle:    time.Millisecond,
		MaxPatience:    5,
		MaxCycles:      200,
		ConsentTimeout: 5 * time.Millisecond,
		ConsentSettle:  time.Millisecond,
	}
}

func TestDiscoverStaticListing(t *testing.T) {
	page := &fakePage{
		heights: []float64{1000},
		harvest: `[{"url":"https://www.youtube.com/watch?v=a1","title":"First"}]`,
	}
	d := discover.New(fastConfig())

	links, err := d.Discover(context.Background(), page, "https://www.youtube.com/playlist?list=PL1")
	if err != nil {
		t.Fatal(err)
	}

	// One baseline measurement plus exactly max-patience unchanged cycles.
	if page.scrolls != 6 {
		t.Fatalf("scroll cycles = %d, want 6", page.scrolls)
	}
	if len(links) != 1 || links[0].Title != "First" {
		t.Fatalf("links = %+v", links)
	}
}

func TestDiscoverGrowingListing(t *testing.T) {
	page := &fakePage{
		heights: []float64{1000, 2000, 3000}, // then stable at 3000
		harvest: `[]`,
	}
	d := discover.New(fastConfig())

	if _, err := d.Discover(context.Background(), page, "https://www.youtube.com/playlist?list=PL1"); err != nil {
		t.Fatal(err)
	}

	// Three growth cycles, then five unchanged ones.
	if page.scrolls != 8 {
		t.Fatalf("scroll cycles = %d, want 8", page.scrolls)
	}
}

func TestDiscoverCycleCeiling(t *testing.T) {
	// A listing whose extent never stabilizes.
	page := &fakePage{harvest: `[]`}
	page.heights = make([]float64, 300)
	for i := range page.heights {
		page.heights[i] = float64(1000 + i)
	}

	cfg := fastConfig()
	cfg.MaxCycles = 10
	d := discover.New(cfg)

	if _, err := d.Discover(context.Background(), page, "https://www.youtube.com/playlist?list=PL1"); err != nil {
		t.Fatal(err)
	}
	if page.scrolls != 11 {
		t.Fatalf("scroll cycles = %d, want 11 (ceiling checked after each cycle)", page.scrolls)
	}
}

func TestDiscoverDedup(t *testing.T) {
	page := &fakePage{
		heights: []float64{500},
		harvest: `[
			{"url":"https://www.youtube.com/watch?v=abc&t=1s","title":"Talk"},
			{"url":"https://WWW.YouTube.com/watch?v=abc","title":"Talk (dup)"},
			{"url":"https://www.youtube.com/watch?v=def","title":""},
			{"url":"https://www.youtube.com/watch?v=ghi","title":"Other"}
		]`,
	}
	d := discover.New(fastConfig())

	links, err := d.Discover(context.Background(), page, "https://www.youtube.com/playlist?list=PL1")
	if err != nil {
		t.Fatal(err)
	}

	if len(links) != 2 {
		t.Fatalf("got %d links, want 2: %+v", len(links), links)
	}
	if links[0].URL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("first link not canonical: %q", links[0].URL)
	}
	// First seen wins, both for position and title.
	if links[0].Title != "Talk" {
		t.Fatalf("first-seen title lost: %q", links[0].Title)
	}
	if links[1].URL != "https://www.youtube.com/watch?v=ghi" {
		t.Fatalf("second link = %q", links[1].URL)
	}
}

func TestDiscoverConsent(t *testing.T) {
	page := &fakePage{
		heights: []float64{500},
		harvest: `[]`,
		consent: true,
	}
	d := discover.New(fastConfig())

	if _, err := d.Discover(context.Background(), page, "https://www.youtube.com/playlist?list=PL1"); err != nil {
		t.Fatal(err)
	}
	if page.consentClicks != 1 {
		t.Fatalf("consent clicks = %d, want 1", page.consentClicks)
	}
}

func TestDiscoverChannelTargetsVideosTab(t *testing.T) {
	page := &fakePage{heights: []float64{500}, harvest: `[]`}
	d := discover.New(fastConfig())

	if _, err := d.Discover(context.Background(), page, "https://www.youtube.com/@handle"); err != nil {
		t.Fatal(err)
	}
	if len(page.navigated) != 1 || page.navigated[0] != "https://www.youtube.com/@handle/videos" {
		t.Fatalf("navigated = %v", page.navigated)
	}
}

func TestDiscoverNavigateError(t *testing.T) {
	page := &fakePage{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	d := discover.New(fastConfig())

	_, err := d.Discover(context.Background(), page, "https://www.youtube.com/playlist?list=PL1")
	if err == nil {
		t.Fatal("expected navigation error")
	}
	if !strings.Contains(err.Error(), "load listing") {
		t.Fatalf("unhelpful error: %v", err)
	}
}

func TestDiscoverCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &fakePage{heights: []float64{500}, harvest: `[]`}
	d := discover.New(fastConfig())

	if _, err := d.Discover(ctx, page, "https://www.youtube.com/playlist?list=PL1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
