package transcript_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/vtx/internal/transcript"
)

// fakeWatchPage scripts a watch page: which elements exist, what the panel
// does, and what the segment reader finds.
type fakeWatchPage struct {
	navErr        error
	title         string
	descHTML      string
	player        bool
	moreButton    bool
	showButton    bool
	headingAfter  bool // heading appears once "Show transcript" was clicked
	headingAlways bool // panel was open before we touched anything
	segmentsJSON  string

	navigated  []string
	moreClicks int
	showClicks int
}

func (p *fakeWatchPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakeWatchPage) EvalString(ctx context.Context, js string) (string, error) {
	switch {
	case strings.Contains(js, "h1.ytd-watch-metadata"):
		return p.title, nil
	case strings.Contains(js, "#description"):
		return p.descHTML, nil
	case strings.Contains(js, "ytd-transcript-segment-renderer"):
		return p.segmentsJSON, nil
	}
	return "", nil
}

func (p *fakeWatchPage) EvalBool(ctx context.Context, js string) (bool, error) {
	switch {
	case strings.Contains(js, "querySelector('video')"):
		return p.player, nil
	case strings.Contains(js, "'...more'"):
		if p.moreButton {
			p.moreClicks++
			return true, nil
		}
		return false, nil
	case strings.Contains(js, "'show transcript'"):
		if p.showButton {
			p.showClicks++
			return true, nil
		}
		return false, nil
	case strings.Contains(js, "heading"):
		return p.headingAlways || (p.headingAfter && p.showClicks > 0), nil
	}
	return false, nil
}

func (p *fakeWatchPage) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func fastConfig() transcript.Config {
	return transcript.Config{
		NavTimeout:     time.Second,
		PlayerTimeout:  10 * time.Millisecond,
		ExpandTimeout:  10 * time.Millisecond,
		ExpandSettle:   time.Millisecond,
		OpenTimeout:    10 * time.Millisecond,
		PanelTimeout:   10 * time.Millisecond,
		PanelRecheck:   5 * time.Millisecond,
		SegmentsSettle: time.Millisecond,
		PollInterval:   time.Millisecond,
	}
}

func workingPage() *fakeWatchPage {
	return &fakeWatchPage{
		title:        "Read From Page",
		player:       true,
		moreButton:   true,
		showButton:   true,
		headingAfter: true,
		segmentsJSON: `[{"timestamp":"0:00","text":"hello there"},{"timestamp":"0:05","text":"welcome back"}]`,
	}
}

func TestFetchSuccess(t *testing.T) {
	page := workingPage()
	f := transcript.New(fastConfig())

	res, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", "My Video")
	if err != nil {
		t.Fatal(err)
	}

	if res.Title != "My Video" {
		t.Fatalf("title = %q, want the caller's hint", res.Title)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(res.Segments))
	}
	if res.Segments[0].Timestamp != "0:00" || res.Segments[0].Text != "hello there" {
		t.Fatalf("first segment = %+v", res.Segments[0])
	}
	if page.moreClicks != 1 || page.showClicks != 1 {
		t.Fatalf("clicks: more=%d show=%d, want 1 and 1", page.moreClicks, page.showClicks)
	}
}

func TestFetchResolvesPlaceholderTitle(t *testing.T) {
	page := workingPage()
	f := transcript.New(fastConfig())

	res, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", transcript.TitlePlaceholder)
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != "Read From Page" {
		t.Fatalf("title = %q, want page title", res.Title)
	}
}

func TestFetchUnknownTitle(t *testing.T) {
	page := workingPage()
	page.title = ""
	f := transcript.New(fastConfig())

	res, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Title != transcript.UnknownTitle {
		t.Fatalf("title = %q, want %q", res.Title, transcript.UnknownTitle)
	}
}

func TestFetchNavigationFailure(t *testing.T) {
	page := workingPage()
	page.navErr = errors.New("net::ERR_CONNECTION_RESET")
	f := transcript.New(fastConfig())

	_, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", "T")
	if !errors.Is(err, transcript.ErrPageUnavailable) {
		t.Fatalf("err = %v, want ErrPageUnavailable", err)
	}
}

func TestFetchPlayerNeverAppears(t *testing.T) {
	page := workingPage()
	page.player = false
	f := transcript.New(fastConfig())

	_, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", "T")
	if !errors.Is(err, transcript.ErrPageUnavailable) {
		t.Fatalf("err = %v, want ErrPageUnavailable", err)
	}
	if !strings.Contains(err.Error(), "player") {
		t.Fatalf("cause not named: %v", err)
	}
}

func TestFetchNoTranscript(t *testing.T) {
	page := workingPage()
	page.showButton = false
	page.headingAfter = false
	f := transcript.New(fastConfig())

	_, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", "T")
	if !errors.Is(err, transcript.ErrNoTranscript) {
		t.Fatalf("err = %v, want ErrNoTranscript", err)
	}
	// The chain's own cause survives inside the unavailability error.
	if !strings.Contains(err.Error(), "Show transcript") {
		t.Fatalf("chain cause lost: %v", err)
	}
}

func TestFetchPanelAlreadyOpen(t *testing.T) {
	page := workingPage()
	page.moreButton = false // chain breaks immediately
	page.headingAlways = true
	f := transcript.New(fastConfig())

	res, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", "T")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(res.Segments))
	}
	if page.showClicks != 0 {
		t.Fatalf("show clicked %d times on a pre-opened panel", page.showClicks)
	}
}

func TestFetchEmptyPanel(t *testing.T) {
	page := workingPage()
	page.segmentsJSON = `[]`
	f := transcript.New(fastConfig())

	_, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", "T")
	if !errors.Is(err, transcript.ErrNoTranscript) {
		t.Fatalf("err = %v, want ErrNoTranscript", err)
	}
}

func TestFetchDescriptionMarkdown(t *testing.T) {
	page := workingPage()
	page.descHTML = `<div id="description"><b>Hello</b> viewers</div>`
	f := transcript.New(fastConfig())

	res, err := f.Fetch(context.Background(), page, "https://www.youtube.com/watch?v=a1", "T")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Description, "**Hello**") {
		t.Fatalf("description not converted: %q", res.Description)
	}
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := workingPage()
	f := transcript.New(fastConfig())

	_, err := f.Fetch(ctx, page, "https://www.youtube.com/watch?v=a1", "T")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, transcript.ErrNoTranscript) {
		t.Fatal("cancellation must not be reported as a missing transcript")
	}
}
