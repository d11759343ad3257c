package vtx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/vtx/internal/browser"
	"github.com/hazyhaar/vtx/internal/dbopen"
	"github.com/hazyhaar/vtx/internal/discover"
	"github.com/hazyhaar/vtx/internal/format"
	"github.com/hazyhaar/vtx/internal/runlog"
	"github.com/hazyhaar/vtx/internal/schedule"
	"github.com/hazyhaar/vtx/internal/transcript"
)

// Progress receives one human-readable line per run event: the opening
// banner, per-video status, and the closing summary. The default sink logs
// each line at info level.
type Progress func(line string)

// session is the per-run browser handle. Production code wraps
// browser.Manager; tests substitute scripted fakes.
type session interface {
	NewTab(isolated bool) (tab, error)
	Close() error
}

// tab is the union of the page surfaces discovery and extraction need.
type tab interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	EvalString(ctx context.Context, js string) (string, error)
	EvalBool(ctx context.Context, js string) (bool, error)
	EvalFloat(ctx context.Context, js string) (float64, error)
	Sleep(ctx context.Context, d time.Duration) error
	Close() error
}

type rodSession struct {
	m *browser.Manager
}

func (r *rodSession) NewTab(isolated bool) (tab, error) { return r.m.NewTab(isolated) }
func (r *rodSession) Close() error                      { return r.m.Close() }

// Service runs transcript extractions. Create one with New. A Service may be
// reused for several runs; each Run call launches and closes its own browser.
type Service struct {
	cfg      Config
	log      *slog.Logger
	progress Progress

	history   *runlog.Store
	historyDB *sql.DB

	openSession     func() (session, error)
	discoverLinks   func(ctx context.Context, page discover.Page, entry string) ([]discover.Link, error)
	fetchTranscript func(ctx context.Context, page transcript.Page, watchURL, titleHint string) (*transcript.Result, error)
	now             func() time.Time
	newID           func() string
}

// New assembles a Service from cfg. A nil cfg means defaults, a nil logger
// falls back to slog.Default. When cfg.HistoryDB names a file and no store
// was injected with WithRunLog, New opens that database itself and the
// Service owns it until Close.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:             c,
		log:             logger,
		discoverLinks:   discover.New(c.discoverConfig(logger)).Discover,
		fetchTranscript: transcript.New(c.fetchConfig(logger)).Fetch,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	s.progress = func(line string) { s.log.Info(line) }
	s.openSession = func() (session, error) {
		m := browser.NewManager(s.cfg.browserConfig(s.log))
		if err := m.Start(); err != nil {
			return nil, err
		}
		return &rodSession{m: m}, nil
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.history == nil && c.HistoryDB != "" {
		db, err := dbopen.Open(c.HistoryDB, dbopen.WithMkdirAll(), dbopen.WithSchema(runlog.Schema))
		if err != nil {
			return nil, fmt.Errorf("vtx: open run history: %w", err)
		}
		s.history = runlog.NewStore(db)
		s.historyDB = db
	}
	return s, nil
}

// Option adjusts a Service beyond its configuration.
type Option func(*Service)

// WithProgress routes run progress lines to fn instead of the logger.
func WithProgress(fn Progress) Option {
	return func(s *Service) {
		if fn != nil {
			s.progress = fn
		}
	}
}

// WithRunLog records run history through store instead of opening
// cfg.HistoryDB. The caller keeps ownership of the underlying database.
func WithRunLog(store *RunStore) Option {
	return func(s *Service) { s.history = store }
}

// WithClock overrides the time source used for run timestamps and file
// names. Use in tests that assert on generated names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNewID overrides run ID generation. Use in tests that assert on
// history rows.
func WithNewID(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Close releases resources the Service opened itself, currently the run
// history database. Browsers are per-run and closed inside Run.
func (s *Service) Close() error {
	if s.historyDB != nil {
		return s.historyDB.Close()
	}
	return nil
}

var banner = strings.Repeat("=", 60)

// Run executes one full extraction: entry classification, discovery,
// concurrent per-video extraction, transcript files, manifest, run history.
// The returned summary covers every discovered video. When ctx is cancelled
// mid-run the remaining videos fail with the context error, the manifest is
// still written, and Run returns the partial summary together with ctx.Err().
func (s *Service) Run(ctx context.Context) (*RunSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, entry, err := NormalizeEntry(s.cfg.EntryURL)
	if err != nil {
		return nil, err
	}

	runID := s.newID()
	started := s.now()
	log := s.log.With("run_id", runID)

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", ErrPersist, err)
	}

	s.progress("Launching browser...")
	sess, err := s.openSession()
	if err != nil {
		return nil, fmt.Errorf("vtx: start browser: %w", err)
	}
	defer sess.Close()

	videos, err := s.collectVideos(ctx, log, sess, kind, entry)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		s.progress("No videos found! Please check the URL.")
		return nil, ErrNoVideos
	}

	run := &runlog.Run{
		ID:         runID,
		EntryURL:   s.cfg.EntryURL,
		OutputDir:  s.cfg.OutputDir,
		Discovered: len(videos),
		StartedAt:  started.UnixMilli(),
	}
	if s.history != nil {
		if err := s.history.CreateRun(ctx, run); err != nil {
			log.Warn("vtx: record run start", "error", err)
		}
	}

	s.progress(banner)
	s.progressf("Found %d videos. Starting concurrent extraction...", len(videos))
	s.progressf("Processing %d videos at a time.", s.cfg.Concurrency)
	s.progress(banner)

	outcomes := make([]ExtractionOutcome, len(videos))
	writer := &format.Writer{Dir: s.cfg.OutputDir, Now: s.now}

	gate := schedule.Gate{
		Limit:  s.cfg.Concurrency,
		Logger: log,
		OnPanic: func(i int, v any) {
			cause := fmt.Errorf("%w: panic: %v", ErrExtraction, v)
			outcomes[i] = ExtractionOutcome{Video: videos[i], Status: StatusFailed, Reason: cause.Error()}
			s.progressf("  [ERROR] %s: %v", logTitle(videos[i].Title), v)
		},
	}
	gate.Run(ctx, len(videos), func(ctx context.Context, i int) {
		outcomes[i] = s.extractOne(ctx, sess, writer, videos[i])
	})

	finished := s.now()
	var succeeded, unavailable, failed int
	for _, o := range outcomes {
		switch o.Status {
		case StatusSuccess:
			succeeded++
		case StatusUnavailable:
			unavailable++
		default:
			failed++
		}
	}

	manifestPath := filepath.Join(s.cfg.OutputDir, "summary_"+finished.Format("20060102_150405")+".json")
	if err := writeManifest(manifestPath, buildManifest(runID, s.cfg.EntryURL, outcomes, finished)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	summary := &RunSummary{
		RunID:        runID,
		EntryURL:     s.cfg.EntryURL,
		OutputDir:    s.cfg.OutputDir,
		ManifestPath: manifestPath,
		Outcomes:     outcomes,
		Discovered:   len(videos),
		Succeeded:    succeeded,
		Unavailable:  unavailable,
		Failed:       failed,
		StartedAt:    started,
		FinishedAt:   finished,
	}
	if s.history != nil {
		s.recordHistory(ctx, log, run, summary)
	}

	s.progress(banner)
	s.progress("Extraction complete!")
	s.progressf("Successful: %d/%d", succeeded, len(videos))
	s.progressf("Output directory: %s", s.cfg.OutputDir)
	s.progress(banner)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// collectVideos resolves the entry into the list of videos to extract. A
// single-video entry skips the browser entirely; listings and channels get a
// shared discovery tab. Discovery faults other than cancellation degrade to
// an empty list so the run ends with ErrNoVideos instead of a raw DOM error.
func (s *Service) collectVideos(ctx context.Context, log *slog.Logger, sess session, kind EntryKind, entry string) ([]VideoRef, error) {
	if kind == EntryVideo {
		s.progress("Detected single video URL")
		return []VideoRef{{URL: entry, Title: transcript.TitlePlaceholder}}, nil
	}

	t, err := sess.NewTab(false)
	if err != nil {
		return nil, fmt.Errorf("vtx: open discovery tab: %w", err)
	}
	defer t.Close()

	links, err := s.discoverLinks(ctx, t, entry)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		log.Warn("vtx: discovery failed", "entry", entry, "error", err)
		return nil, nil
	}

	videos := make([]VideoRef, len(links))
	for i, l := range links {
		videos[i] = VideoRef{URL: l.URL, Title: l.Title}
	}
	return videos, nil
}

// extractOne runs the whole per-video pipeline in its own isolated tab and
// reports the outcome. Faults never escape: they become the outcome's status.
func (s *Service) extractOne(ctx context.Context, sess session, writer *format.Writer, video VideoRef) ExtractionOutcome {
	title := logTitle(video.Title)
	s.progressf("  [STARTING] %s", title)

	if err := ctx.Err(); err != nil {
		s.progressf("  [ERROR] %s: %v", title, err)
		return ExtractionOutcome{Video: video, Status: StatusFailed, Reason: err.Error()}
	}

	t, err := sess.NewTab(true)
	if err != nil {
		s.progressf("  [ERROR] %s: %v", title, err)
		return ExtractionOutcome{Video: video, Status: StatusFailed, Reason: classifyFault(err).Error()}
	}
	defer t.Close()

	res, err := s.fetchTranscript(ctx, t, video.URL, video.Title)
	if err != nil {
		cause := classifyFault(err)
		if errors.Is(cause, ErrUnavailable) {
			s.progressf("  [NO TRANSCRIPT] %s", title)
			return ExtractionOutcome{Video: video, Status: StatusUnavailable}
		}
		s.progressf("  [ERROR] %s: %v", title, err)
		return ExtractionOutcome{Video: video, Status: StatusFailed, Reason: cause.Error()}
	}

	resolved := VideoRef{URL: video.URL, Title: res.Title}
	s.progressf("  [EXTRACTED] %s (%d segments)", title, len(res.Segments))

	formatted, raw, err := writer.Save(res.Title, video.URL, res.Segments)
	if err != nil {
		s.progressf("  [ERROR] %s: %v", title, err)
		cause := fmt.Errorf("%w: %v", ErrPersist, err)
		return ExtractionOutcome{Video: resolved, Status: StatusFailed, Reason: cause.Error()}
	}
	s.progressf("  [SAVED] %s", formatted)

	return ExtractionOutcome{
		Video:       resolved,
		Status:      StatusSuccess,
		Segments:    res.Segments,
		Files:       SavedFiles{Formatted: formatted, Raw: raw},
		Description: res.Description,
	}
}

// classifyFault folds a per-video error into the package taxonomy. Context
// errors pass through untouched so cancellation stays recognizable.
func classifyFault(err error) error {
	switch {
	case errors.Is(err, transcript.ErrNoTranscript):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, transcript.ErrPageUnavailable):
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}
}

// recordHistory persists per-video outcomes and the run's final counters.
// History is best-effort: failures are logged, never escalated.
func (s *Service) recordHistory(ctx context.Context, log *slog.Logger, run *runlog.Run, summary *RunSummary) {
	for i, o := range summary.Outcomes {
		v := &runlog.Video{
			RunID:       run.ID,
			Position:    i,
			URL:         o.Video.URL,
			Title:       o.Video.Title,
			Status:      o.Status.String(),
			File:        o.Files.Formatted,
			Reason:      o.Reason,
			Description: o.Description,
		}
		if err := s.history.AddOutcome(ctx, v); err != nil {
			log.Warn("vtx: record video outcome", "url", o.Video.URL, "error", err)
		}
	}

	fin := summary.FinishedAt.UnixMilli()
	run.ManifestPath = summary.ManifestPath
	run.Succeeded = summary.Succeeded
	run.Unavailable = summary.Unavailable
	run.Failed = summary.Failed
	run.FinishedAt = &fin
	if err := s.history.FinishRun(ctx, run); err != nil {
		log.Warn("vtx: record run finish", "error", err)
	}

	if s.cfg.KeepRuns > 0 {
		if n, err := s.history.Prune(ctx, s.cfg.KeepRuns); err != nil {
			log.Warn("vtx: prune run history", "error", err)
		} else if n > 0 {
			log.Debug("vtx: pruned run history", "removed", n)
		}
	}
}

func (s *Service) progressf(format string, args ...any) {
	s.progress(fmt.Sprintf(format, args...))
}

// logTitle shortens a title for progress lines.
func logTitle(title string) string {
	r := []rune(title)
	if len(r) > 50 {
		return string(r[:50]) + "..."
	}
	return title
}

// --- Run history ---

// NewRunStore wraps an already open database in a run-history store, for
// callers that manage their own connection. ApplyRunSchema prepares the
// tables it expects.
func NewRunStore(db *sql.DB) *RunStore { return runlog.NewStore(db) }

// ApplyRunSchema creates the run-history tables if they are missing.
func ApplyRunSchema(db *sql.DB) error { return runlog.ApplySchema(db) }

// ListRuns returns recent runs, newest first. It requires run history to be
// configured, either through cfg.HistoryDB or WithRunLog.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if s.history == nil {
		return nil, errors.New("vtx: no run history configured")
	}
	return s.history.ListRuns(ctx, limit)
}

// RunHistory returns one recorded run with its per-video outcomes in
// discovery order. The run is nil when the id is unknown.
func (s *Service) RunHistory(ctx context.Context, runID string) (*RunRecord, []*RunVideo, error) {
	if s.history == nil {
		return nil, nil, errors.New("vtx: no run history configured")
	}
	run, err := s.history.GetRun(ctx, runID)
	if err != nil || run == nil {
		return run, nil, err
	}
	videos, err := s.history.RunVideos(ctx, runID)
	if err != nil {
		return run, nil, err
	}
	return run, videos, nil
}

// --- Transcript utilities ---

// Reflow joins raw transcript segments into readable sentence-grouped text,
// the same shaping Run applies before writing formatted files.
func Reflow(segments []TranscriptSegment) string {
	return format.Reflow(segments)
}

// MergeTranscripts concatenates the formatted transcripts under dir into a
// single file at dest and returns how many it merged. An empty dir means the
// configured output directory.
func (s *Service) MergeTranscripts(dir, dest string) (int, error) {
	if dir == "" {
		dir = s.cfg.OutputDir
	}
	n, err := format.MergeDir(dir, dest, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return n, nil
}
