package runlog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/vtx/internal/dbopen"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := ApplySchema(db); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func TestApplySchema(t *testing.T) {
	// WHAT: Verify schema creates both tables without error.
	db := openTestDB(t)
	for _, table := range []string{"runs", "run_videos"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestCreateAndGetRun(t *testing.T) {
	// WHAT: Insert a run and retrieve it by ID.
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()

	run := &Run{
		ID:        "run-001",
		EntryURL:  "https://www.youtube.com/@example/videos",
		OutputDir: "transcripts",
	}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.StartedAt == 0 {
		t.Error("started_at should default to now")
	}

	got, err := s.GetRun(ctx, "run-001")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got == nil {
		t.Fatal("run not found")
	}
	if got.EntryURL != run.EntryURL {
		t.Errorf("entry_url: got %q, want %q", got.EntryURL, run.EntryURL)
	}
	if got.FinishedAt != nil {
		t.Errorf("finished_at should be nil on a fresh run, got %d", *got.FinishedAt)
	}
}

func TestGetRunMissing(t *testing.T) {
	// WHAT: GetRun returns nil, nil for an unknown ID.
	db := openTestDB(t)
	s := NewStore(db)

	got, err := s.GetRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestFinishRun(t *testing.T) {
	// WHAT: FinishRun records final counters, manifest path and end time.
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()

	run := &Run{ID: "run-fin", EntryURL: "https://www.youtube.com/watch?v=abc", OutputDir: "out"}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	run.ManifestPath = "out/summary_20240102_150405.json"
	run.Discovered = 3
	run.Succeeded = 2
	run.Unavailable = 1
	if err := s.FinishRun(ctx, run); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	got, _ := s.GetRun(ctx, "run-fin")
	if got.ManifestPath != run.ManifestPath {
		t.Errorf("manifest_path: got %q", got.ManifestPath)
	}
	if got.Discovered != 3 || got.Succeeded != 2 || got.Unavailable != 1 || got.Failed != 0 {
		t.Errorf("counters: got %d/%d/%d/%d", got.Discovered, got.Succeeded, got.Unavailable, got.Failed)
	}
	if got.FinishedAt == nil {
		t.Error("finished_at should be set")
	}
}

func TestAddOutcomeGeneratesID(t *testing.T) {
	// WHAT: AddOutcome assigns a UUID when the caller leaves ID empty.
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()

	s.CreateRun(ctx, &Run{ID: "run-v", EntryURL: "u", OutputDir: "o"})

	v := &Video{RunID: "run-v", URL: "https://www.youtube.com/watch?v=abc", Title: "Talk", Status: "Success"}
	if err := s.AddOutcome(ctx, v); err != nil {
		t.Fatalf("add video: %v", err)
	}
	if v.ID == "" {
		t.Error("id should be generated")
	}
	if v.CreatedAt == 0 {
		t.Error("created_at should default to now")
	}

	videos, err := s.RunVideos(ctx, "run-v")
	if err != nil {
		t.Fatalf("videos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("count: got %d, want 1", len(videos))
	}
	if videos[0].ID != v.ID {
		t.Errorf("id: got %q, want %q", videos[0].ID, v.ID)
	}
}

func TestRunVideosDiscoveryOrder(t *testing.T) {
	// WHAT: RunVideos returns rows ordered by position, not insert order.
	// WHY: Concurrent extraction finishes out of order; history must
	// still read like the listing did.
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()

	s.CreateRun(ctx, &Run{ID: "run-ord", EntryURL: "u", OutputDir: "o"})
	for _, pos := range []int{2, 0, 1} {
		err := s.AddOutcome(ctx, &Video{
			RunID:    "run-ord",
			Position: pos,
			URL:      "https://www.youtube.com/watch?v=v" + string(rune('a'+pos)),
			Status:   "Success",
		})
		if err != nil {
			t.Fatalf("add video %d: %v", pos, err)
		}
	}

	videos, err := s.RunVideos(ctx, "run-ord")
	if err != nil {
		t.Fatalf("videos: %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("count: got %d, want 3", len(videos))
	}
	for i, v := range videos {
		if v.Position != i {
			t.Errorf("videos[%d].position: got %d, want %d", i, v.Position, i)
		}
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	// WHAT: ListRuns orders by started_at descending and honors limit.
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		err := s.CreateRun(ctx, &Run{ID: id, EntryURL: "u", OutputDir: "o", StartedAt: base + int64(i)})
		if err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("count: got %d, want 3", len(runs))
	}
	if runs[0].ID != "run-c" {
		t.Errorf("first should be run-c, got %s", runs[0].ID)
	}

	runs, err = s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("limited count: got %d, want 2", len(runs))
	}
}

func TestPrune(t *testing.T) {
	// WHAT: Prune keeps only the newest runs and cascades video rows.
	db := openTestDB(t)
	s := NewStore(db)
	ctx := context.Background()

	base := time.Now().UnixMilli()
	for i := range 5 {
		id := "run-" + string(rune('0'+i))
		if err := s.CreateRun(ctx, &Run{ID: id, EntryURL: "u", OutputDir: "o", StartedAt: base + int64(i)}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if err := s.AddOutcome(ctx, &Video{RunID: id, URL: "https://www.youtube.com/watch?v=x", Status: "Success"}); err != nil {
			t.Fatalf("add video %s: %v", id, err)
		}
	}

	pruned, err := s.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 3 {
		t.Errorf("pruned: got %d, want 3", pruned)
	}

	runs, _ := s.ListRuns(ctx, 10)
	if len(runs) != 2 {
		t.Fatalf("remaining: got %d, want 2", len(runs))
	}
	if runs[0].ID != "run-4" || runs[1].ID != "run-3" {
		t.Errorf("kept wrong runs: %s, %s", runs[0].ID, runs[1].ID)
	}

	var orphans int
	err = db.QueryRow(
		`SELECT COUNT(*) FROM run_videos WHERE run_id NOT IN (SELECT id FROM runs)`,
	).Scan(&orphans)
	if err != nil {
		t.Fatalf("count orphans: %v", err)
	}
	if orphans != 0 {
		t.Errorf("orphaned videos: got %d, want 0", orphans)
	}
}
