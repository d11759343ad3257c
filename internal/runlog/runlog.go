// Package runlog persists extraction run history to SQLite.
//
// Each run gets one row in runs plus one row per video in run_videos.
// The store is append-mostly: a run is created when extraction starts,
// finished with its final counters, and eventually pruned by age.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/vtx/internal/dbopen"
)

// Run is one extraction run's header row.
type Run struct {
	ID           string `json:"id"`
	EntryURL     string `json:"entry_url"`
	OutputDir    string `json:"output_dir"`
	ManifestPath string `json:"manifest_path"`
	Discovered   int    `json:"discovered"`
	Succeeded    int    `json:"succeeded"`
	Unavailable  int    `json:"unavailable"`
	Failed       int    `json:"failed"`
	StartedAt    int64  `json:"started_at"`
	FinishedAt   *int64 `json:"finished_at,omitempty"`
}

// Video is one per-video outcome within a run. Position is the video's
// index in discovery order, so RunVideos returns rows in the same order
// the manifest lists them.
type Video struct {
	ID          string `json:"id"`
	RunID       string `json:"run_id"`
	Position    int    `json:"position"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	File        string `json:"file,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// Store provides run-history access over a single SQLite database.
type Store struct {
	DB *sql.DB
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// CreateRun inserts a new run header. StartedAt defaults to now.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	if run.StartedAt == 0 {
		run.StartedAt = time.Now().UnixMilli()
	}
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO runs (id, entry_url, output_dir, manifest_path,
		discovered, succeeded, unavailable, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.EntryURL, run.OutputDir, run.ManifestPath,
		run.Discovered, run.Succeeded, run.Unavailable, run.Failed,
		run.StartedAt, run.FinishedAt,
	)
	return err
}

// FinishRun records final counters and the manifest path for a run.
// FinishedAt defaults to now.
func (s *Store) FinishRun(ctx context.Context, run *Run) error {
	if run.FinishedAt == nil {
		now := time.Now().UnixMilli()
		run.FinishedAt = &now
	}
	_, err := dbopen.Exec(ctx, s.DB,
		`UPDATE runs SET manifest_path=?, discovered=?, succeeded=?,
		unavailable=?, failed=?, finished_at=?
		WHERE id=?`,
		run.ManifestPath, run.Discovered, run.Succeeded,
		run.Unavailable, run.Failed, run.FinishedAt, run.ID,
	)
	return err
}

// AddOutcome appends one video outcome to a run. An empty ID gets a fresh
// UUID; CreatedAt defaults to now.
func (s *Store) AddOutcome(ctx context.Context, v *Video) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt == 0 {
		v.CreatedAt = time.Now().UnixMilli()
	}
	_, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO run_videos (id, run_id, position, url, title, status,
		file, reason, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.RunID, v.Position, v.URL, v.Title, v.Status,
		v.File, v.Reason, v.Description, v.CreatedAt,
	)
	return err
}

// GetRun retrieves a run by ID, or nil when no such run exists.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, entry_url, output_dir, manifest_path,
		discovered, succeeded, unavailable, failed, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the newest runs first, at most limit of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, entry_url, output_dir, manifest_path,
		discovered, succeeded, unavailable, failed, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunVideos returns a run's video outcomes in discovery order.
func (s *Store) RunVideos(ctx context.Context, runID string) ([]*Video, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, run_id, position, url, title, status,
		file, reason, description, created_at
		FROM run_videos WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		var v Video
		err := rows.Scan(
			&v.ID, &v.RunID, &v.Position, &v.URL, &v.Title, &v.Status,
			&v.File, &v.Reason, &v.Description, &v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("runlog: scan video: %w", err)
		}
		videos = append(videos, &v)
	}
	return videos, rows.Err()
}

// Prune deletes all but the newest keep runs. Video rows cascade.
// It returns the number of runs removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	var pruned int
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM runs WHERE id NOT IN (
				SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
			)`, keep)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		pruned = int(n)
		return nil
	})
	return pruned, err
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	err := row.Scan(
		&run.ID, &run.EntryURL, &run.OutputDir, &run.ManifestPath,
		&run.Discovered, &run.Succeeded, &run.Unavailable, &run.Failed,
		&run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("runlog: scan run: %w", err)
	}
	return &run, nil
}

func scanRunRows(rows *sql.Rows) (*Run, error) {
	var run Run
	err := rows.Scan(
		&run.ID, &run.EntryURL, &run.OutputDir, &run.ManifestPath,
		&run.Discovered, &run.Succeeded, &run.Unavailable, &run.Failed,
		&run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("runlog: scan run: %w", err)
	}
	return &run, nil
}
