package runlog

import "database/sql"

// Schema holds the run-history tables. Timestamps are ms since epoch.
const Schema = `
-- Runs: one row per extraction run
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    entry_url     TEXT NOT NULL,
    output_dir    TEXT NOT NULL,
    manifest_path TEXT NOT NULL DEFAULT '',
    discovered    INTEGER NOT NULL DEFAULT 0,
    succeeded     INTEGER NOT NULL DEFAULT 0,
    unavailable   INTEGER NOT NULL DEFAULT 0,
    failed        INTEGER NOT NULL DEFAULT 0,
    started_at    INTEGER NOT NULL,
    finished_at   INTEGER
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

-- Run videos: one row per video outcome within a run
CREATE TABLE IF NOT EXISTS run_videos (
    id          TEXT PRIMARY KEY,
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL DEFAULT 0,
    url         TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    file        TEXT NOT NULL DEFAULT '',
    reason      TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_videos_run ON run_videos(run_id, position);
`

// ApplySchema creates the run-history tables and indexes.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
