package vtx

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// manifestEntry is one video's row in the summary manifest. File is the base
// name of the formatted transcript, present only on success.
type manifestEntry struct {
	Video  string `json:"video"`
	Status string `json:"status"`
	File   string `json:"file,omitempty"`
}

// runManifest is the summary document written at the end of every run, even
// when no video succeeded.
type runManifest struct {
	RunID     string          `json:"run_id,omitempty"`
	EntryURL  string          `json:"entry_url"`
	CreatedAt string          `json:"created_at"`
	Results   []manifestEntry `json:"results"`
}

// manifestStatus maps an outcome onto the manifest's status wording: the
// fixed success/unavailable strings, or the failure reason.
func manifestStatus(o ExtractionOutcome) string {
	if o.Status == StatusFailed && o.Reason != "" {
		return o.Reason
	}
	return o.Status.String()
}

func buildManifest(runID, entryURL string, outcomes []ExtractionOutcome, now time.Time) *runManifest {
	m := &runManifest{
		RunID:     runID,
		EntryURL:  entryURL,
		CreatedAt: now.UTC().Format(time.RFC3339),
		Results:   make([]manifestEntry, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		e := manifestEntry{
			Video:  o.Video.Title,
			Status: manifestStatus(o),
		}
		if o.Status == StatusSuccess {
			e.File = o.Files.Formatted
		}
		m.Results = append(m.Results, e)
	}
	return m
}

func writeManifest(path string, m *runManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("vtx: marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("vtx: write manifest: %w", err)
	}
	return nil
}
