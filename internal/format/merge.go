package format

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Merge concatenates the given transcript files into dest in the order
// given. Files that no longer exist are skipped. It returns the number of
// files actually merged; when none could be read, no output file is created.
func Merge(paths []string, dest string, now time.Time) (int, error) {
	var contents []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, fmt.Errorf("format: read %s: %w", p, err)
		}
		contents = append(contents, string(data))
	}
	if len(contents) == 0 {
		return 0, nil
	}
	if err := writeMerged(dest, "Selected Files", "", contents, now); err != nil {
		return 0, err
	}
	return len(contents), nil
}

// MergeDir merges every non-raw .txt file in dir, in lexical order, into
// dest. The raw dumps (`*_raw.txt`) and dest itself are excluded.
func MergeDir(dir, dest string, now time.Time) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return 0, fmt.Errorf("format: scan %s: %w", dir, err)
	}

	cleanDest := filepath.Clean(dest)
	var paths []string
	for _, m := range matches {
		if strings.HasSuffix(m, "_raw.txt") || filepath.Clean(m) == cleanDest {
			continue
		}
		paths = append(paths, m)
	}
	sort.Strings(paths)

	var contents []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return 0, fmt.Errorf("format: read %s: %w", p, err)
		}
		contents = append(contents, string(data))
	}
	if len(contents) == 0 {
		return 0, nil
	}
	if err := writeMerged(dest, "All Files", dir, contents, now); err != nil {
		return 0, err
	}
	return len(contents), nil
}

func writeMerged(dest, label, sourceDir string, contents []string, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "MERGED TRANSCRIPTS (%s)\n", label)
	if sourceDir != "" {
		fmt.Fprintf(&b, "Source Folder: %s\n", sourceDir)
	}
	fmt.Fprintf(&b, "Date: %s\n", now.Format(humanTimeLayout))
	fmt.Fprintf(&b, "Total files: %d\n", len(contents))
	b.WriteString(strings.Repeat("=", headerRule))
	b.WriteString("\n\n")

	sep := "\n\n" + strings.Repeat("=", headerRule) + "\n\n"
	b.WriteString(strings.Join(contents, sep))

	if err := os.WriteFile(dest, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("format: write merged file: %w", err)
	}
	return nil
}
