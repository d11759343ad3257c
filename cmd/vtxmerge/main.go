// Command vtxmerge concatenates formatted transcripts into one file.
//
// Usage:
//
//	vtxmerge -dir transcripts                 # every formatted transcript in a directory
//	vtxmerge -o all.txt a.txt b.txt c.txt     # explicit files, in the given order
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hazyhaar/vtx/internal/format"
)

func main() {
	dir := flag.String("dir", "transcripts", "directory holding formatted transcripts")
	out := flag.String("o", "merged_transcripts.txt", "path of the merged file")
	flag.Parse()

	var (
		n   int
		err error
	)
	if files := flag.Args(); len(files) > 0 {
		n, err = format.Merge(files, *out, time.Now())
	} else {
		n, err = format.MergeDir(*dir, *out, time.Now())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "merge failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Merged %d transcripts into %s\n", n, *out)
}
