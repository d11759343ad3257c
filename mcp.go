package vtx

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers all vtx tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerExtract(srv)
	s.registerReflow(srv)
	s.registerListRuns(srv)
	s.registerMerge(srv)
}

// derive clones the Service with per-call overrides. The clone shares the
// browser seam, run history, progress sink, clock, and id source; it is never
// Closed, so shared resources stay with the parent.
func (s *Service) derive(entryURL, outputDir string, concurrency int) *Service {
	clone := *s
	clone.cfg.EntryURL = entryURL
	if outputDir != "" {
		clone.cfg.OutputDir = outputDir
	}
	if concurrency > 0 {
		clone.cfg.Concurrency = concurrency
	}
	return &clone
}

// extractedVideo is one per-video row in the vtx_extract output. Segments
// stay on disk; the tool reports where they went.
type extractedVideo struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Status string `json:"status"`
	File   string `json:"file,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type extractOutput struct {
	RunID        string           `json:"run_id"`
	EntryURL     string           `json:"entry_url"`
	OutputDir    string           `json:"output_dir"`
	ManifestPath string           `json:"manifest_path"`
	Discovered   int              `json:"discovered"`
	Succeeded    int              `json:"succeeded"`
	Unavailable  int              `json:"unavailable"`
	Failed       int              `json:"failed"`
	Results      []extractedVideo `json:"results"`
}

func (s *Service) registerExtract(srv *mcp.Server) {
	type input struct {
		EntryURL    string `json:"entry_url" jsonschema:"Video, channel, or listing URL to extract transcripts from"`
		OutputDir   string `json:"output_dir,omitempty" jsonschema:"Directory for transcript files (default: the configured one)"`
		Concurrency int    `json:"concurrency,omitempty" jsonschema:"How many videos to process at once (default 5)"`
	}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "vtx_extract",
		Description: "Extract transcripts for a video, channel, or listing URL. Writes formatted and raw transcript files plus a summary manifest, and returns per-video results.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in input) (*mcp.CallToolResult, extractOutput, error) {
		if in.EntryURL == "" {
			return nil, extractOutput{}, fmt.Errorf("entry_url is required")
		}

		summary, err := s.derive(in.EntryURL, in.OutputDir, in.Concurrency).Run(ctx)
		if err != nil {
			return nil, extractOutput{}, err
		}

		out := extractOutput{
			RunID:        summary.RunID,
			EntryURL:     summary.EntryURL,
			OutputDir:    summary.OutputDir,
			ManifestPath: summary.ManifestPath,
			Discovered:   summary.Discovered,
			Succeeded:    summary.Succeeded,
			Unavailable:  summary.Unavailable,
			Failed:       summary.Failed,
			Results:      make([]extractedVideo, 0, len(summary.Outcomes)),
		}
		for _, o := range summary.Outcomes {
			out.Results = append(out.Results, extractedVideo{
				Title:  o.Video.Title,
				URL:    o.Video.URL,
				Status: o.Status.String(),
				File:   o.Files.Formatted,
				Reason: o.Reason,
			})
		}
		return nil, out, nil
	})
}

func (s *Service) registerReflow(srv *mcp.Server) {
	type input struct {
		Segments []TranscriptSegment `json:"segments" jsonschema:"Transcript segments, each with an optional timestamp and its text"`
	}
	type output struct {
		Text string `json:"text"`
	}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "vtx_reflow",
		Description: "Join raw transcript segments into readable sentence-grouped paragraphs. Pure text shaping, no browser involved.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in input) (*mcp.CallToolResult, output, error) {
		if len(in.Segments) == 0 {
			return nil, output{}, fmt.Errorf("segments are required")
		}
		return nil, output{Text: Reflow(in.Segments)}, nil
	})
}

func (s *Service) registerListRuns(srv *mcp.Server) {
	type input struct {
		Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of runs to return (default 20)"`
		RunID string `json:"run_id,omitempty" jsonschema:"Return this run with its per-video outcomes instead of the list"`
	}
	type output struct {
		Runs   []*RunRecord `json:"runs,omitempty"`
		Run    *RunRecord   `json:"run,omitempty"`
		Videos []*RunVideo  `json:"videos,omitempty"`
	}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "vtx_list_runs",
		Description: "Browse extraction run history: recent runs with their counters, or one run's per-video outcomes.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in input) (*mcp.CallToolResult, output, error) {
		if in.RunID != "" {
			run, videos, err := s.RunHistory(ctx, in.RunID)
			if err != nil {
				return nil, output{}, err
			}
			if run == nil {
				return nil, output{}, fmt.Errorf("unknown run: %s", in.RunID)
			}
			return nil, output{Run: run, Videos: videos}, nil
		}

		runs, err := s.ListRuns(ctx, in.Limit)
		if err != nil {
			return nil, output{}, err
		}
		return nil, output{Runs: runs}, nil
	})
}

func (s *Service) registerMerge(srv *mcp.Server) {
	type input struct {
		Dir string `json:"dir,omitempty" jsonschema:"Directory holding formatted transcripts (default: the configured output directory)"`
		Out string `json:"out" jsonschema:"Path of the merged file to write"`
	}
	type output struct {
		Merged int    `json:"merged"`
		Out    string `json:"out"`
	}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "vtx_merge",
		Description: "Concatenate the formatted transcripts in a directory into one file, skipping raw dumps.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in input) (*mcp.CallToolResult, output, error) {
		if in.Out == "" {
			return nil, output{}, fmt.Errorf("out is required")
		}
		n, err := s.MergeTranscripts(in.Dir, in.Out)
		if err != nil {
			return nil, output{}, err
		}
		return nil, output{Merged: n, Out: in.Out}, nil
	})
}
