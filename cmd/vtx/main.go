// Command vtx extracts video transcripts.
//
// Usage:
//
//	vtx -url https://www.youtube.com/watch?v=...   # one video
//	vtx -url https://www.youtube.com/@somechannel  # a whole channel
//	vtx -config vtx.yaml                           # full configuration
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/vtx"
)

func main() {
	// Optional .env; variables already set in the environment win.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to vtx.yaml config file")
	entryURL := flag.String("url", "", "video, channel, or listing URL (overrides config)")
	outDir := flag.String("out", env("VTX_OUTPUT_DIR", ""), "output directory for transcripts")
	concurrency := flag.Int("n", 0, "videos processed at once")
	historyDB := flag.String("history", env("VTX_HISTORY_DB", ""), "SQLite run history path (empty = none)")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *entryURL, *outDir, *concurrency, *historyDB); err != nil {
		logger.Error("vtx: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, entryURL, outDir string, concurrency int, historyDB string) error {
	cfg := &vtx.Config{}
	if configPath != "" {
		loaded, err := vtx.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if entryURL != "" {
		cfg.EntryURL = entryURL
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}
	if historyDB != "" {
		cfg.HistoryDB = historyDB
	}

	if cfg.EntryURL == "" {
		fmt.Fprintln(os.Stderr, "usage: vtx -url <url> [-out dir] [-n concurrency] | vtx -config vtx.yaml")
		os.Exit(1)
	}

	svc, err := vtx.New(cfg, logger, vtx.WithProgress(func(line string) { fmt.Println(line) }))
	if err != nil {
		return err
	}
	defer svc.Close()

	_, err = svc.Run(ctx)
	return err
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
