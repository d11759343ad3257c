// Command vtxmcp serves the vtx transcript tools over MCP stdio.
//
// Usage:
//
//	vtxmcp                        # defaults, no run history
//	vtxmcp -history db/runs.db    # with run history
//	vtxmcp -config vtx.yaml
//
// Logs go to stderr; stdout carries the protocol.
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
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/vtx"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to vtx.yaml config file")
	outDir := flag.String("out", env("VTX_OUTPUT_DIR", ""), "default output directory for transcripts")
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

	if err := run(ctx, logger, *configPath, *outDir, *historyDB); err != nil {
		logger.Error("vtxmcp: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, outDir, historyDB string) error {
	cfg := &vtx.Config{}
	if configPath != "" {
		loaded, err := vtx.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if historyDB != "" {
		cfg.HistoryDB = historyDB
	}

	svc, err := vtx.New(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "vtx",
		Version: "1.0.0",
	}, nil)
	svc.RegisterMCP(srv)

	logger.Info("vtxmcp: serving on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
