// Command peak-tender is the main entrypoint for the chat peak analysis API
// and background workers. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts background jobs: live chat recorder (optional), VOD catalog
//     sync, and the peak analysis worker.
//   - Exposes an HTTP server with health, status, VOD and peak endpoints
//     plus /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/peak-tender/catalog"
	"github.com/onnwee/peak-tender/chat"
	"github.com/onnwee/peak-tender/config"
	"github.com/onnwee/peak-tender/db"
	"github.com/onnwee/peak-tender/peaks"
	"github.com/onnwee/peak-tender/server"
	"github.com/onnwee/peak-tender/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("peak-tender", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live chat recorder: only when IRC credentials are configured. Messages
	// are attributed to the VOD id in CHAT_RECORD_VOD_ID, or a synthetic
	// live-<unix> id when recording ahead of the VOD being published.
	if err := cfg.ValidateChatReady(); err == nil {
		vodID := os.Getenv("CHAT_RECORD_VOD_ID")
		if vodID == "" {
			vodID = fmt.Sprintf("live-%d", time.Now().Unix())
		}
		go chat.StartTwitchChatRecorder(ctx, database, *cfg, vodID, time.Now().UTC())
	} else {
		slog.Info("chat recorder disabled", slog.Any("reason", err))
	}

	// Background jobs: catalog sync (Helix discovery + rechat import) and
	// the peak analysis worker.
	go catalog.StartCatalogSyncJob(ctx, database, *cfg)
	go peaks.StartPeakAnalysisJob(ctx, database, cfg.Analysis)

	// HTTP server (health/status/metrics + VOD/peak API)
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		if err := server.Start(ctx, database, addr, cfg.Analysis); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
